package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/jhoicas/dispensario-api/internal/application/inventory"
	"github.com/jhoicas/dispensario-api/pkg/logger"
)

var (
	_ inventory.EventPublisher = (*Publisher)(nil)
	_ inventory.EventPublisher = NopPublisher{}
)

// Channel lo que el publicador usa de *amqp.Channel.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher publica eventos del inventario en un exchange topic; el tipo de evento es la routing key.
type Publisher struct {
	mu       sync.Mutex
	channel  Channel
	exchange string
	source   string
	log      *logger.Logger
}

// NewPublisher declara el exchange y devuelve el publicador.
func NewPublisher(rmq *RabbitMQ, exchange, source string, log *logger.Logger) (*Publisher, error) {
	if err := rmq.DeclareExchange(exchange); err != nil {
		return nil, fmt.Errorf("declarar exchange %s: %w", exchange, err)
	}
	return NewChannelPublisher(rmq.Channel(), exchange, source, log), nil
}

// NewChannelPublisher publicador sobre un canal ya configurado.
func NewChannelPublisher(ch Channel, exchange, source string, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{channel: ch, exchange: exchange, source: source, log: log}
}

// Publish serializa el evento y lo envía como mensaje persistente.
func (p *Publisher) Publish(ctx context.Context, eventType string, data any) error {
	correlationID := CorrelationID(ctx)
	event, err := NewEvent(eventType, p.source, correlationID, data)
	if err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}

	p.mu.Lock()
	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		eventType,  // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     event.ID,
			CorrelationId: correlationID,
			Type:          eventType,
			Timestamp:     event.OccurredAt,
			Body:          body,
		},
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publicar %s: %w", eventType, err)
	}

	p.log.Debug().
		Str("event_type", eventType).
		Str("event_id", event.ID).
		Str("correlation_id", correlationID).
		Msg("evento publicado")
	return nil
}

// NopPublisher descarta los eventos; se usa cuando RABBITMQ_URL no está configurado.
type NopPublisher struct {
	Log *logger.Logger
}

// Publish registra el evento en debug y no hace nada más.
func (n NopPublisher) Publish(_ context.Context, eventType string, _ any) error {
	if n.Log != nil {
		n.Log.Debug().Str("event_type", eventType).Msg("evento descartado: broker no configurado")
	}
	return nil
}

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID agrega el id de correlación (request id) al contexto.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationID id de correlación del contexto, vacío si no hay.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}
