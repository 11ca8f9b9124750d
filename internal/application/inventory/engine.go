package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/repository"
	"github.com/jhoicas/dispensario-api/pkg/logger"
)

// RetryPolicy reintentos ante ErrContention.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

// DefaultRetryPolicy 3 intentos con backoff exponencial desde 50ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: 50 * time.Millisecond}
}

// Deps dependencias compartidas por los casos de uso del motor de inventario.
type Deps struct {
	TxRunner   TxRunner
	Products   repository.ProductRepository
	Warehouses repository.WarehouseRepository
	Publisher  EventPublisher
	Observer   Observer
	Logger     *logger.Logger
	Retry      RetryPolicy
	// Now y NewID son inyectables para tests deterministas.
	Now   func() time.Time
	NewID func() string
}

type engine struct {
	tx         TxRunner
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	publisher  EventPublisher
	observer   Observer
	log        *logger.Logger
	retry      RetryPolicy
	now        func() time.Time
	newID      func() string
}

func newEngine(d Deps) *engine {
	e := &engine{
		tx:         d.TxRunner,
		products:   d.Products,
		warehouses: d.Warehouses,
		publisher:  d.Publisher,
		observer:   d.Observer,
		log:        d.Logger,
		retry:      d.Retry,
		now:        d.Now,
		newID:      d.NewID,
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	if e.retry.MaxAttempts <= 0 {
		e.retry.MaxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	if e.retry.InitialInterval <= 0 {
		e.retry.InitialInterval = DefaultRetryPolicy().InitialInterval
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.newID == nil {
		e.newID = func() string { return uuid.New().String() }
	}
	return e
}

// execute corre fn en una transacción; ante ErrContention reintenta la transacción completa
// con backoff hasta MaxAttempts. fn puede ejecutarse varias veces: no debe tener efectos fuera de repos.
func (e *engine) execute(ctx context.Context, op string, fn func(Repos) error) error {
	start := time.Now()
	attempts := 0

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.retry.InitialInterval
	var b backoff.BackOff = backoff.WithMaxRetries(policy, uint64(e.retry.MaxAttempts-1))
	b = backoff.WithContext(b, ctx)

	err := backoff.Retry(func() error {
		attempts++
		err := e.tx.Run(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrContention) {
			if attempts < e.retry.MaxAttempts && e.observer != nil {
				e.observer.ContentionRetried(op)
			}
			return err
		}
		return backoff.Permanent(err)
	}, b)

	if err != nil && errors.Is(err, domain.ErrContention) {
		e.log.Warn().Err(err).Str("op", op).Int("attempts", attempts).Msg("contención agotó los reintentos")
		err = fmt.Errorf("%s tras %d intentos: %w", op, attempts, err)
	}
	e.observe(op, err, time.Since(start))
	return err
}

// view corre fn en una transacción de solo lectura.
func (e *engine) view(ctx context.Context, op string, fn func(Repos) error) error {
	start := time.Now()
	err := e.tx.View(ctx, fn)
	e.observe(op, err, time.Since(start))
	return err
}

func (e *engine) observe(op string, err error, elapsed time.Duration) {
	outcome := "ok"
	switch {
	case err == nil:
	case domain.IsBusinessOutcome(err):
		outcome = "rejected"
		e.log.Debug().Err(err).Str("op", op).Msg("operación rechazada")
	case errors.Is(err, domain.ErrContention):
		outcome = "contention"
	case errors.Is(err, domain.ErrIntegrityViolation):
		outcome = "integrity"
	default:
		outcome = "error"
		e.log.Error().Err(err).Str("op", op).Msg("operación de inventario fallida")
	}
	if e.observer != nil {
		e.observer.OperationObserved(op, outcome, elapsed)
	}
}

// publish envía el evento después del commit; los fallos solo se registran.
func (e *engine) publish(ctx context.Context, eventType string, data any) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, eventType, data); err != nil {
		e.log.Warn().Err(err).Str("event_type", eventType).Msg("no se pudo publicar el evento")
	}
}

// requireWarehouse valida que la bodega exista y esté activa.
func (e *engine) requireWarehouse(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}
	if e.warehouses == nil {
		return nil
	}
	wh, err := e.warehouses.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("resolver bodega %s: %w", id, err)
	}
	if wh == nil || !wh.Active {
		return fmt.Errorf("bodega %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// requireProduct valida que el producto exista.
func (e *engine) requireProduct(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}
	if e.products == nil {
		return nil
	}
	p, err := e.products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("resolver producto %s: %w", id, err)
	}
	if p == nil {
		return fmt.Errorf("producto %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
