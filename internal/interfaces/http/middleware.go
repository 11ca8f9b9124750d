package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jhoicas/dispensario-api/internal/infrastructure/messaging"
)

// HeaderRequestID cabecera de correlación entre la API, los eventos y los logs.
const HeaderRequestID = "X-Request-ID"

// RequestContext propaga el id de correlación al contexto que reciben los casos de uso.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(HeaderRequestID, id)
		c.SetUserContext(messaging.WithCorrelationID(c.UserContext(), id))
		return c.Next()
	}
}

// httpObserver lo que el middleware de métricas necesita del colector.
type httpObserver interface {
	HTTPObserved(method, route string, status int, elapsed time.Duration)
}

// Metrics registra cada petición por patrón de ruta.
func Metrics(obs httpObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		obs.HTTPObserved(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
