package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")

	// Resultados de negocio esperados: se devuelven al caller, nunca se registran como error de sistema.
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrInvalidQuantity   = errors.New("cantidad inválida")
	ErrOverDelivery      = errors.New("la entrega supera la cantidad pendiente")
	ErrInvalidTransition = errors.New("transición de estado no permitida")

	// Transitorio: conflicto transaccional tras agotar los reintentos.
	ErrContention = errors.New("conflicto de concurrencia")

	// Fatal: el kardex reconstruido no coincide con el saldo del lote.
	ErrIntegrityViolation = errors.New("violación de integridad del kardex")
)

// InsufficientStockError detalla cuánto se pidió y cuánto había disponible.
// LotNumber vacío indica que la falta es sobre el total de lotes de la bodega.
type InsufficientStockError struct {
	ProductID   string
	WarehouseID string
	LotNumber   string
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	if e.LotNumber != "" {
		return fmt.Sprintf("stock insuficiente para producto %s en bodega %s lote %s: solicitado %d, disponible %d",
			e.ProductID, e.WarehouseID, e.LotNumber, e.Requested, e.Available)
	}
	return fmt.Sprintf("stock insuficiente para producto %s en bodega %s: solicitado %d, disponible %d",
		e.ProductID, e.WarehouseID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// QuantityError indica una cantidad cero o negativa (error del caller, no se reintenta).
type QuantityError struct {
	Field string
	Value int64
}

func (e *QuantityError) Error() string {
	return fmt.Sprintf("cantidad inválida en %s: %d", e.Field, e.Value)
}

func (e *QuantityError) Unwrap() error { return ErrInvalidQuantity }

// OverDeliveryError intento de entregar más de lo pendiente.
type OverDeliveryError struct {
	PendingItemID string
	Requested     int64
	Pending       int64
}

func (e *OverDeliveryError) Error() string {
	return fmt.Sprintf("pendiente %s: se intentó entregar %d y solo quedan %d", e.PendingItemID, e.Requested, e.Pending)
}

func (e *OverDeliveryError) Unwrap() error { return ErrOverDelivery }

// TransitionError transición no permitida desde el estado actual de un traslado o pendiente.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s: no se permite %s desde %s", e.Entity, e.ID, e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// IntegrityError saldo del log (Σ entradas − Σ salidas) distinto al saldo almacenado del lote.
type IntegrityError struct {
	ProductID   string
	WarehouseID string
	LotNumber   string
	LedgerQty   int64
	StoredQty   int64
	// Blocked: el lote ya estaba bloqueado por una violación previa sin conciliar.
	Blocked bool
}

func (e *IntegrityError) Error() string {
	if e.Blocked {
		return fmt.Sprintf("lote bloqueado por conciliación pendiente: producto %s bodega %s lote %s",
			e.ProductID, e.WarehouseID, e.LotNumber)
	}
	return fmt.Sprintf("integridad comprometida en producto %s bodega %s lote %s: kardex %d, saldo %d",
		e.ProductID, e.WarehouseID, e.LotNumber, e.LedgerQty, e.StoredQty)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrityViolation }

// IsBusinessOutcome indica si err es un resultado de negocio esperado (no es falla del sistema).
func IsBusinessOutcome(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrOverDelivery) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotFound)
}
