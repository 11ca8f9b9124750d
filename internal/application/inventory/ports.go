package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/dispensario-api/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Lots         repository.LotRepository
	Movements    repository.MovementRepository
	Transfers    repository.TransferRepository
	PendingItems repository.PendingItemRepository
	Documents    repository.DocumentRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad del Lot Store + Ledger Writer: o se confirma todo o nada.
// Debe devolver domain.ErrContention (envuelto) ante conflictos de serialización o bloqueo.
type TxRunner interface {
	Run(ctx context.Context, fn func(Repos) error) error
	// View abre una transacción de solo lectura con snapshot consistente.
	View(ctx context.Context, fn func(Repos) error) error
}

// EventPublisher publica eventos de dominio hacia colaboradores (avisos a pacientes, reportes).
// Se invoca después del commit; un fallo de publicación no revierte la operación.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// Observer recibe métricas de las operaciones del motor.
type Observer interface {
	OperationObserved(op, outcome string, elapsed time.Duration)
	ContentionRetried(op string)
	IntegrityViolation(productID, warehouseID string)
}

// Tipos de evento publicados.
const (
	EventPendingItemNotified    = "inventory.pending_item.notified"
	EventTransferStatusChanged  = "inventory.transfer.status_changed"
	EventIntegrityViolation     = "inventory.integrity.violation"
	EventDispensationRegistered = "inventory.dispensation.registered"
)
