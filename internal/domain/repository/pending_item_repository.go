package repository

import (
	"context"

	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// PendingItemRepository puerto de persistencia de pendientes. Nunca borra.
type PendingItemRepository interface {
	Create(ctx context.Context, item *entity.PendingItem) error
	Get(ctx context.Context, id string) (*entity.PendingItem, error)
	GetForUpdate(ctx context.Context, id string) (*entity.PendingItem, error)
	// FindOpenForUpdate busca el pendiente abierto (PENDING, NOTIFIED o PARTIAL) del paciente
	// para el producto en la bodega; nil, nil si no hay.
	FindOpenForUpdate(ctx context.Context, patientID, productID, warehouseID string) (*entity.PendingItem, error)
	ListByPatient(ctx context.Context, patientID string) ([]entity.PendingItem, error)
	Update(ctx context.Context, item *entity.PendingItem) error
}
