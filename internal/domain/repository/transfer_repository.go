package repository

import (
	"context"

	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// TransferRepository puerto de persistencia de traslados.
type TransferRepository interface {
	Create(ctx context.Context, transfer *entity.Transfer) error
	// Get y GetForUpdate devuelven nil, nil si no existe.
	Get(ctx context.Context, id string) (*entity.Transfer, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error)
	Update(ctx context.Context, transfer *entity.Transfer) error
}
