package repository

import (
	"context"

	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// ProductRepository resolución de identidad de productos (maestro externo al núcleo).
type ProductRepository interface {
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}
