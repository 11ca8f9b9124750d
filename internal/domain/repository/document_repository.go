package repository

import (
	"context"

	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// DocumentRepository persiste encabezados de entradas, dispensaciones y devoluciones.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
}
