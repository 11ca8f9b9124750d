package repository

import (
	"context"

	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// LotRepository puerto del Lot Store. Las lecturas *ForUpdate bloquean las filas
// hasta el fin de la transacción; fuera de una transacción de escritura no se usan.
type LotRepository interface {
	// Get devuelve nil, nil si el lote no existe.
	Get(ctx context.Context, key entity.LotKey) (*entity.LotBalance, error)
	GetForUpdate(ctx context.Context, key entity.LotKey) (*entity.LotBalance, error)
	// List y ListForUpdate devuelven los lotes de (producto, bodega) en orden FEFO.
	List(ctx context.Context, productID, warehouseID string) ([]entity.LotBalance, error)
	ListForUpdate(ctx context.Context, productID, warehouseID string) ([]entity.LotBalance, error)
	Insert(ctx context.Context, lot *entity.LotBalance) error
	Update(ctx context.Context, lot *entity.LotBalance) error
}
