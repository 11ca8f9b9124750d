package repository

import (
	"context"
	"time"

	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// MovementRepository puerto del Ledger Writer: solo agrega, nunca actualiza ni borra.
type MovementRepository interface {
	Append(ctx context.Context, movement *entity.MovementRecord) error
	// ListByProductWarehouse devuelve los movimientos en orden cronológico ascendente,
	// desde el inicio del log hasta until (inclusive) si no es nil.
	ListByProductWarehouse(ctx context.Context, productID, warehouseID string, until *time.Time) ([]entity.MovementRecord, error)
	// SumByLot devuelve Σ entradas − Σ salidas por lote.
	SumByLot(ctx context.Context, productID, warehouseID string) (map[string]int64, error)
}
