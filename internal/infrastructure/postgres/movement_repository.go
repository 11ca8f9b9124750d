package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/dispensario-api/internal/domain/entity"
	"github.com/jhoicas/dispensario-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo ledger de movimientos sobre PostgreSQL. La tabla rechaza UPDATE y DELETE por trigger.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Append inserta el movimiento y devuelve su secuencia en m.Seq. created_at se toma del reloj de la BD
// al insertar (no al iniciar la tx) para que siga el orden de seq.
func (r *MovementRepo) Append(ctx context.Context, m *entity.MovementRecord) error {
	query := `
		INSERT INTO inventory_movements (id, product_id, warehouse_id, lot_number, kind, quantity_in, quantity_out, reference_id, unit_cost, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, clock_timestamp(), $10)
		RETURNING seq, created_at`
	createdBy := (*string)(nil)
	if m.CreatedBy != "" {
		createdBy = &m.CreatedBy
	}
	err := r.q.QueryRow(ctx, query,
		m.ID, m.ProductID, m.WarehouseID, m.LotNumber, string(m.Kind),
		m.QuantityIn, m.QuantityOut, m.ReferenceID, m.UnitCost, createdBy,
	).Scan(&m.Seq, &m.CreatedAt)
	if err != nil {
		return mapError("append movement", err)
	}
	return nil
}

// ListByProductWarehouse movimientos en orden de inserción desde el inicio del log hasta until.
func (r *MovementRepo) ListByProductWarehouse(ctx context.Context, productID, warehouseID string, until *time.Time) ([]entity.MovementRecord, error) {
	query := `
		SELECT seq, id, product_id, warehouse_id, lot_number, kind, quantity_in, quantity_out, reference_id, unit_cost, created_at, created_by
		FROM inventory_movements
		WHERE product_id = $1 AND warehouse_id = $2 AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY seq ASC`
	rows, err := r.q.Query(ctx, query, productID, warehouseID, until)
	if err != nil {
		return nil, mapError("list movements", err)
	}
	defer rows.Close()
	var out []entity.MovementRecord
	for rows.Next() {
		var (
			m         entity.MovementRecord
			kind      string
			createdBy *string
		)
		if err := rows.Scan(&m.Seq, &m.ID, &m.ProductID, &m.WarehouseID, &m.LotNumber, &kind,
			&m.QuantityIn, &m.QuantityOut, &m.ReferenceID, &m.UnitCost, &m.CreatedAt, &createdBy); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Kind = entity.MovementKind(kind)
		if createdBy != nil {
			m.CreatedBy = *createdBy
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list movements", err)
	}
	return out, nil
}

// SumByLot Σ entradas − Σ salidas por lote.
func (r *MovementRepo) SumByLot(ctx context.Context, productID, warehouseID string) (map[string]int64, error) {
	query := `
		SELECT lot_number, COALESCE(SUM(quantity_in - quantity_out), 0)::bigint
		FROM inventory_movements
		WHERE product_id = $1 AND warehouse_id = $2
		GROUP BY lot_number`
	rows, err := r.q.Query(ctx, query, productID, warehouseID)
	if err != nil {
		return nil, mapError("sum movements", err)
	}
	defer rows.Close()
	sums := make(map[string]int64)
	for rows.Next() {
		var (
			lot string
			sum int64
		)
		if err := rows.Scan(&lot, &sum); err != nil {
			return nil, fmt.Errorf("scan movement sum: %w", err)
		}
		sums[lot] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("sum movements", err)
	}
	return sums, nil
}
