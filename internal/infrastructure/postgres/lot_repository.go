package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
	"github.com/jhoicas/dispensario-api/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo Lot Store sobre PostgreSQL (usable con pool o tx).
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador de saldos por lote. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const lotColumns = `product_id, warehouse_id, lot_number, seq, quantity, unit_cost, expiry_date, blocked, created_at, updated_at`

// orden FEFO: vencimiento ascendente, sin vencimiento al final, luego orden de creación.
const lotFEFOOrder = `ORDER BY expiry_date ASC NULLS LAST, seq ASC`

func scanLot(row pgx.Row) (*entity.LotBalance, error) {
	var l entity.LotBalance
	err := row.Scan(&l.ProductID, &l.WarehouseID, &l.LotNumber, &l.Seq, &l.Quantity,
		&l.UnitCost, &l.ExpiryDate, &l.Blocked, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LotRepo) get(ctx context.Context, key entity.LotKey, lock bool) (*entity.LotBalance, error) {
	query := `SELECT ` + lotColumns + ` FROM lot_balances
		WHERE product_id = $1 AND warehouse_id = $2 AND lot_number = $3`
	if lock {
		query += ` FOR UPDATE`
	}
	l, err := scanLot(r.q.QueryRow(ctx, query, key.ProductID, key.WarehouseID, key.LotNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get lot", err)
	}
	return l, nil
}

// Get obtiene el saldo de un lote; nil, nil si no existe.
func (r *LotRepo) Get(ctx context.Context, key entity.LotKey) (*entity.LotBalance, error) {
	return r.get(ctx, key, false)
}

// GetForUpdate obtiene el lote y bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
func (r *LotRepo) GetForUpdate(ctx context.Context, key entity.LotKey) (*entity.LotBalance, error) {
	return r.get(ctx, key, true)
}

func (r *LotRepo) list(ctx context.Context, productID, warehouseID string, lock bool) ([]entity.LotBalance, error) {
	query := `SELECT ` + lotColumns + ` FROM lot_balances
		WHERE product_id = $1 AND warehouse_id = $2 ` + lotFEFOOrder
	if lock {
		query += ` FOR UPDATE`
	}
	rows, err := r.q.Query(ctx, query, productID, warehouseID)
	if err != nil {
		return nil, mapError("list lots", err)
	}
	defer rows.Close()
	var out []entity.LotBalance
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list lots", err)
	}
	return out, nil
}

// List lotes de (producto, bodega) en orden FEFO.
func (r *LotRepo) List(ctx context.Context, productID, warehouseID string) ([]entity.LotBalance, error) {
	return r.list(ctx, productID, warehouseID, false)
}

// ListForUpdate igual que List bloqueando todas las filas: serializa las salidas del mismo producto en la bodega.
func (r *LotRepo) ListForUpdate(ctx context.Context, productID, warehouseID string) ([]entity.LotBalance, error) {
	return r.list(ctx, productID, warehouseID, true)
}

// Insert crea el lote. Un lote creado en paralelo por otra transacción se reporta como ErrContention.
func (r *LotRepo) Insert(ctx context.Context, lot *entity.LotBalance) error {
	query := `
		INSERT INTO lot_balances (product_id, warehouse_id, lot_number, quantity, unit_cost, expiry_date, blocked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		lot.ProductID, lot.WarehouseID, lot.LotNumber, lot.Quantity, lot.UnitCost,
		lot.ExpiryDate, lot.Blocked, lot.CreatedAt, lot.UpdatedAt,
	).Scan(&lot.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert lot %s: %w", lot.LotNumber, domain.ErrContention)
		}
		return mapError("insert lot", err)
	}
	return nil
}

// Update persiste cantidad, costo, vencimiento y bloqueo.
func (r *LotRepo) Update(ctx context.Context, lot *entity.LotBalance) error {
	query := `
		UPDATE lot_balances
		SET quantity = $4, unit_cost = $5, expiry_date = $6, blocked = $7, updated_at = $8
		WHERE product_id = $1 AND warehouse_id = $2 AND lot_number = $3`
	cmd, err := r.q.Exec(ctx, query,
		lot.ProductID, lot.WarehouseID, lot.LotNumber,
		lot.Quantity, lot.UnitCost, lot.ExpiryDate, lot.Blocked, lot.UpdatedAt,
	)
	if err != nil {
		return mapError("update lot", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update lot %s: %w", lot.LotNumber, domain.ErrNotFound)
	}
	return nil
}
