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

var _ repository.PendingItemRepository = (*PendingItemRepo)(nil)

// PendingItemRepo pendientes de entrega sobre PostgreSQL.
type PendingItemRepo struct {
	q Querier
}

// NewPendingItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPendingItemRepository(q Querier) *PendingItemRepo {
	return &PendingItemRepo{q: q}
}

const pendingColumns = `id, patient_id, product_id, warehouse_id, prescription_ref, prescribed_qty, pending_qty,
	delivered_qty, status, reason, cancel_reason, notify_count, notified_at, closed_at, created_at, updated_at`

func scanPending(row pgx.Row) (*entity.PendingItem, error) {
	var (
		p      entity.PendingItem
		status string
	)
	err := row.Scan(&p.ID, &p.PatientID, &p.ProductID, &p.WarehouseID, &p.PrescriptionRef,
		&p.PrescribedQty, &p.PendingQty, &p.DeliveredQty, &status, &p.Reason, &p.CancelReason,
		&p.NotifyCount, &p.NotifiedAt, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = entity.PendingStatus(status)
	return &p, nil
}

// Create persiste un pendiente. El índice único parcial impide dos abiertos para el mismo
// (paciente, producto, bodega): la carrera se reporta como ErrContention y el caller reintenta.
func (r *PendingItemRepo) Create(ctx context.Context, p *entity.PendingItem) error {
	query := `INSERT INTO pending_items (` + pendingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.PatientID, p.ProductID, p.WarehouseID, p.PrescriptionRef,
		p.PrescribedQty, p.PendingQty, p.DeliveredQty, string(p.Status), p.Reason, p.CancelReason,
		p.NotifyCount, p.NotifiedAt, p.ClosedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("pendiente abierto duplicado: %w", domain.ErrContention)
		}
		return mapError("insert pending item", err)
	}
	return nil
}

func (r *PendingItemRepo) getOne(ctx context.Context, query string, args ...any) (*entity.PendingItem, error) {
	p, err := scanPending(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get pending item", err)
	}
	return p, nil
}

// Get obtiene un pendiente; nil, nil si no existe.
func (r *PendingItemRepo) Get(ctx context.Context, id string) (*entity.PendingItem, error) {
	return r.getOne(ctx, `SELECT `+pendingColumns+` FROM pending_items WHERE id = $1`, id)
}

// GetForUpdate obtiene el pendiente bloqueando la fila.
func (r *PendingItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.PendingItem, error) {
	return r.getOne(ctx, `SELECT `+pendingColumns+` FROM pending_items WHERE id = $1 FOR UPDATE`, id)
}

// FindOpenForUpdate pendiente abierto del paciente para el producto en la bodega.
func (r *PendingItemRepo) FindOpenForUpdate(ctx context.Context, patientID, productID, warehouseID string) (*entity.PendingItem, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_items
		WHERE patient_id = $1 AND product_id = $2 AND warehouse_id = $3
		  AND status IN ('PENDING', 'NOTIFIED', 'PARTIAL')
		FOR UPDATE`
	return r.getOne(ctx, query, patientID, productID, warehouseID)
}

// ListByPatient pendientes del paciente por fecha de creación.
func (r *PendingItemRepo) ListByPatient(ctx context.Context, patientID string) ([]entity.PendingItem, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_items WHERE patient_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.q.Query(ctx, query, patientID)
	if err != nil {
		return nil, mapError("list pending items", err)
	}
	defer rows.Close()
	var out []entity.PendingItem
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending item: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list pending items", err)
	}
	return out, nil
}

// Update persiste cantidades, estado y fechas.
func (r *PendingItemRepo) Update(ctx context.Context, p *entity.PendingItem) error {
	query := `
		UPDATE pending_items
		SET prescribed_qty = $2, pending_qty = $3, delivered_qty = $4, status = $5, reason = $6,
		    cancel_reason = $7, notify_count = $8, notified_at = $9, closed_at = $10, updated_at = $11
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		p.ID, p.PrescribedQty, p.PendingQty, p.DeliveredQty, string(p.Status), p.Reason,
		p.CancelReason, p.NotifyCount, p.NotifiedAt, p.ClosedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapError("update pending item", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("pendiente %s: %w", p.ID, domain.ErrNotFound)
	}
	return nil
}
