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

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo traslados sobre PostgreSQL. Ítems y líneas se guardan como JSONB.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

const transferColumns = `id, from_warehouse_id, to_warehouse_id, status, items, lines, notes, created_by,
	created_at, sent_at, received_at, cancelled_at, updated_at`

// Create persiste un traslado nuevo.
func (r *TransferRepo) Create(ctx context.Context, t *entity.Transfer) error {
	query := `INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query, transferArgs(t)...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("traslado %s ya existe: %w", t.ID, domain.ErrInvalidInput)
		}
		return mapError("insert transfer", err)
	}
	return nil
}

func (r *TransferRepo) get(ctx context.Context, id string, lock bool) (*entity.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var (
		t         entity.Transfer
		status    string
		createdBy *string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.FromWarehouseID, &t.ToWarehouseID, &status, &t.Items, &t.Lines, &t.Notes, &createdBy,
		&t.CreatedAt, &t.SentAt, &t.ReceivedAt, &t.CancelledAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get transfer", err)
	}
	t.Status = entity.TransferStatus(status)
	if createdBy != nil {
		t.CreatedBy = *createdBy
	}
	return &t, nil
}

// Get obtiene un traslado; nil, nil si no existe.
func (r *TransferRepo) Get(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate obtiene el traslado bloqueando la fila: dos transiciones concurrentes se serializan.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.get(ctx, id, true)
}

// Update persiste estado, líneas y fechas.
func (r *TransferRepo) Update(ctx context.Context, t *entity.Transfer) error {
	query := `
		UPDATE transfers
		SET status = $2, lines = $3, notes = $4, sent_at = $5, received_at = $6, cancelled_at = $7, updated_at = $8
		WHERE id = $1`
	lines := t.Lines
	if lines == nil {
		lines = []entity.TransferLine{}
	}
	cmd, err := r.q.Exec(ctx, query,
		t.ID, string(t.Status), lines, t.Notes, t.SentAt, t.ReceivedAt, t.CancelledAt, t.UpdatedAt,
	)
	if err != nil {
		return mapError("update transfer", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("traslado %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

func transferArgs(t *entity.Transfer) []any {
	items := t.Items
	if items == nil {
		items = []entity.TransferItem{}
	}
	lines := t.Lines
	if lines == nil {
		lines = []entity.TransferLine{}
	}
	createdBy := (*string)(nil)
	if t.CreatedBy != "" {
		createdBy = &t.CreatedBy
	}
	return []any{
		t.ID, t.FromWarehouseID, t.ToWarehouseID, string(t.Status), items, lines, t.Notes, createdBy,
		t.CreatedAt, t.SentAt, t.ReceivedAt, t.CancelledAt, t.UpdatedAt,
	}
}
