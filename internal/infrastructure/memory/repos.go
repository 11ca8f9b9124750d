package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
	dominv "github.com/jhoicas/dispensario-api/internal/domain/inventory"
	"github.com/jhoicas/dispensario-api/internal/domain/repository"
)

var (
	_ repository.LotRepository         = (*lotRepo)(nil)
	_ repository.MovementRepository    = (*movementRepo)(nil)
	_ repository.TransferRepository    = (*transferRepo)(nil)
	_ repository.PendingItemRepository = (*pendingRepo)(nil)
	_ repository.DocumentRepository    = (*documentRepo)(nil)
)

// Con el lock exclusivo de Run no hay filas que bloquear: *ForUpdate equivale a la lectura simple.

type lotRepo struct{ tx *tx }

func (r *lotRepo) Get(_ context.Context, key entity.LotKey) (*entity.LotBalance, error) {
	lot, ok := r.tx.state.lots[key]
	if !ok {
		return nil, nil
	}
	return &lot, nil
}

func (r *lotRepo) GetForUpdate(ctx context.Context, key entity.LotKey) (*entity.LotBalance, error) {
	return r.Get(ctx, key)
}

func (r *lotRepo) List(_ context.Context, productID, warehouseID string) ([]entity.LotBalance, error) {
	var out []entity.LotBalance
	for _, lot := range r.tx.state.lots {
		if lot.ProductID == productID && lot.WarehouseID == warehouseID {
			out = append(out, lot)
		}
	}
	dominv.SortFEFO(out)
	return out, nil
}

func (r *lotRepo) ListForUpdate(ctx context.Context, productID, warehouseID string) ([]entity.LotBalance, error) {
	return r.List(ctx, productID, warehouseID)
}

func (r *lotRepo) Insert(_ context.Context, lot *entity.LotBalance) error {
	if err := r.tx.writable(); err != nil {
		return err
	}
	key := lot.Key()
	if _, ok := r.tx.state.lots[key]; ok {
		return fmt.Errorf("lote %s ya existe: %w", key.LotNumber, domain.ErrContention)
	}
	if lot.Quantity < 0 {
		return &domain.QuantityError{Field: "lot.quantity", Value: lot.Quantity}
	}
	r.tx.state.lotSeq++
	lot.Seq = r.tx.state.lotSeq
	r.tx.state.lots[key] = *lot
	return nil
}

func (r *lotRepo) Update(_ context.Context, lot *entity.LotBalance) error {
	if err := r.tx.writable(); err != nil {
		return err
	}
	key := lot.Key()
	current, ok := r.tx.state.lots[key]
	if !ok {
		return fmt.Errorf("lote %s: %w", key.LotNumber, domain.ErrNotFound)
	}
	if lot.Quantity < 0 {
		return &domain.QuantityError{Field: "lot.quantity", Value: lot.Quantity}
	}
	lot.Seq = current.Seq
	lot.CreatedAt = current.CreatedAt
	r.tx.state.lots[key] = *lot
	return nil
}

type movementRepo struct{ tx *tx }

func (r *movementRepo) Append(_ context.Context, m *entity.MovementRecord) error {
	if err := r.tx.writable(); err != nil {
		return err
	}
	if (m.QuantityIn > 0) == (m.QuantityOut > 0) || m.QuantityIn < 0 || m.QuantityOut < 0 {
		return fmt.Errorf("movimiento %s con entrada %d y salida %d: %w", m.ID, m.QuantityIn, m.QuantityOut, domain.ErrInvalidQuantity)
	}
	r.tx.state.movSeq++
	m.Seq = r.tx.state.movSeq
	r.tx.state.movements = append(r.tx.state.movements, *m)
	return nil
}

func (r *movementRepo) ListByProductWarehouse(_ context.Context, productID, warehouseID string, until *time.Time) ([]entity.MovementRecord, error) {
	var out []entity.MovementRecord
	for _, m := range r.tx.state.movements {
		if m.ProductID != productID || m.WarehouseID != warehouseID {
			continue
		}
		if until != nil && m.CreatedAt.After(*until) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(&out[j]) })
	return out, nil
}

func (r *movementRepo) SumByLot(_ context.Context, productID, warehouseID string) (map[string]int64, error) {
	sums := make(map[string]int64)
	for _, m := range r.tx.state.movements {
		if m.ProductID == productID && m.WarehouseID == warehouseID {
			sums[m.LotNumber] += m.Delta()
		}
	}
	return sums, nil
}

type transferRepo struct{ tx *tx }

func (r *transferRepo) Create(_ context.Context, t *entity.Transfer) error {
	if err := r.tx.writable(); err != nil {
		return err
	}
	if _, ok := r.tx.state.transfers[t.ID]; ok {
		return fmt.Errorf("traslado %s ya existe: %w", t.ID, domain.ErrInvalidInput)
	}
	r.tx.state.transfers[t.ID] = cloneTransfer(*t)
	return nil
}

func (r *transferRepo) Get(_ context.Context, id string) (*entity.Transfer, error) {
	t, ok := r.tx.state.transfers[id]
	if !ok {
		return nil, nil
	}
	t = cloneTransfer(t)
	return &t, nil
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.Get(ctx, id)
}

func (r *transferRepo) Update(_ context.Context, t *entity.Transfer) error {
	if err := r.tx.writable(); err != nil {
		return err
	}
	if _, ok := r.tx.state.transfers[t.ID]; !ok {
		return fmt.Errorf("traslado %s: %w", t.ID, domain.ErrNotFound)
	}
	r.tx.state.transfers[t.ID] = cloneTransfer(*t)
	return nil
}

type pendingRepo struct{ tx *tx }

func (r *pendingRepo) Create(_ context.Context, p *entity.PendingItem) error {
	if err := r.tx.writable(); err != nil {
		return err
	}
	if open := r.findOpen(p.PatientID, p.ProductID, p.WarehouseID); open != nil {
		return fmt.Errorf("pendiente abierto %s ya existe: %w", open.ID, domain.ErrContention)
	}
	r.tx.state.pending[p.ID] = *p
	return nil
}

func (r *pendingRepo) Get(_ context.Context, id string) (*entity.PendingItem, error) {
	p, ok := r.tx.state.pending[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *pendingRepo) GetForUpdate(ctx context.Context, id string) (*entity.PendingItem, error) {
	return r.Get(ctx, id)
}

func (r *pendingRepo) FindOpenForUpdate(_ context.Context, patientID, productID, warehouseID string) (*entity.PendingItem, error) {
	return r.findOpen(patientID, productID, warehouseID), nil
}

func (r *pendingRepo) findOpen(patientID, productID, warehouseID string) *entity.PendingItem {
	for _, p := range r.tx.state.pending {
		if p.PatientID == patientID && p.ProductID == productID && p.WarehouseID == warehouseID && !p.Status.Terminal() {
			return &p
		}
	}
	return nil
}

func (r *pendingRepo) ListByPatient(_ context.Context, patientID string) ([]entity.PendingItem, error) {
	var out []entity.PendingItem
	for _, p := range r.tx.state.pending {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *pendingRepo) Update(_ context.Context, p *entity.PendingItem) error {
	if err := r.tx.writable(); err != nil {
		return err
	}
	if _, ok := r.tx.state.pending[p.ID]; !ok {
		return fmt.Errorf("pendiente %s: %w", p.ID, domain.ErrNotFound)
	}
	r.tx.state.pending[p.ID] = *p
	return nil
}

type documentRepo struct{ tx *tx }

func (r *documentRepo) Create(_ context.Context, d *entity.Document) error {
	if err := r.tx.writable(); err != nil {
		return err
	}
	if _, ok := r.tx.state.documents[d.ID]; ok {
		return fmt.Errorf("documento %s ya existe: %w", d.ID, domain.ErrInvalidInput)
	}
	r.tx.state.documents[d.ID] = *d
	return nil
}
