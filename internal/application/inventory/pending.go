package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// OpenPendingInput faltante de una dispensación que queda debiéndose al paciente.
type OpenPendingInput struct {
	PatientID       string
	ProductID       string
	WarehouseID     string
	PrescriptionRef string
	Shortfall       int64
	Reason          string
}

// DeliverPendingInput entrega posterior de un pendiente. LotNumber vacío: FEFO.
type DeliverPendingInput struct {
	PendingItemID string
	Quantity      int64
	LotNumber     string
	UserID        string
}

// PendingDeliveryResult pendiente actualizado y lotes descontados.
type PendingDeliveryResult struct {
	Item  *entity.PendingItem
	Drawn []DrawnLot
}

// PendingUseCase reconciliador de pendientes de entrega.
type PendingUseCase struct {
	*engine
}

// NewPendingUseCase construye el caso de uso.
func NewPendingUseCase(d Deps) *PendingUseCase {
	return &PendingUseCase{engine: newEngine(d)}
}

// OpenOrIncrease abre un pendiente o suma el faltante al pendiente abierto del paciente para ese producto.
func (uc *PendingUseCase) OpenOrIncrease(ctx context.Context, in OpenPendingInput) (*entity.PendingItem, error) {
	if in.PatientID == "" {
		return nil, fmt.Errorf("patient_id requerido: %w", domain.ErrInvalidInput)
	}
	if in.Shortfall <= 0 {
		return nil, &domain.QuantityError{Field: "shortfall", Value: in.Shortfall}
	}
	if err := uc.requireWarehouse(ctx, in.WarehouseID); err != nil {
		return nil, err
	}
	if err := uc.requireProduct(ctx, in.ProductID); err != nil {
		return nil, err
	}
	var item *entity.PendingItem
	err := uc.execute(ctx, "pending_open", func(repos Repos) error {
		var err error
		item, err = openOrIncreasePending(ctx, repos, uc.newID, in, 0, uc.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Deliver entrega quantity del pendiente descontando stock en la misma transacción.
func (uc *PendingUseCase) Deliver(ctx context.Context, in DeliverPendingInput) (*PendingDeliveryResult, error) {
	if in.PendingItemID == "" {
		return nil, fmt.Errorf("pending_item_id requerido: %w", domain.ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return nil, &domain.QuantityError{Field: "quantity", Value: in.Quantity}
	}
	lotNumber := entity.NormalizeLotNumber(in.LotNumber)

	var result *PendingDeliveryResult
	err := uc.execute(ctx, "pending_deliver", func(repos Repos) error {
		ledger := uc.ledger(repos, in.UserID)
		item, drawn, err := redeemPending(ctx, ledger, in.PendingItemID, pendingOwner{}, in.Quantity, lotNumber)
		if err != nil {
			return err
		}
		result = &PendingDeliveryResult{Item: item, Drawn: drawn}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel cierra el pendiente sin entregar el saldo. No hay efecto en stock.
func (uc *PendingUseCase) Cancel(ctx context.Context, id, reason string) (*entity.PendingItem, error) {
	var item *entity.PendingItem
	err := uc.execute(ctx, "pending_cancel", func(repos Repos) error {
		p, err := loadPendingForUpdate(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := p.Cancel(reason, uc.now()); err != nil {
			return err
		}
		if err := repos.PendingItems.Update(ctx, p); err != nil {
			return err
		}
		item = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// PendingNotifiedEvent payload del aviso al paciente.
type PendingNotifiedEvent struct {
	PendingItemID string    `json:"pending_item_id"`
	PatientID     string    `json:"patient_id"`
	ProductID     string    `json:"product_id"`
	WarehouseID   string    `json:"warehouse_id"`
	PendingQty    int64     `json:"pending_qty"`
	NotifyCount   int       `json:"notify_count"`
	NotifiedAt    time.Time `json:"notified_at"`
}

// Notify registra el aviso al paciente y lo publica para el colaborador de mensajería.
func (uc *PendingUseCase) Notify(ctx context.Context, id string) (*entity.PendingItem, error) {
	var item *entity.PendingItem
	err := uc.execute(ctx, "pending_notify", func(repos Repos) error {
		p, err := loadPendingForUpdate(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := p.MarkNotified(uc.now()); err != nil {
			return err
		}
		if err := repos.PendingItems.Update(ctx, p); err != nil {
			return err
		}
		item = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, EventPendingItemNotified, PendingNotifiedEvent{
		PendingItemID: item.ID,
		PatientID:     item.PatientID,
		ProductID:     item.ProductID,
		WarehouseID:   item.WarehouseID,
		PendingQty:    item.PendingQty,
		NotifyCount:   item.NotifyCount,
		NotifiedAt:    *item.NotifiedAt,
	})
	return item, nil
}

// Get devuelve el pendiente o ErrNotFound.
func (uc *PendingUseCase) Get(ctx context.Context, id string) (*entity.PendingItem, error) {
	var item *entity.PendingItem
	err := uc.view(ctx, "pending_get", func(repos Repos) error {
		p, err := repos.PendingItems.Get(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("pendiente %s: %w", id, domain.ErrNotFound)
		}
		item = p
		return nil
	})
	return item, err
}

// ListByPatient pendientes del paciente, abiertos y cerrados.
func (uc *PendingUseCase) ListByPatient(ctx context.Context, patientID string) ([]entity.PendingItem, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id requerido: %w", domain.ErrInvalidInput)
	}
	var items []entity.PendingItem
	err := uc.view(ctx, "pending_list", func(repos Repos) error {
		var err error
		items, err = repos.PendingItems.ListByPatient(ctx, patientID)
		return err
	})
	return items, err
}

func loadPendingForUpdate(ctx context.Context, repos Repos, id string) (*entity.PendingItem, error) {
	if id == "" {
		return nil, fmt.Errorf("pending_item_id requerido: %w", domain.ErrInvalidInput)
	}
	p, err := repos.PendingItems.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("pendiente %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// openOrIncreasePending se ejecuta dentro de la transacción del caller.
// delivered es lo entregado en la misma dispensación que generó el faltante.
func openOrIncreasePending(ctx context.Context, repos Repos, newID func() string, in OpenPendingInput, delivered int64, now time.Time) (*entity.PendingItem, error) {
	open, err := repos.PendingItems.FindOpenForUpdate(ctx, in.PatientID, in.ProductID, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		if err := open.Increase(in.Shortfall, delivered, in.Reason, now); err != nil {
			return nil, err
		}
		if err := repos.PendingItems.Update(ctx, open); err != nil {
			return nil, err
		}
		return open, nil
	}
	item, err := entity.NewPendingItem(newID(), in.PatientID, in.ProductID, in.WarehouseID,
		in.PrescriptionRef, in.Shortfall, delivered, in.Reason, now)
	if err != nil {
		return nil, err
	}
	if err := repos.PendingItems.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// redeemPending descuenta el pendiente y el stock en la misma transacción.
// patientID y warehouseID, si no son vacíos, deben coincidir con los del pendiente.
// pendingOwner lo que el caller afirma del pendiente; los campos vacíos no se comprueban.
type pendingOwner struct {
	PatientID   string
	ProductID   string
	WarehouseID string
}

func redeemPending(ctx context.Context, ledger *lotLedger, id string, owner pendingOwner, qty int64, lotNumber string) (*entity.PendingItem, []DrawnLot, error) {
	p, err := loadPendingForUpdate(ctx, ledger.repos, id)
	if err != nil {
		return nil, nil, err
	}
	if owner.PatientID != "" && p.PatientID != owner.PatientID {
		return nil, nil, fmt.Errorf("pendiente %s no pertenece al paciente %s: %w", id, owner.PatientID, domain.ErrInvalidInput)
	}
	if owner.ProductID != "" && p.ProductID != owner.ProductID {
		return nil, nil, fmt.Errorf("pendiente %s es del producto %s, no de %s: %w", id, p.ProductID, owner.ProductID, domain.ErrInvalidInput)
	}
	if owner.WarehouseID != "" && p.WarehouseID != owner.WarehouseID {
		return nil, nil, fmt.Errorf("pendiente %s no pertenece a la bodega %s: %w", id, owner.WarehouseID, domain.ErrInvalidInput)
	}
	if err := p.Deliver(qty, ledger.now); err != nil {
		return nil, nil, err
	}
	drawn, err := ledger.draw(ctx, p.ProductID, p.WarehouseID, lotNumber, qty, entity.MovementPendingDelivery, p.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := ledger.repos.PendingItems.Update(ctx, p); err != nil {
		return nil, nil, err
	}
	return p, drawn, nil
}
