package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// DispenseItem línea de una dispensación.
//
// Con PendingItemID la línea redime ese pendiente: QuantityPrescribed se ignora
// y QuantityToDeliver se descuenta del pendiente.
type DispenseItem struct {
	ProductID          string
	QuantityPrescribed int64
	QuantityToDeliver  int64
	LotNumber          string // override del operador; vacío: FEFO
	PendingItemID      string
	Reason             string // motivo del faltante
}

// DispenseInput entrega de medicamentos a un paciente contra una fórmula.
type DispenseInput struct {
	WarehouseID     string
	PatientID       string
	PrescriptionRef string
	UserID          string
	Items           []DispenseItem
}

// DispenseLine resultado por línea.
type DispenseLine struct {
	ProductID   string
	Delivered   int64
	Drawn       []DrawnLot
	PendingItem *entity.PendingItem
}

// DispenseResult documento creado y detalle por línea.
type DispenseResult struct {
	DocumentID string
	Lines      []DispenseLine
}

// DispensationEvent payload publicado tras confirmar una dispensación.
type DispensationEvent struct {
	DocumentID      string    `json:"document_id"`
	WarehouseID     string    `json:"warehouse_id"`
	PatientID       string    `json:"patient_id"`
	PrescriptionRef string    `json:"prescription_ref"`
	Lines           int       `json:"lines"`
	PendingItemIDs  []string  `json:"pending_item_ids,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// DispenseUseCase dispensación con apertura de pendientes por faltantes.
type DispenseUseCase struct {
	*engine
}

// NewDispenseUseCase construye el caso de uso.
func NewDispenseUseCase(d Deps) *DispenseUseCase {
	return &DispenseUseCase{engine: newEngine(d)}
}

// Dispense descuenta cada línea por FEFO (o del lote indicado) y abre o aumenta el pendiente
// del paciente por cada faltante. La dispensación es atómica: si una línea falla no se entrega nada.
func (uc *DispenseUseCase) Dispense(ctx context.Context, in DispenseInput) (*DispenseResult, error) {
	if in.PatientID == "" {
		return nil, fmt.Errorf("patient_id requerido: %w", domain.ErrInvalidInput)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("dispensación sin ítems: %w", domain.ErrInvalidInput)
	}
	if err := uc.requireWarehouse(ctx, in.WarehouseID); err != nil {
		return nil, err
	}
	items := make([]DispenseItem, len(in.Items))
	for i, it := range in.Items {
		if err := validateDispenseItem(i, it); err != nil {
			return nil, err
		}
		if it.PendingItemID == "" {
			if err := uc.requireProduct(ctx, it.ProductID); err != nil {
				return nil, err
			}
		}
		it.LotNumber = entity.NormalizeLotNumber(it.LotNumber)
		items[i] = it
	}

	docID := uc.newID()
	var result *DispenseResult
	err := uc.execute(ctx, "dispense", func(repos Repos) error {
		ledger := uc.ledger(repos, in.UserID)
		if err := repos.Documents.Create(ctx, &entity.Document{
			ID:          docID,
			Kind:        entity.DocumentDispense,
			WarehouseID: in.WarehouseID,
			PatientID:   in.PatientID,
			Reference:   in.PrescriptionRef,
			CreatedBy:   in.UserID,
			CreatedAt:   ledger.now,
		}); err != nil {
			return err
		}
		res := &DispenseResult{DocumentID: docID, Lines: make([]DispenseLine, 0, len(items))}
		for _, it := range items {
			line, err := uc.dispenseLine(ctx, repos, ledger, in, docID, it)
			if err != nil {
				return err
			}
			res.Lines = append(res.Lines, line)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := DispensationEvent{
		DocumentID:      result.DocumentID,
		WarehouseID:     in.WarehouseID,
		PatientID:       in.PatientID,
		PrescriptionRef: in.PrescriptionRef,
		Lines:           len(result.Lines),
		OccurredAt:      uc.now(),
	}
	for _, l := range result.Lines {
		if l.PendingItem != nil {
			ev.PendingItemIDs = append(ev.PendingItemIDs, l.PendingItem.ID)
		}
	}
	uc.publish(ctx, EventDispensationRegistered, ev)
	return result, nil
}

func (uc *DispenseUseCase) dispenseLine(ctx context.Context, repos Repos, ledger *lotLedger, in DispenseInput, docID string, it DispenseItem) (DispenseLine, error) {
	if it.PendingItemID != "" {
		p, drawn, err := redeemPending(ctx, ledger, it.PendingItemID, pendingOwner{
			PatientID: in.PatientID, ProductID: it.ProductID, WarehouseID: in.WarehouseID,
		}, it.QuantityToDeliver, it.LotNumber)
		if err != nil {
			return DispenseLine{}, err
		}
		return DispenseLine{ProductID: p.ProductID, Delivered: it.QuantityToDeliver, Drawn: drawn, PendingItem: p}, nil
	}

	line := DispenseLine{ProductID: it.ProductID, Delivered: it.QuantityToDeliver}
	if it.QuantityToDeliver > 0 {
		drawn, err := ledger.draw(ctx, it.ProductID, in.WarehouseID, it.LotNumber, it.QuantityToDeliver, entity.MovementDispense, docID)
		if err != nil {
			return DispenseLine{}, err
		}
		line.Drawn = drawn
	}
	if shortfall := it.QuantityPrescribed - it.QuantityToDeliver; shortfall > 0 {
		p, err := openOrIncreasePending(ctx, repos, uc.newID, OpenPendingInput{
			PatientID:       in.PatientID,
			ProductID:       it.ProductID,
			WarehouseID:     in.WarehouseID,
			PrescriptionRef: in.PrescriptionRef,
			Shortfall:       shortfall,
			Reason:          it.Reason,
		}, it.QuantityToDeliver, ledger.now)
		if err != nil {
			return DispenseLine{}, err
		}
		line.PendingItem = p
	}
	return line, nil
}

func validateDispenseItem(i int, it DispenseItem) error {
	if it.PendingItemID != "" {
		if it.QuantityToDeliver <= 0 {
			return &domain.QuantityError{Field: fmt.Sprintf("items[%d].quantity_to_deliver", i), Value: it.QuantityToDeliver}
		}
		return nil
	}
	if it.ProductID == "" {
		return fmt.Errorf("items[%d].product_id requerido: %w", i, domain.ErrInvalidInput)
	}
	if it.QuantityPrescribed <= 0 {
		return &domain.QuantityError{Field: fmt.Sprintf("items[%d].quantity_prescribed", i), Value: it.QuantityPrescribed}
	}
	if it.QuantityToDeliver < 0 || it.QuantityToDeliver > it.QuantityPrescribed {
		return &domain.QuantityError{Field: fmt.Sprintf("items[%d].quantity_to_deliver", i), Value: it.QuantityToDeliver}
	}
	return nil
}
