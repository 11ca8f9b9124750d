package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// ReturnItem línea devuelta. Sin lote se usa el lote sintético entity.UnknownLot.
type ReturnItem struct {
	ProductID string
	LotNumber string
	Quantity  int64
	Reason    string
	// UnitCost solo se usa si el lote no existe en la bodega.
	UnitCost decimal.Decimal
}

// ReturnInput devolución de un paciente u otra bodega.
type ReturnInput struct {
	WarehouseID string
	PatientID   string
	Source      string // origen: paciente, bodega, servicio
	UserID      string
	Items       []ReturnItem
}

// ReturnResult documento creado y saldos resultantes.
type ReturnResult struct {
	DocumentID string
	Lots       []entity.LotBalance
}

// ReturnUseCase registra devoluciones (entradas de baja trazabilidad incluidas).
type ReturnUseCase struct {
	*engine
}

// NewReturnUseCase construye el caso de uso.
func NewReturnUseCase(d Deps) *ReturnUseCase {
	return &ReturnUseCase{engine: newEngine(d)}
}

// Return reingresa los ítems al stock; todo o nada.
func (uc *ReturnUseCase) Return(ctx context.Context, in ReturnInput) (*ReturnResult, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("devolución sin ítems: %w", domain.ErrInvalidInput)
	}
	if err := uc.requireWarehouse(ctx, in.WarehouseID); err != nil {
		return nil, err
	}
	items := make([]ReturnItem, len(in.Items))
	for i, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, &domain.QuantityError{Field: fmt.Sprintf("items[%d].quantity", i), Value: it.Quantity}
		}
		if it.UnitCost.IsNegative() {
			return nil, fmt.Errorf("items[%d].unit_cost negativo: %w", i, domain.ErrInvalidInput)
		}
		if err := uc.requireProduct(ctx, it.ProductID); err != nil {
			return nil, err
		}
		it.LotNumber = entity.NormalizeLotNumber(it.LotNumber)
		if it.LotNumber == "" {
			it.LotNumber = entity.UnknownLot
		}
		items[i] = it
	}

	docID := uc.newID()
	var result *ReturnResult
	err := uc.execute(ctx, "return", func(repos Repos) error {
		ledger := uc.ledger(repos, in.UserID)
		notes := ""
		if len(items) > 0 {
			notes = items[0].Reason
		}
		if err := repos.Documents.Create(ctx, &entity.Document{
			ID:          docID,
			Kind:        entity.DocumentReturn,
			WarehouseID: in.WarehouseID,
			PatientID:   in.PatientID,
			Reference:   in.Source,
			Notes:       notes,
			CreatedBy:   in.UserID,
			CreatedAt:   ledger.now,
		}); err != nil {
			return err
		}
		res := &ReturnResult{DocumentID: docID}
		for _, it := range items {
			lot, err := ledger.credit(ctx, creditInput{
				Key:       entity.LotKey{ProductID: it.ProductID, WarehouseID: in.WarehouseID, LotNumber: it.LotNumber},
				Quantity:  it.Quantity,
				UnitCost:  it.UnitCost,
				Kind:      entity.MovementReturn,
				Reference: docID,
			})
			if err != nil {
				return err
			}
			res.Lots = append(res.Lots, *lot)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
