package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// ReceiptItem línea de una entrada de mercancía.
type ReceiptItem struct {
	ProductID  string
	LotNumber  string
	Quantity   int64
	UnitCost   decimal.Decimal
	ExpiryDate *time.Time
	Revalue    bool
}

// ReceiptInput entrada de mercancía a una bodega.
type ReceiptInput struct {
	WarehouseID string
	Reference   string // factura o remisión del proveedor
	Notes       string
	UserID      string
	Items       []ReceiptItem
}

// ReceiptResult documento creado y saldos resultantes por lote.
type ReceiptResult struct {
	DocumentID string
	Lots       []entity.LotBalance
}

// ReceiptUseCase registra entradas de inventario.
type ReceiptUseCase struct {
	*engine
}

// NewReceiptUseCase construye el caso de uso.
func NewReceiptUseCase(d Deps) *ReceiptUseCase {
	return &ReceiptUseCase{engine: newEngine(d)}
}

// Receive suma cada ítem a su lote (creándolo si es nuevo). Si algún ítem es inválido no se recibe nada.
func (uc *ReceiptUseCase) Receive(ctx context.Context, in ReceiptInput) (*ReceiptResult, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("entrada sin ítems: %w", domain.ErrInvalidInput)
	}
	if err := uc.requireWarehouse(ctx, in.WarehouseID); err != nil {
		return nil, err
	}
	items := make([]ReceiptItem, len(in.Items))
	for i, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, &domain.QuantityError{Field: fmt.Sprintf("items[%d].quantity", i), Value: it.Quantity}
		}
		if it.UnitCost.IsNegative() {
			return nil, fmt.Errorf("items[%d].unit_cost negativo: %w", i, domain.ErrInvalidInput)
		}
		it.LotNumber = entity.NormalizeLotNumber(it.LotNumber)
		if it.LotNumber == "" {
			return nil, fmt.Errorf("items[%d].lot_number requerido: %w", i, domain.ErrInvalidInput)
		}
		if err := uc.requireProduct(ctx, it.ProductID); err != nil {
			return nil, err
		}
		items[i] = it
	}

	docID := uc.newID()
	var result *ReceiptResult
	err := uc.execute(ctx, "receipt", func(repos Repos) error {
		ledger := uc.ledger(repos, in.UserID)
		doc := &entity.Document{
			ID:          docID,
			Kind:        entity.DocumentReceipt,
			WarehouseID: in.WarehouseID,
			Reference:   in.Reference,
			Notes:       in.Notes,
			CreatedBy:   in.UserID,
			CreatedAt:   ledger.now,
		}
		if err := repos.Documents.Create(ctx, doc); err != nil {
			return err
		}
		res := &ReceiptResult{DocumentID: docID}
		for _, it := range items {
			lot, err := ledger.credit(ctx, creditInput{
				Key:        entity.LotKey{ProductID: it.ProductID, WarehouseID: in.WarehouseID, LotNumber: it.LotNumber},
				Quantity:   it.Quantity,
				UnitCost:   it.UnitCost,
				ExpiryDate: it.ExpiryDate,
				Revalue:    it.Revalue,
				Kind:       entity.MovementReceipt,
				Reference:  docID,
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
