package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
	dominv "github.com/jhoicas/dispensario-api/internal/domain/inventory"
)

// DrawnLot cantidad descontada de un lote concreto.
type DrawnLot struct {
	ProductID  string          `json:"product_id"`
	LotNumber  string          `json:"lot_number"`
	Quantity   int64           `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
}

// lotLedger aplica ajustes al Lot Store y escribe el MovementRecord en la misma transacción.
// Es el único camino por el que cambia una cantidad.
type lotLedger struct {
	repos  Repos
	now    time.Time
	userID string
	newID  func() string
}

func (e *engine) ledger(repos Repos, userID string) *lotLedger {
	return &lotLedger{repos: repos, now: e.now(), userID: userID, newID: e.newID}
}

// creditInput entrada de stock a un lote.
type creditInput struct {
	Key        entity.LotKey
	Quantity   int64
	UnitCost   decimal.Decimal // obligatorio al crear el lote
	ExpiryDate *time.Time
	Revalue    bool // sobrescribe el costo de un lote existente
	Kind       entity.MovementKind
	Reference  string
}

// credit suma cantidad; crea el lote si no existía.
func (l *lotLedger) credit(ctx context.Context, in creditInput) (*entity.LotBalance, error) {
	if in.Quantity <= 0 {
		return nil, &domain.QuantityError{Field: "quantity", Value: in.Quantity}
	}
	if in.UnitCost.IsNegative() {
		return nil, fmt.Errorf("costo unitario negativo: %w", domain.ErrInvalidInput)
	}
	lot, err := l.repos.Lots.GetForUpdate(ctx, in.Key)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		lot = &entity.LotBalance{
			ProductID:   in.Key.ProductID,
			WarehouseID: in.Key.WarehouseID,
			LotNumber:   in.Key.LotNumber,
			Quantity:    in.Quantity,
			UnitCost:    in.UnitCost,
			ExpiryDate:  in.ExpiryDate,
			CreatedAt:   l.now,
			UpdatedAt:   l.now,
		}
		if err := l.repos.Lots.Insert(ctx, lot); err != nil {
			return nil, err
		}
	} else {
		if lot.Blocked {
			return nil, blockedLotError(lot)
		}
		// Un mismo lote no cambia de vencimiento: el orden FEFO depende de él.
		if in.Kind == entity.MovementReceipt && in.ExpiryDate != nil && lot.ExpiryDate != nil &&
			!entity.SameExpiry(in.ExpiryDate, lot.ExpiryDate) {
			return nil, fmt.Errorf("lote %s ya registrado con vencimiento %s, se recibió %s: %w",
				lot.LotNumber, lot.ExpiryDate.Format(time.DateOnly), in.ExpiryDate.Format(time.DateOnly), domain.ErrInvalidInput)
		}
		lot.Quantity += in.Quantity
		if in.Revalue {
			lot.UnitCost = in.UnitCost
		}
		if lot.ExpiryDate == nil && in.ExpiryDate != nil {
			lot.ExpiryDate = in.ExpiryDate
		}
		lot.UpdatedAt = l.now
		if err := l.repos.Lots.Update(ctx, lot); err != nil {
			return nil, err
		}
	}
	return lot, l.append(ctx, lot, in.Kind, in.Quantity, 0, in.Reference)
}

// debit resta cantidad de un lote concreto; nunca deja saldo negativo.
func (l *lotLedger) debit(ctx context.Context, key entity.LotKey, qty int64, kind entity.MovementKind, ref string) (*entity.LotBalance, error) {
	if qty <= 0 {
		return nil, &domain.QuantityError{Field: "quantity", Value: qty}
	}
	lot, err := l.repos.Lots.GetForUpdate(ctx, key)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, &domain.InsufficientStockError{
			ProductID: key.ProductID, WarehouseID: key.WarehouseID, LotNumber: key.LotNumber,
			Requested: qty,
		}
	}
	if lot.Blocked {
		return nil, blockedLotError(lot)
	}
	if lot.Quantity < qty {
		return nil, &domain.InsufficientStockError{
			ProductID: key.ProductID, WarehouseID: key.WarehouseID, LotNumber: key.LotNumber,
			Requested: qty, Available: lot.Quantity,
		}
	}
	lot.Quantity -= qty
	lot.UpdatedAt = l.now
	if err := l.repos.Lots.Update(ctx, lot); err != nil {
		return nil, err
	}
	return lot, l.append(ctx, lot, kind, 0, qty, ref)
}

// draw descuenta qty de (producto, bodega): por FEFO si lotNumber es vacío,
// o del lote indicado (override del operador). Todo o nada.
func (l *lotLedger) draw(ctx context.Context, productID, warehouseID, lotNumber string, qty int64, kind entity.MovementKind, ref string) ([]DrawnLot, error) {
	if qty <= 0 {
		return nil, &domain.QuantityError{Field: "quantity", Value: qty}
	}
	var allocations []dominv.Allocation
	if lotNumber != "" {
		allocations = []dominv.Allocation{{LotNumber: lotNumber, Quantity: qty}}
	} else {
		lots, err := l.repos.Lots.ListForUpdate(ctx, productID, warehouseID)
		if err != nil {
			return nil, err
		}
		allocations, err = dominv.AllocateFEFO(productID, warehouseID, lots, qty)
		if err != nil {
			return nil, err
		}
	}
	drawn := make([]DrawnLot, 0, len(allocations))
	for _, a := range allocations {
		key := entity.LotKey{ProductID: productID, WarehouseID: warehouseID, LotNumber: a.LotNumber}
		lot, err := l.debit(ctx, key, a.Quantity, kind, ref)
		if err != nil {
			return nil, err
		}
		drawn = append(drawn, DrawnLot{
			ProductID:  productID,
			LotNumber:  lot.LotNumber,
			Quantity:   a.Quantity,
			UnitCost:   lot.UnitCost,
			ExpiryDate: lot.ExpiryDate,
		})
	}
	return drawn, nil
}

func (l *lotLedger) append(ctx context.Context, lot *entity.LotBalance, kind entity.MovementKind, in, out int64, ref string) error {
	mov := &entity.MovementRecord{
		ID:          l.newID(),
		ProductID:   lot.ProductID,
		WarehouseID: lot.WarehouseID,
		LotNumber:   lot.LotNumber,
		Kind:        kind,
		QuantityIn:  in,
		QuantityOut: out,
		ReferenceID: ref,
		UnitCost:    lot.UnitCost,
		CreatedAt:   l.now,
		CreatedBy:   l.userID,
	}
	if err := l.repos.Movements.Append(ctx, mov); err != nil {
		return fmt.Errorf("registrar movimiento %s: %w", kind, err)
	}
	return nil
}

func blockedLotError(lot *entity.LotBalance) error {
	return &domain.IntegrityError{
		ProductID:   lot.ProductID,
		WarehouseID: lot.WarehouseID,
		LotNumber:   lot.LotNumber,
		StoredQty:   lot.Quantity,
		Blocked:     true,
	}
}
