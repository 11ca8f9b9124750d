package inventory

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// Allocation porción de un lote asignada a una salida.
type Allocation struct {
	LotNumber  string
	Quantity   int64
	UnitCost   decimal.Decimal
	ExpiryDate *time.Time
}

// SortFEFO ordena lotes por vencimiento ascendente (sin vencimiento al final) y,
// a igual vencimiento, por orden de creación del lote.
func SortFEFO(lots []entity.LotBalance) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if entity.ExpiresBefore(a.ExpiryDate, b.ExpiryDate) {
			return true
		}
		if entity.ExpiresBefore(b.ExpiryDate, a.ExpiryDate) {
			return false
		}
		return a.Seq < b.Seq
	})
}

// AllocateFEFO reparte needed entre los lotes empezando por el que vence primero.
// Los lotes bloqueados o agotados no participan. Si el total disponible no alcanza
// devuelve InsufficientStockError sin asignaciones parciales.
func AllocateFEFO(productID, warehouseID string, lots []entity.LotBalance, needed int64) ([]Allocation, error) {
	if needed <= 0 {
		return nil, &domain.QuantityError{Field: "quantity", Value: needed}
	}
	candidates := make([]entity.LotBalance, 0, len(lots))
	var available int64
	for _, l := range lots {
		if l.Blocked || l.Quantity <= 0 {
			continue
		}
		candidates = append(candidates, l)
		available += l.Quantity
	}
	if available < needed {
		return nil, &domain.InsufficientStockError{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Requested:   needed,
			Available:   available,
		}
	}
	SortFEFO(candidates)

	out := make([]Allocation, 0, 2)
	remaining := needed
	for _, l := range candidates {
		if remaining == 0 {
			break
		}
		take := min(l.Quantity, remaining)
		out = append(out, Allocation{
			LotNumber:  l.LotNumber,
			Quantity:   take,
			UnitCost:   l.UnitCost,
			ExpiryDate: l.ExpiryDate,
		})
		remaining -= take
	}
	return out, nil
}
