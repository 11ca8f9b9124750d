package inventory

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
	dominv "github.com/jhoicas/dispensario-api/internal/domain/inventory"
)

// KardexQuery filtro del kardex. From/To acotan lo emitido; el saldo siempre se calcula desde el inicio del log.
type KardexQuery struct {
	ProductID   string
	WarehouseID string
	LotNumber   string
	From        *time.Time
	To          *time.Time
}

// VerifyReport resultado de conciliar el ledger contra el Lot Store.
type VerifyReport struct {
	ProductID   string
	WarehouseID string
	CheckedLots int
	Violations  []domain.IntegrityError
}

// IntegrityEvent payload publicado por cada lote bloqueado.
type IntegrityEvent struct {
	ProductID   string    `json:"product_id"`
	WarehouseID string    `json:"warehouse_id"`
	LotNumber   string    `json:"lot_number"`
	LedgerQty   int64     `json:"ledger_qty"`
	StoredQty   int64     `json:"stored_qty"`
	DetectedAt  time.Time `json:"detected_at"`
}

// KardexUseCase lecturas del inventario: kardex, lotes y verificación de integridad.
type KardexUseCase struct {
	*engine
}

// NewKardexUseCase construye el caso de uso.
func NewKardexUseCase(d Deps) *KardexUseCase {
	return &KardexUseCase{engine: newEngine(d)}
}

// Reconstruct lee en un snapshot los movimientos hasta q.To (la lectura es completa, no streaming) y
// devuelve una secuencia perezosa que acumula el saldo al recorrerla. Puede recorrerse varias veces y
// produce siempre lo mismo.
func (uc *KardexUseCase) Reconstruct(ctx context.Context, q KardexQuery) (iter.Seq[entity.KardexEntry], error) {
	if q.ProductID == "" || q.WarehouseID == "" {
		return nil, fmt.Errorf("product_id y warehouse_id requeridos: %w", domain.ErrInvalidInput)
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, fmt.Errorf("rango de fechas invertido: %w", domain.ErrInvalidInput)
	}
	lotFilter := entity.NormalizeLotNumber(q.LotNumber)

	var records []entity.MovementRecord
	err := uc.view(ctx, "kardex", func(repos Repos) error {
		var err error
		records, err = repos.Movements.ListByProductWarehouse(ctx, q.ProductID, q.WarehouseID, q.To)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Before(&records[j]) })

	return func(yield func(entity.KardexEntry) bool) {
		var balance int64
		avg := decimal.Zero
		lots := make(map[string]int64)
		for i := range records {
			r := &records[i]
			if r.QuantityIn > 0 {
				avg = dominv.WeightedAverageCost(balance, avg, r.QuantityIn, r.UnitCost)
			}
			balance += r.Delta()
			lots[r.LotNumber] += r.Delta()

			if q.To != nil && r.CreatedAt.After(*q.To) {
				continue
			}
			if q.From != nil && r.CreatedAt.Before(*q.From) {
				continue
			}
			if lotFilter != "" && r.LotNumber != lotFilter {
				continue
			}
			entry := entity.KardexEntry{
				Date:        r.CreatedAt,
				MovementID:  r.ID,
				Kind:        r.Kind,
				LotNumber:   r.LotNumber,
				ReferenceID: r.ReferenceID,
				QuantityIn:  r.QuantityIn,
				QuantityOut: r.QuantityOut,
				Balance:     balance,
				LotBalance:  lots[r.LotNumber],
				UnitCost:    r.UnitCost,
				AverageCost: avg,
			}
			if !yield(entry) {
				return
			}
		}
	}, nil
}

// lockedLedger bloquea los lotes y solo después suma el ledger: con los bloqueos tomados ningún
// escritor puede confirmar un movimiento entre ambas lecturas. Un lote creado en paralelo aparece
// en las sumas sin estar bloqueado; se bloquea y se vuelve a sumar.
func lockedLedger(ctx context.Context, repos Repos, productID, warehouseID string) ([]entity.LotBalance, map[string]int64, error) {
	lots, err := repos.Lots.ListForUpdate(ctx, productID, warehouseID)
	if err != nil {
		return nil, nil, err
	}
	locked := make(map[string]bool, len(lots))
	for _, l := range lots {
		locked[l.LotNumber] = true
	}
	for {
		sums, err := repos.Movements.SumByLot(ctx, productID, warehouseID)
		if err != nil {
			return nil, nil, err
		}
		added := false
		for lotNumber := range sums {
			if locked[lotNumber] {
				continue
			}
			locked[lotNumber] = true
			lot, err := repos.Lots.GetForUpdate(ctx, entity.LotKey{ProductID: productID, WarehouseID: warehouseID, LotNumber: lotNumber})
			if err != nil {
				return nil, nil, err
			}
			if lot != nil {
				lots = append(lots, *lot)
				added = true
			}
		}
		if !added {
			return lots, sums, nil
		}
	}
}

// ListLots lotes de (producto, bodega) en orden FEFO.
func (uc *KardexUseCase) ListLots(ctx context.Context, productID, warehouseID string) ([]entity.LotBalance, error) {
	if productID == "" || warehouseID == "" {
		return nil, fmt.Errorf("product_id y warehouse_id requeridos: %w", domain.ErrInvalidInput)
	}
	var lots []entity.LotBalance
	err := uc.view(ctx, "list_lots", func(repos Repos) error {
		var err error
		lots, err = repos.Lots.List(ctx, productID, warehouseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	dominv.SortFEFO(lots)
	return lots, nil
}

// GetQuantity saldo del lote; 0 si no existe.
func (uc *KardexUseCase) GetQuantity(ctx context.Context, key entity.LotKey) (int64, error) {
	key.LotNumber = entity.NormalizeLotNumber(key.LotNumber)
	var qty int64
	err := uc.view(ctx, "get_quantity", func(repos Repos) error {
		lot, err := repos.Lots.Get(ctx, key)
		if err != nil {
			return err
		}
		if lot != nil {
			qty = lot.Quantity
		}
		return nil
	})
	return qty, err
}

// Verify compara Σ entradas − Σ salidas del ledger con el saldo de cada lote. Los lotes que no
// cuadran quedan bloqueados (no se corrigen) y se devuelve el primer IntegrityError junto al reporte.
func (uc *KardexUseCase) Verify(ctx context.Context, productID, warehouseID string) (*VerifyReport, error) {
	if productID == "" || warehouseID == "" {
		return nil, fmt.Errorf("product_id y warehouse_id requeridos: %w", domain.ErrInvalidInput)
	}
	var report *VerifyReport
	err := uc.execute(ctx, "integrity_verify", func(repos Repos) error {
		rep := &VerifyReport{ProductID: productID, WarehouseID: warehouseID}
		lots, sums, err := lockedLedger(ctx, repos, productID, warehouseID)
		if err != nil {
			return err
		}
		now := uc.now()
		seen := make(map[string]bool, len(lots))
		for i := range lots {
			lot := &lots[i]
			seen[lot.LotNumber] = true
			rep.CheckedLots++
			ledgerQty := sums[lot.LotNumber]
			if ledgerQty == lot.Quantity {
				continue
			}
			rep.Violations = append(rep.Violations, domain.IntegrityError{
				ProductID: productID, WarehouseID: warehouseID, LotNumber: lot.LotNumber,
				LedgerQty: ledgerQty, StoredQty: lot.Quantity,
			})
			if !lot.Blocked {
				lot.Blocked = true
				lot.UpdatedAt = now
				if err := repos.Lots.Update(ctx, lot); err != nil {
					return err
				}
			}
		}
		// Movimientos de un lote que ya no existe en el Lot Store: se crea bloqueado para frenar escrituras.
		orphans := make([]string, 0)
		for lotNumber, qty := range sums {
			if !seen[lotNumber] && qty != 0 {
				orphans = append(orphans, lotNumber)
			}
		}
		sort.Strings(orphans)
		for _, lotNumber := range orphans {
			rep.CheckedLots++
			rep.Violations = append(rep.Violations, domain.IntegrityError{
				ProductID: productID, WarehouseID: warehouseID, LotNumber: lotNumber,
				LedgerQty: sums[lotNumber],
			})
			if err := repos.Lots.Insert(ctx, &entity.LotBalance{
				ProductID: productID, WarehouseID: warehouseID, LotNumber: lotNumber,
				Blocked: true, CreatedAt: now, UpdatedAt: now,
			}); err != nil {
				return err
			}
		}
		report = rep
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(report.Violations) == 0 {
		return report, nil
	}

	now := uc.now()
	for _, v := range report.Violations {
		uc.log.Error().
			Str("product_id", v.ProductID).
			Str("warehouse_id", v.WarehouseID).
			Str("lot_number", v.LotNumber).
			Int64("ledger_qty", v.LedgerQty).
			Int64("stored_qty", v.StoredQty).
			Msg("violación de integridad: lote bloqueado hasta conciliación manual")
		if uc.observer != nil {
			uc.observer.IntegrityViolation(v.ProductID, v.WarehouseID)
		}
		uc.publish(ctx, EventIntegrityViolation, IntegrityEvent{
			ProductID:   v.ProductID,
			WarehouseID: v.WarehouseID,
			LotNumber:   v.LotNumber,
			LedgerQty:   v.LedgerQty,
			StoredQty:   v.StoredQty,
			DetectedAt:  now,
		})
	}
	first := report.Violations[0]
	return report, &first
}
