package inventory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/dispensario-api/internal/application/inventory"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
	"github.com/jhoicas/dispensario-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	whMain   = "bodega-central"
	whNorth  = "dispensario-norte"
	prodP    = "acetaminofen-500"
	prodQ    = "losartan-50"
	testUser = "user-regente"
)

// clock avanza un segundo por lectura: cada operación queda con su propio instante.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 11, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type publishedEvent struct {
	Type string
	Data any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Data: data})
	return p.err
}

func (p *recordingPublisher) ofType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type recordingObserver struct {
	mu         sync.Mutex
	outcomes   map[string]int
	retries    int
	violations int
}

func (o *recordingObserver) OperationObserved(op, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[string]int{}
	}
	o.outcomes[op+"/"+outcome]++
}

func (o *recordingObserver) ContentionRetried(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries++
}

func (o *recordingObserver) IntegrityViolation(string, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.violations++
}

type fixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	observer  *recordingObserver
	deps      inventory.Deps

	receipts  *inventory.ReceiptUseCase
	dispenses *inventory.DispenseUseCase
	returns   *inventory.ReturnUseCase
	transfers *inventory.TransferUseCase
	pending   *inventory.PendingUseCase
	kardex    *inventory.KardexUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	cat := store.Catalog()
	cat.PutWarehouse(entity.Warehouse{ID: whMain, Name: "Bodega central", Active: true})
	cat.PutWarehouse(entity.Warehouse{ID: whNorth, Name: "Dispensario norte", Active: true})
	cat.PutWarehouse(entity.Warehouse{ID: "bodega-cerrada", Name: "Cerrada", Active: false})
	cat.PutProduct(entity.Product{ID: prodP, Code: "19943544-1", Name: "Acetaminofén 500 mg", Active: true})
	cat.PutProduct(entity.Product{ID: prodQ, Code: "20012345-2", Name: "Losartán 50 mg", Active: true})

	var seq int
	var seqMu sync.Mutex
	f := &fixture{store: store, publisher: &recordingPublisher{}, observer: &recordingObserver{}}
	f.deps = inventory.Deps{
		TxRunner:   store,
		Products:   cat,
		Warehouses: cat.Warehouses(),
		Publisher:  f.publisher,
		Observer:   f.observer,
		Retry:      inventory.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond},
		Now:        newClock().Now,
		NewID: func() string {
			seqMu.Lock()
			defer seqMu.Unlock()
			seq++
			return fmt.Sprintf("id-%04d", seq)
		},
	}
	f.receipts = inventory.NewReceiptUseCase(f.deps)
	f.dispenses = inventory.NewDispenseUseCase(f.deps)
	f.returns = inventory.NewReturnUseCase(f.deps)
	f.transfers = inventory.NewTransferUseCase(f.deps)
	f.pending = inventory.NewPendingUseCase(f.deps)
	f.kardex = inventory.NewKardexUseCase(f.deps)
	return f
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func (f *fixture) receive(t *testing.T, warehouseID, productID, lot string, qty int64, cost int64, expiry *time.Time) {
	t.Helper()
	_, err := f.receipts.Receive(context.Background(), inventory.ReceiptInput{
		WarehouseID: warehouseID,
		Reference:   "FAC-PROV-001",
		UserID:      testUser,
		Items: []inventory.ReceiptItem{{
			ProductID: productID, LotNumber: lot, Quantity: qty,
			UnitCost: decimal.NewFromInt(cost), ExpiryDate: expiry,
		}},
	})
	require.NoError(t, err, "la entrada de %s/%s debe registrarse", productID, lot)
}

func (f *fixture) qty(t *testing.T, warehouseID, productID, lot string) int64 {
	t.Helper()
	q, err := f.kardex.GetQuantity(context.Background(), entity.LotKey{ProductID: productID, WarehouseID: warehouseID, LotNumber: lot})
	require.NoError(t, err)
	return q
}

// requireBalanced verifica que el saldo de cada lote coincide con la suma del ledger.
func (f *fixture) requireBalanced(t *testing.T, warehouseID, productID string) {
	t.Helper()
	report, err := f.kardex.Verify(context.Background(), productID, warehouseID)
	require.NoError(t, err, "el ledger debe cuadrar con el Lot Store")
	require.Empty(t, report.Violations)
}
