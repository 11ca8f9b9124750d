package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/dispensario-api/internal/application/inventory"
	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

func openPending(t *testing.T, f *fixture, shortfall int64) *entity.PendingItem {
	t.Helper()
	p, err := f.pending.OpenOrIncrease(context.Background(), inventory.OpenPendingInput{
		PatientID: "p1", ProductID: prodP, WarehouseID: whMain, Shortfall: shortfall, Reason: "agotado",
	})
	require.NoError(t, err)
	return p
}

func TestPending_OverDeliveryLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, whMain, prodP, "L1", 20, 100, nil)
	p := openPending(t, f, 3)

	_, err := f.pending.Deliver(ctx, inventory.DeliverPendingInput{PendingItemID: p.ID, Quantity: 4})
	var od *domain.OverDeliveryError
	require.ErrorAs(t, err, &od)
	assert.Equal(t, int64(3), od.Pending)

	got, err := f.pending.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.PendingQty)
	assert.Equal(t, entity.PendingOpen, got.Status)
	assert.Equal(t, int64(20), f.qty(t, whMain, prodP, "L1"))
}

func TestPending_PartialThenFullDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, whMain, prodP, "L1", 20, 100, nil)
	p := openPending(t, f, 5)

	res, err := f.pending.Deliver(ctx, inventory.DeliverPendingInput{PendingItemID: p.ID, Quantity: 2, UserID: testUser})
	require.NoError(t, err)
	assert.Equal(t, entity.PendingPartial, res.Item.Status)
	assert.Equal(t, int64(5), res.Item.PendingQty+res.Item.DeliveredQty)

	res, err = f.pending.Deliver(ctx, inventory.DeliverPendingInput{PendingItemID: p.ID, Quantity: 3, UserID: testUser})
	require.NoError(t, err)
	assert.Equal(t, entity.PendingDelivered, res.Item.Status)
	require.NotNil(t, res.Item.ClosedAt)
	assert.Equal(t, int64(15), f.qty(t, whMain, prodP, "L1"))

	_, err = f.pending.Deliver(ctx, inventory.DeliverPendingInput{PendingItemID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "DELIVERED es terminal")
}

func TestPending_DeliverExplicitLotRequiresStockOnThatLot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, whMain, prodP, "L1", 1, 100, date(2025, 1, 1))
	f.receive(t, whMain, prodP, "L2", 10, 100, date(2026, 1, 1))
	p := openPending(t, f, 3)

	_, err := f.pending.Deliver(ctx, inventory.DeliverPendingInput{PendingItemID: p.ID, Quantity: 3, LotNumber: "L1"})
	var ins *domain.InsufficientStockError
	require.ErrorAs(t, err, &ins)
	assert.Equal(t, "L1", ins.LotNumber)
	assert.Equal(t, int64(1), ins.Available)

	res, err := f.pending.Deliver(ctx, inventory.DeliverPendingInput{PendingItemID: p.ID, Quantity: 3, LotNumber: "L2"})
	require.NoError(t, err)
	assert.Equal(t, "L2", res.Drawn[0].LotNumber)
	assert.Equal(t, int64(1), f.qty(t, whMain, prodP, "L1"), "override salta FEFO")
}

func TestPending_DeliverWithoutStock(t *testing.T) {
	f := newFixture(t)
	p := openPending(t, f, 2)
	_, err := f.pending.Deliver(context.Background(), inventory.DeliverPendingInput{PendingItemID: p.ID, Quantity: 2})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := f.pending.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.PendingQty, "el pendiente no cambia si el stock no alcanza")
}

func TestPending_NotifyAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := openPending(t, f, 2)

	notified, err := f.pending.Notify(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PendingNotified, notified.Status)
	assert.Equal(t, 1, notified.NotifyCount)

	events := f.publisher.ofType(inventory.EventPendingItemNotified)
	require.Len(t, events, 1)
	ev := events[0].Data.(inventory.PendingNotifiedEvent)
	assert.Equal(t, p.ID, ev.PendingItemID)
	assert.Equal(t, int64(2), ev.PendingQty)

	cancelled, err := f.pending.Cancel(ctx, p.ID, "paciente trasladado")
	require.NoError(t, err)
	assert.Equal(t, entity.PendingCancelled, cancelled.Status)
	assert.Equal(t, "paciente trasladado", cancelled.CancelReason)

	_, err = f.pending.Notify(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.pending.Cancel(ctx, p.ID, "otra vez")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Cancelado no cuenta como abierto: el siguiente faltante abre uno nuevo
	again := openPending(t, f, 1)
	assert.NotEqual(t, p.ID, again.ID)

	list, err := f.pending.ListByPatient(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPending_PublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = assert.AnError
	p := openPending(t, f, 1)

	_, err := f.pending.Notify(context.Background(), p.ID)
	require.NoError(t, err)
	got, err := f.pending.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PendingNotified, got.Status)
}

func TestPending_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.pending.Get(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.pending.Deliver(context.Background(), inventory.DeliverPendingInput{PendingItemID: "no-existe", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
