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

func createTransfer(t *testing.T, f *fixture, items ...entity.TransferItem) *entity.Transfer {
	t.Helper()
	tr, err := f.transfers.Create(context.Background(), inventory.CreateTransferInput{
		FromWarehouseID: whMain, ToWarehouseID: whNorth, UserID: testUser, Items: items,
	})
	require.NoError(t, err)
	require.Equal(t, entity.TransferPending, tr.Status)
	return tr
}

func TestTransfer_SendReceiveConservesQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, whMain, prodP, "A", 5, 100, date(2025, 1, 1))
	f.receive(t, whMain, prodP, "B", 10, 120, date(2025, 6, 1))

	tr := createTransfer(t, f, entity.TransferItem{ProductID: prodP, Quantity: 8})
	assert.Equal(t, int64(5), f.qty(t, whMain, prodP, "A"), "crear no mueve stock")

	sent, err := f.transfers.Send(ctx, tr.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferInTransit, sent.Status)
	require.NotNil(t, sent.SentAt)
	require.Len(t, sent.Lines, 2)
	assert.Equal(t, int64(0), f.qty(t, whMain, prodP, "A"))
	assert.Equal(t, int64(7), f.qty(t, whMain, prodP, "B"))
	assert.Equal(t, int64(0), f.qty(t, whNorth, prodP, "A"), "en tránsito no es de ninguna bodega")

	received, err := f.transfers.Receive(ctx, tr.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferReceived, received.Status)
	assert.Equal(t, int64(5), f.qty(t, whNorth, prodP, "A"))
	assert.Equal(t, int64(3), f.qty(t, whNorth, prodP, "B"))

	lots, err := f.kardex.ListLots(ctx, prodP, whNorth)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, "A", lots[0].LotNumber, "el lote conserva su vencimiento en destino")
	require.NotNil(t, lots[0].ExpiryDate)
	assert.True(t, lots[0].ExpiryDate.Equal(*date(2025, 1, 1)))

	f.requireBalanced(t, whMain, prodP)
	f.requireBalanced(t, whNorth, prodP)

	events := f.publisher.ofType(inventory.EventTransferStatusChanged)
	require.Len(t, events, 3)
	last := events[2].Data.(inventory.TransferEvent)
	assert.Equal(t, "IN_TRANSIT", last.From)
	assert.Equal(t, "RECEIVED", last.Status)
}

func TestTransfer_CancelInTransitRestoresOrigin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, whMain, prodP, "A", 5, 100, date(2025, 1, 1))
	f.receive(t, whMain, prodQ, "Q1", 4, 100, nil)

	tr := createTransfer(t, f,
		entity.TransferItem{ProductID: prodP, LotNumber: "A", Quantity: 5},
		entity.TransferItem{ProductID: prodQ, Quantity: 4},
	)
	_, err := f.transfers.Send(ctx, tr.ID, testUser)
	require.NoError(t, err)

	cancelled, err := f.transfers.Cancel(ctx, tr.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, int64(5), f.qty(t, whMain, prodP, "A"))
	assert.Equal(t, int64(4), f.qty(t, whMain, prodQ, "Q1"))
	assert.Equal(t, int64(0), f.qty(t, whNorth, prodP, "A"))
	f.requireBalanced(t, whMain, prodP)
	f.requireBalanced(t, whMain, prodQ)
}

func TestTransfer_CancelPendingHasNoStockEffect(t *testing.T) {
	f := newFixture(t)
	f.receive(t, whMain, prodP, "A", 5, 100, nil)
	tr := createTransfer(t, f, entity.TransferItem{ProductID: prodP, Quantity: 2})

	_, err := f.transfers.Cancel(context.Background(), tr.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, int64(5), f.qty(t, whMain, prodP, "A"))

	seq, err := f.kardex.Reconstruct(context.Background(), inventory.KardexQuery{ProductID: prodP, WarehouseID: whMain})
	require.NoError(t, err)
	n := 0
	for range seq {
		n++
	}
	assert.Equal(t, 1, n, "solo la entrada inicial")
}

func TestTransfer_SendFailsWholeWhenAnyItemShort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, whMain, prodP, "A", 5, 100, nil)
	f.receive(t, whMain, prodQ, "Q1", 1, 100, nil)

	tr := createTransfer(t, f,
		entity.TransferItem{ProductID: prodP, Quantity: 5},
		entity.TransferItem{ProductID: prodQ, Quantity: 2},
	)
	_, err := f.transfers.Send(ctx, tr.ID, testUser)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, int64(5), f.qty(t, whMain, prodP, "A"), "no hay envío parcial")
	got, err := f.transfers.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferPending, got.Status)
	assert.Empty(t, got.Lines)
}

func TestTransfer_InvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, whMain, prodP, "A", 5, 100, nil)
	tr := createTransfer(t, f, entity.TransferItem{ProductID: prodP, Quantity: 1})

	_, err := f.transfers.Receive(ctx, tr.ID, testUser)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "no se recibe lo que no se envió")

	_, err = f.transfers.Send(ctx, tr.ID, testUser)
	require.NoError(t, err)
	_, err = f.transfers.Send(ctx, tr.ID, testUser)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.transfers.Receive(ctx, tr.ID, testUser)
	require.NoError(t, err)
	_, err = f.transfers.Cancel(ctx, tr.ID, testUser)
	var te *domain.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "RECEIVED", te.From)
	assert.Equal(t, "CANCEL", te.Action)

	_, err = f.transfers.Send(ctx, "no-existe", testUser)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransfer_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.transfers.Create(ctx, inventory.CreateTransferInput{
		FromWarehouseID: whMain, ToWarehouseID: whMain,
		Items: []entity.TransferItem{{ProductID: prodP, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.transfers.Create(ctx, inventory.CreateTransferInput{
		FromWarehouseID: whMain, ToWarehouseID: whNorth,
		Items: []entity.TransferItem{{ProductID: prodP, Quantity: 0}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.transfers.Create(ctx, inventory.CreateTransferInput{
		FromWarehouseID: whMain, ToWarehouseID: "bodega-cerrada",
		Items: []entity.TransferItem{{ProductID: prodP, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
