package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/dispensario-api/internal/application/inventory"
	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// Escenario completo: entrada, dispensación total, dispensación parcial con pendiente
// y entrega posterior del pendiente desde el lote que vence primero.
func TestDispense_EndToEndScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.receive(t, whMain, prodP, "L1", 20, 100, date(2025, 3, 1))
	assert.Equal(t, int64(20), f.qty(t, whMain, prodP, "L1"))

	resX, err := f.dispenses.Dispense(ctx, inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "paciente-x", PrescriptionRef: "RX-1", UserID: testUser,
		Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 15, QuantityToDeliver: 15}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), f.qty(t, whMain, prodP, "L1"))
	assert.Nil(t, resX.Lines[0].PendingItem, "entrega completa no abre pendiente")
	itemsX, err := f.pending.ListByPatient(ctx, "paciente-x")
	require.NoError(t, err)
	assert.Empty(t, itemsX)

	resY, err := f.dispenses.Dispense(ctx, inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "paciente-y", PrescriptionRef: "RX-2", UserID: testUser,
		Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 10, QuantityToDeliver: 5, Reason: "sin existencias"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.qty(t, whMain, prodP, "L1"))
	pend := resY.Lines[0].PendingItem
	require.NotNil(t, pend)
	assert.Equal(t, int64(5), pend.PendingQty)
	assert.Equal(t, int64(5), pend.DeliveredQty)
	assert.Equal(t, entity.PendingPartial, pend.Status)

	f.receive(t, whMain, prodP, "L2", 5, 90, date(2025, 2, 1))

	delivered, err := f.pending.Deliver(ctx, inventory.DeliverPendingInput{PendingItemID: pend.ID, Quantity: 5, UserID: testUser})
	require.NoError(t, err)
	require.Len(t, delivered.Drawn, 1)
	assert.Equal(t, "L2", delivered.Drawn[0].LotNumber)
	assert.Equal(t, int64(5), delivered.Drawn[0].Quantity)
	assert.Equal(t, entity.PendingDelivered, delivered.Item.Status)
	assert.Equal(t, int64(0), delivered.Item.PendingQty)
	assert.Equal(t, int64(10), delivered.Item.PendingQty+delivered.Item.DeliveredQty, "pendiente + entregado constante")
	assert.Equal(t, int64(0), f.qty(t, whMain, prodP, "L2"))

	f.requireBalanced(t, whMain, prodP)
}

func TestDispense_FEFOAcrossLots(t *testing.T) {
	f := newFixture(t)
	f.receive(t, whMain, prodP, "B", 10, 100, date(2025, 6, 1))
	f.receive(t, whMain, prodP, "A", 5, 100, date(2025, 1, 1))
	f.receive(t, whMain, prodP, "SIN-VENC", 50, 100, nil)

	res, err := f.dispenses.Dispense(context.Background(), inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "p1", UserID: testUser,
		Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 8, QuantityToDeliver: 8}},
	})
	require.NoError(t, err)
	drawn := res.Lines[0].Drawn
	require.Len(t, drawn, 2)
	assert.Equal(t, "A", drawn[0].LotNumber)
	assert.Equal(t, int64(5), drawn[0].Quantity)
	assert.Equal(t, "B", drawn[1].LotNumber)
	assert.Equal(t, int64(3), drawn[1].Quantity)
	assert.Equal(t, int64(50), f.qty(t, whMain, prodP, "SIN-VENC"), "lote sin vencimiento se usa al final")
}

func TestDispense_InsufficientStockIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.receive(t, whMain, prodP, "L1", 10, 100, date(2025, 3, 1))
	f.receive(t, whMain, prodQ, "Q1", 2, 100, date(2025, 3, 1))

	_, err := f.dispenses.Dispense(context.Background(), inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "p1", UserID: testUser,
		Items: []inventory.DispenseItem{
			{ProductID: prodP, QuantityPrescribed: 4, QuantityToDeliver: 4},
			{ProductID: prodQ, QuantityPrescribed: 5, QuantityToDeliver: 5},
		},
	})
	require.Error(t, err)
	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient), "debe ser InsufficientStockError, fue %v", err)
	assert.Equal(t, int64(5), insufficient.Requested)
	assert.Equal(t, int64(2), insufficient.Available)

	assert.Equal(t, int64(10), f.qty(t, whMain, prodP, "L1"), "la primera línea no debe quedar aplicada")
	assert.Equal(t, int64(2), f.qty(t, whMain, prodQ, "Q1"))
	f.requireBalanced(t, whMain, prodP)
	assert.Equal(t, 1, f.observer.outcomes["dispense/rejected"])
}

func TestDispense_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := []struct {
		name string
		in   inventory.DispenseInput
		want error
	}{
		{
			name: "entrega mayor que lo formulado",
			in: inventory.DispenseInput{WarehouseID: whMain, PatientID: "p1",
				Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 2, QuantityToDeliver: 3}}},
			want: domain.ErrInvalidQuantity,
		},
		{
			name: "formulado en cero",
			in: inventory.DispenseInput{WarehouseID: whMain, PatientID: "p1",
				Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 0, QuantityToDeliver: 0}}},
			want: domain.ErrInvalidQuantity,
		},
		{
			name: "sin paciente",
			in: inventory.DispenseInput{WarehouseID: whMain,
				Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 1, QuantityToDeliver: 1}}},
			want: domain.ErrInvalidInput,
		},
		{
			name: "bodega inactiva",
			in: inventory.DispenseInput{WarehouseID: "bodega-cerrada", PatientID: "p1",
				Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 1, QuantityToDeliver: 1}}},
			want: domain.ErrNotFound,
		},
		{
			name: "producto desconocido",
			in: inventory.DispenseInput{WarehouseID: whMain, PatientID: "p1",
				Items: []inventory.DispenseItem{{ProductID: "no-existe", QuantityPrescribed: 1, QuantityToDeliver: 1}}},
			want: domain.ErrNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.dispenses.Dispense(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDispense_ZeroDeliveryOpensPendingOnly(t *testing.T) {
	f := newFixture(t)
	res, err := f.dispenses.Dispense(context.Background(), inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "p1", UserID: testUser,
		Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 7, QuantityToDeliver: 0, Reason: "agotado"}},
	})
	require.NoError(t, err)
	p := res.Lines[0].PendingItem
	require.NotNil(t, p)
	assert.Equal(t, entity.PendingOpen, p.Status)
	assert.Equal(t, int64(7), p.PendingQty)
	assert.Equal(t, "agotado", p.Reason)
}

func TestDispense_ShortfallIncreasesOpenPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, whMain, prodP, "L1", 3, 100, date(2025, 3, 1))

	first, err := f.dispenses.Dispense(ctx, inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "p1", UserID: testUser,
		Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 5, QuantityToDeliver: 3}},
	})
	require.NoError(t, err)
	second, err := f.dispenses.Dispense(ctx, inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "p1", UserID: testUser,
		Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 4, QuantityToDeliver: 0}},
	})
	require.NoError(t, err)

	assert.Equal(t, first.Lines[0].PendingItem.ID, second.Lines[0].PendingItem.ID, "se reutiliza el pendiente abierto")
	p := second.Lines[0].PendingItem
	assert.Equal(t, int64(6), p.PendingQty)
	assert.Equal(t, int64(3), p.DeliveredQty)
	assert.Equal(t, int64(9), p.PrescribedQty)
	assert.Equal(t, entity.PendingPartial, p.Status)
}

func TestDispense_LotOverride(t *testing.T) {
	f := newFixture(t)
	f.receive(t, whMain, prodP, "VIEJO", 5, 100, date(2025, 1, 1))
	f.receive(t, whMain, prodP, "NUEVO", 5, 100, date(2026, 1, 1))

	res, err := f.dispenses.Dispense(context.Background(), inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "p1", UserID: testUser,
		Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 2, QuantityToDeliver: 2, LotNumber: " nuevo "}},
	})
	require.NoError(t, err)
	assert.Equal(t, "NUEVO", res.Lines[0].Drawn[0].LotNumber)
	assert.Equal(t, int64(5), f.qty(t, whMain, prodP, "VIEJO"))
	assert.Equal(t, int64(3), f.qty(t, whMain, prodP, "NUEVO"))
}

func TestDispense_RedeemsPendingItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open, err := f.pending.OpenOrIncrease(ctx, inventory.OpenPendingInput{
		PatientID: "p1", ProductID: prodP, WarehouseID: whMain, Shortfall: 4, Reason: "agotado",
	})
	require.NoError(t, err)
	f.receive(t, whMain, prodP, "L1", 10, 100, date(2025, 3, 1))
	f.receive(t, whMain, prodQ, "Q1", 10, 50, date(2025, 3, 1))

	_, err = f.dispenses.Dispense(ctx, inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "p1", UserID: testUser,
		Items: []inventory.DispenseItem{{PendingItemID: open.ID, ProductID: prodQ, QuantityToDeliver: 2}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "el producto de la línea debe coincidir con el del pendiente")
	assert.Equal(t, int64(10), f.qty(t, whMain, prodP, "L1"))
	assert.Equal(t, int64(10), f.qty(t, whMain, prodQ, "Q1"))

	res, err := f.dispenses.Dispense(ctx, inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "p1", UserID: testUser,
		Items: []inventory.DispenseItem{{PendingItemID: open.ID, ProductID: prodP, QuantityToDeliver: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PendingDelivered, res.Lines[0].PendingItem.Status)
	assert.Equal(t, int64(6), f.qty(t, whMain, prodP, "L1"))

	seq, err := f.kardex.Reconstruct(ctx, inventory.KardexQuery{ProductID: prodP, WarehouseID: whMain})
	require.NoError(t, err)
	var kinds []entity.MovementKind
	for e := range seq {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []entity.MovementKind{entity.MovementReceipt, entity.MovementPendingDelivery}, kinds)

	_, err = f.dispenses.Dispense(ctx, inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "otro", UserID: testUser,
		Items: []inventory.DispenseItem{{PendingItemID: open.ID, QuantityToDeliver: 1}},
	})
	assert.Error(t, err, "un pendiente no se redime desde otro paciente")
}

func TestDispense_PublishesEvent(t *testing.T) {
	f := newFixture(t)
	f.receive(t, whMain, prodP, "L1", 1, 100, nil)
	_, err := f.dispenses.Dispense(context.Background(), inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "p1", PrescriptionRef: "RX-9", UserID: testUser,
		Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 2, QuantityToDeliver: 1}},
	})
	require.NoError(t, err)
	events := f.publisher.ofType(inventory.EventDispensationRegistered)
	require.Len(t, events, 1)
	ev := events[0].Data.(inventory.DispensationEvent)
	assert.Equal(t, "RX-9", ev.PrescriptionRef)
	assert.Len(t, ev.PendingItemIDs, 1)
}

// Veinte dispensaciones concurrentes de una unidad contra diez unidades: exactamente diez ganan.
func TestDispense_ConcurrentNeverOverdraws(t *testing.T) {
	f := newFixture(t)
	f.receive(t, whMain, prodP, "L1", 10, 100, date(2025, 3, 1))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.dispenses.Dispense(context.Background(), inventory.DispenseInput{
				WarehouseID: whMain, PatientID: "p-concurrente", UserID: testUser,
				Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 1, QuantityToDeliver: 1}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			if errors.Is(err, domain.ErrInsufficientStock) {
				fail++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 10, fail)
	assert.Equal(t, int64(0), f.qty(t, whMain, prodP, "L1"))
	f.requireBalanced(t, whMain, prodP)
}
