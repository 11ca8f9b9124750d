package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
	"github.com/jhoicas/dispensario-api/internal/domain/inventory"
)

func expiry(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func lot(number string, qty int64, exp *time.Time, seq int64) entity.LotBalance {
	return entity.LotBalance{
		ProductID: "P", WarehouseID: "W", LotNumber: number,
		Quantity: qty, UnitCost: decimal.NewFromInt(10), ExpiryDate: exp, Seq: seq,
	}
}

func TestAllocateFEFO_ExhaustsEarliestFirst(t *testing.T) {
	lots := []entity.LotBalance{
		lot("B", 10, expiry(2025, 6, 1), 1),
		lot("A", 5, expiry(2025, 1, 1), 2),
	}
	got, err := inventory.AllocateFEFO("P", "W", lots, 8)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].LotNumber)
	assert.Equal(t, int64(5), got[0].Quantity)
	assert.Equal(t, "B", got[1].LotNumber)
	assert.Equal(t, int64(3), got[1].Quantity)
}

func TestAllocateFEFO_NoExpirySortsLast(t *testing.T) {
	lots := []entity.LotBalance{
		lot("NUNCA", 100, nil, 1),
		lot("TARDE", 1, expiry(2030, 1, 1), 2),
	}
	got, err := inventory.AllocateFEFO("P", "W", lots, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "TARDE", got[0].LotNumber)
	assert.Equal(t, "NUNCA", got[1].LotNumber)
	assert.Equal(t, int64(1), got[1].Quantity)
}

func TestAllocateFEFO_TieBreaksByInsertionOrder(t *testing.T) {
	same := expiry(2025, 3, 1)
	lots := []entity.LotBalance{
		lot("SEGUNDO", 5, same, 7),
		lot("PRIMERO", 5, same, 3),
	}
	for i := 0; i < 5; i++ {
		got, err := inventory.AllocateFEFO("P", "W", lots, 6)
		require.NoError(t, err)
		assert.Equal(t, "PRIMERO", got[0].LotNumber, "a igual vencimiento gana el lote más antiguo")
		assert.Equal(t, "SEGUNDO", got[1].LotNumber)
	}
}

func TestAllocateFEFO_SkipsBlockedAndEmpty(t *testing.T) {
	blocked := lot("BLOQ", 50, expiry(2024, 1, 1), 1)
	blocked.Blocked = true
	lots := []entity.LotBalance{
		blocked,
		lot("VACIO", 0, expiry(2024, 2, 1), 2),
		lot("OK", 4, expiry(2025, 1, 1), 3),
	}
	got, err := inventory.AllocateFEFO("P", "W", lots, 4)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "OK", got[0].LotNumber)
}

func TestAllocateFEFO_Insufficient(t *testing.T) {
	lots := []entity.LotBalance{lot("A", 2, nil, 1), lot("B", 3, nil, 2)}
	got, err := inventory.AllocateFEFO("P", "W", lots, 6)
	assert.Nil(t, got, "sin asignaciones parciales")
	var ins *domain.InsufficientStockError
	require.ErrorAs(t, err, &ins)
	assert.Equal(t, int64(6), ins.Requested)
	assert.Equal(t, int64(5), ins.Available)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestAllocateFEFO_InvalidQuantity(t *testing.T) {
	for _, q := range []int64{0, -3} {
		_, err := inventory.AllocateFEFO("P", "W", []entity.LotBalance{lot("A", 2, nil, 1)}, q)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	}
}

func TestAllocateFEFO_DoesNotReorderInput(t *testing.T) {
	lots := []entity.LotBalance{lot("B", 1, expiry(2026, 1, 1), 1), lot("A", 1, expiry(2025, 1, 1), 2)}
	_, err := inventory.AllocateFEFO("P", "W", lots, 1)
	require.NoError(t, err)
	assert.Equal(t, "B", lots[0].LotNumber)
}

func TestWeightedAverageCost(t *testing.T) {
	cases := []struct {
		name    string
		balance int64
		current string
		inQty   int64
		inCost  string
		want    string
	}{
		{"primera entrada", 0, "0", 10, "100", "100"},
		{"promedio simple", 10, "100", 10, "200", "150"},
		{"entrada en cero", 3, "1", 0, "0", "1"},
		{"fracción", 1, "1", 2, "2", "1.6667"},
		{"sin saldo", 0, "5", 0, "5", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := inventory.WeightedAverageCost(tc.balance, decimal.RequireFromString(tc.current), tc.inQty, decimal.RequireFromString(tc.inCost))
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "esperado %s, obtenido %s", tc.want, got)
		})
	}
}
