package entity_test

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// Una salida que esperó el bloqueo del lote lleva un reloj anterior a la entrada que la financió;
// el orden del ledger es el de inserción.
func TestMovementRecord_OrderFollowsSeq(t *testing.T) {
	t0 := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	records := []entity.MovementRecord{
		{Seq: 2, Kind: entity.MovementDispense, QuantityOut: 5, CreatedAt: t0},
		{Seq: 1, Kind: entity.MovementReceipt, QuantityIn: 5, CreatedAt: t0.Add(time.Second)},
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Before(&records[j]) })

	var balance int64
	for _, r := range records {
		balance += r.Delta()
		assert.GreaterOrEqual(t, balance, int64(0))
	}
	assert.Equal(t, entity.MovementReceipt, records[0].Kind)
}

func TestSameExpiry(t *testing.T) {
	d := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	sameDay := time.Date(2025, 3, 1, 15, 30, 0, 0, time.UTC)
	other := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, entity.SameExpiry(&d, &sameDay))
	assert.False(t, entity.SameExpiry(&d, &other))
	assert.False(t, entity.SameExpiry(&d, nil))
	assert.True(t, entity.SameExpiry(nil, nil))
}
