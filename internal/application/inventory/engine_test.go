package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/dispensario-api/internal/application/inventory"
	"github.com/jhoicas/dispensario-api/internal/domain"
)

// flakyRunner devuelve ErrContention en los primeros conflicts intentos de Run.
type flakyRunner struct {
	inventory.TxRunner
	mu        sync.Mutex
	conflicts int
	calls     int
}

func (r *flakyRunner) Run(ctx context.Context, fn func(inventory.Repos) error) error {
	r.mu.Lock()
	r.calls++
	fail := r.calls <= r.conflicts
	r.mu.Unlock()
	if fail {
		return fmt.Errorf("serialization failure: %w", domain.ErrContention)
	}
	return r.TxRunner.Run(ctx, fn)
}

func TestEngine_RetriesContention(t *testing.T) {
	f := newFixture(t)
	f.receive(t, whMain, prodP, "L1", 5, 100, nil)

	runner := &flakyRunner{TxRunner: f.store, conflicts: 2}
	deps := f.deps
	deps.TxRunner = runner
	uc := inventory.NewDispenseUseCase(deps)

	_, err := uc.Dispense(context.Background(), inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "p1", UserID: testUser,
		Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 2, QuantityToDeliver: 2}},
	})
	require.NoError(t, err, "el tercer intento debe confirmar")
	assert.Equal(t, 3, runner.calls)
	assert.Equal(t, 2, f.observer.retries)
	assert.Equal(t, int64(3), f.qty(t, whMain, prodP, "L1"), "se aplica una sola vez")
}

func TestEngine_ContentionExhausted(t *testing.T) {
	f := newFixture(t)
	f.receive(t, whMain, prodP, "L1", 5, 100, nil)

	runner := &flakyRunner{TxRunner: f.store, conflicts: 10}
	deps := f.deps
	deps.TxRunner = runner
	uc := inventory.NewDispenseUseCase(deps)

	_, err := uc.Dispense(context.Background(), inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "p1", UserID: testUser,
		Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 2, QuantityToDeliver: 2}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrContention)
	assert.Equal(t, 3, runner.calls, "tres intentos por defecto")
	assert.Equal(t, int64(5), f.qty(t, whMain, prodP, "L1"))
	assert.Equal(t, 1, f.observer.outcomes["dispense/contention"])
}

func TestEngine_BusinessErrorsAreNotRetried(t *testing.T) {
	f := newFixture(t)
	runner := &flakyRunner{TxRunner: f.store}
	deps := f.deps
	deps.TxRunner = runner
	uc := inventory.NewDispenseUseCase(deps)

	_, err := uc.Dispense(context.Background(), inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "p1", UserID: testUser,
		Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 2, QuantityToDeliver: 2}},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 1, runner.calls)
}

func TestEngine_CancelledContextLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	f.receive(t, whMain, prodP, "L1", 5, 100, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.dispenses.Dispense(ctx, inventory.DispenseInput{
		WarehouseID: whMain, PatientID: "p1", UserID: testUser,
		Items: []inventory.DispenseItem{{ProductID: prodP, QuantityPrescribed: 2, QuantityToDeliver: 2}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int64(5), f.qty(t, whMain, prodP, "L1"))
}
