package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/dispensario-api/internal/infrastructure/metrics"
)

func TestCollector_CountsOperations(t *testing.T) {
	c := metrics.NewCollector(false)

	c.OperationObserved("dispense", "ok", 10*time.Millisecond)
	c.OperationObserved("dispense", "ok", 20*time.Millisecond)
	c.OperationObserved("dispense", "rejected", time.Millisecond)
	c.ContentionRetried("dispense")
	c.IntegrityViolation("acetaminofen-500", "bodega-central")

	expected := `
# HELP dispensario_inventory_operations_total Operaciones del motor de inventario por resultado (ok, rejected, contention, integrity, error).
# TYPE dispensario_inventory_operations_total counter
dispensario_inventory_operations_total{op="dispense",outcome="ok"} 2
dispensario_inventory_operations_total{op="dispense",outcome="rejected"} 1
# HELP dispensario_inventory_contention_retries_total Reintentos por conflicto de concurrencia.
# TYPE dispensario_inventory_contention_retries_total counter
dispensario_inventory_contention_retries_total{op="dispense"} 1
# HELP dispensario_inventory_integrity_violations_total Lotes cuyo kardex no coincide con el saldo almacenado.
# TYPE dispensario_inventory_integrity_violations_total counter
dispensario_inventory_integrity_violations_total{product_id="acetaminofen-500",warehouse_id="bodega-central"} 1
`
	err := testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected),
		"dispensario_inventory_operations_total",
		"dispensario_inventory_contention_retries_total",
		"dispensario_inventory_integrity_violations_total",
	)
	require.NoError(t, err)

	problems, err := testutil.GatherAndLint(c.Registry())
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestCollector_Handler(t *testing.T) {
	c := metrics.NewCollector(false)
	c.OperationObserved("receipt", "ok", time.Millisecond)
	c.HTTPObserved(http.MethodPost, "/api/inventory/receipts", http.StatusCreated, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dispensario_inventory_operations_total{op="receipt",outcome="ok"} 1`)
	assert.Contains(t, string(body), `dispensario_http_requests_total{method="POST",route="/api/inventory/receipts",status="201"} 1`)
}
