// Package metrics expone las métricas del motor de inventario en formato Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/jhoicas/dispensario-api/internal/application/inventory"
)

const namespace = "dispensario"

var _ inventory.Observer = (*Collector)(nil)

// Collector métricas de operaciones, contención e integridad con registro propio.
type Collector struct {
	registry *prometheus.Registry

	operations         *prometheus.CounterVec
	operationDuration  *prometheus.HistogramVec
	contentionRetries  *prometheus.CounterVec
	integrityViolation *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewCollector crea y registra los colectores. withRuntime agrega métricas de Go y del proceso.
func NewCollector(withRuntime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "operations_total",
			Help:      "Operaciones del motor de inventario por resultado (ok, rejected, contention, integrity, error).",
		}, []string{"op", "outcome"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "operation_duration_seconds",
			Help:      "Duración de las operaciones incluyendo reintentos.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op"}),
		contentionRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "contention_retries_total",
			Help:      "Reintentos por conflicto de concurrencia.",
		}, []string{"op"}),
		integrityViolation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "integrity_violations_total",
			Help:      "Lotes cuyo kardex no coincide con el saldo almacenado.",
		}, []string{"product_id", "warehouse_id"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Peticiones HTTP por ruta y código.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duración de las peticiones HTTP.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	c.registry.MustRegister(
		c.operations, c.operationDuration, c.contentionRetries,
		c.integrityViolation, c.httpRequests, c.httpDuration,
	)
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// OperationObserved implementa inventory.Observer.
func (c *Collector) OperationObserved(op, outcome string, elapsed time.Duration) {
	c.operations.WithLabelValues(op, outcome).Inc()
	c.operationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ContentionRetried implementa inventory.Observer.
func (c *Collector) ContentionRetried(op string) {
	c.contentionRetries.WithLabelValues(op).Inc()
}

// IntegrityViolation implementa inventory.Observer.
func (c *Collector) IntegrityViolation(productID, warehouseID string) {
	c.integrityViolation.WithLabelValues(productID, warehouseID).Inc()
}

// HTTPObserved registra una petición HTTP; route es el patrón (no la URL) para acotar cardinalidad.
func (c *Collector) HTTPObserved(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry registro propio (tests y exportación).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler handler HTTP de exposición para /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
