// Package metrics holds the Prometheus instruments for the service.
//
// All methods are safe on a nil *Metrics, so components can be built without
// instrumentation in tests and tools.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agenthands/compat/internal/driver"
)

type Metrics struct {
	uploadsTotal           *prometheus.CounterVec
	rowsIngestedTotal      prometheus.Counter
	persistenceErrorsTotal *prometheus.CounterVec
	catalogRefreshTotal    *prometheus.CounterVec
	catalogRefreshDuration prometheus.Histogram
	catalogProducts        prometheus.Gauge
	missingProducts        prometheus.Gauge
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		uploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compat_uploads_total",
				Help: "Number of CSV uploads by result.",
			},
			[]string{"result"},
		),
		rowsIngestedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "compat_rows_ingested_total",
				Help: "Total number of compatibility records accepted from uploads.",
			},
		),
		persistenceErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compat_persistence_errors_total",
				Help: "Number of failed persistence operations by op and key.",
			},
			[]string{"op", "key"},
		),
		catalogRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compat_catalog_refresh_total",
				Help: "Number of catalog refreshes by result.",
			},
			[]string{"result"},
		),
		catalogRefreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "compat_catalog_refresh_duration_seconds",
				Help:    "Time taken to fetch the catalog from the provider.",
				Buckets: prometheus.DefBuckets,
			},
		),
		catalogProducts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "compat_catalog_products",
				Help: "Number of products in the current catalog snapshot.",
			},
		),
		missingProducts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "compat_missing_products",
				Help: "Number of referenced product ids absent from the catalog, as of the last computation.",
			},
		),
	}

	reg.MustRegister(
		m.uploadsTotal,
		m.rowsIngestedTotal,
		m.persistenceErrorsTotal,
		m.catalogRefreshTotal,
		m.catalogRefreshDuration,
		m.catalogProducts,
		m.missingProducts,
	)
	return m
}

// ObserveUpload counts one upload. rows is only added for successful uploads.
func (m *Metrics) ObserveUpload(result string, rows int) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(result).Inc()
	if result == "success" {
		m.rowsIngestedTotal.Add(float64(rows))
	}
}

func (m *Metrics) ObserveCatalogRefresh(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.catalogRefreshTotal.WithLabelValues(result).Inc()
	m.catalogRefreshDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.catalogProducts.Set(float64(n))
}

func (m *Metrics) SetMissingProducts(n int) {
	if m == nil {
		return
	}
	m.missingProducts.Set(float64(n))
}

func (m *Metrics) persistenceError(op, key string) {
	if m == nil {
		return
	}
	m.persistenceErrorsTotal.WithLabelValues(op, key).Inc()
}

// InstrumentPersistence counts failed loads and saves of p.
func InstrumentPersistence(p driver.Persistence, m *Metrics) driver.Persistence {
	if m == nil {
		return p
	}
	return &instrumented{next: p, metrics: m}
}

type instrumented struct {
	next    driver.Persistence
	metrics *Metrics
}

func (i *instrumented) Load(ctx context.Context, key string) ([]byte, bool, error) {
	value, found, err := i.next.Load(ctx, key)
	if err != nil {
		i.metrics.persistenceError("load", key)
	}
	return value, found, err
}

func (i *instrumented) Save(ctx context.Context, key string, value []byte) error {
	err := i.next.Save(ctx, key, value)
	if err != nil {
		i.metrics.persistenceError("save", key)
	}
	return err
}

func (i *instrumented) Close(ctx context.Context) error {
	return i.next.Close(ctx)
}
