// Package metrics exposes import pipeline and HTTP metrics for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/khosimport/internal/importer"
)

// Registry owns its collectors so tests and multiple servers never share
// the global default registry.
type Registry struct {
	reg *prometheus.Registry

	Rows          *prometheus.CounterVec
	CodesUpserted *prometheus.CounterVec
	Batches       *prometheus.CounterVec
	BatchDuration *prometheus.HistogramVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
}

var _ importer.Recorder = (*Registry)(nil)

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "khos_import_rows_total",
		Help: "Spreadsheet rows processed, by import type and result.",
	}, []string{"type", "result"})
	codes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "khos_import_product_codes_upserted_total",
		Help: "Product codes written to the catalog during imports.",
	}, []string{"type"})
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "khos_import_batches_total",
		Help: "Finished import runs, by outcome.",
	}, []string{"type", "outcome"})
	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "khos_import_batch_duration_seconds",
		Help:    "Wall time of one import run.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"type"})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "khos_http_requests_total",
		Help: "HTTP requests, by route and status code.",
	}, []string{"method", "route", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "khos_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	r.MustRegister(rows, codes, batches, batchDuration, httpRequests, httpDuration)
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{
		reg:           r,
		Rows:          rows,
		CodesUpserted: codes,
		Batches:       batches,
		BatchDuration: batchDuration,
		HTTPRequests:  httpRequests,
		HTTPDuration:  httpDuration,
	}
}

// TrackActiveImports exports a gauge read from fn at scrape time.
func (r *Registry) TrackActiveImports(fn func() int) {
	r.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "khos_imports_active",
		Help: "Imports currently holding a slot.",
	}, func() float64 { return float64(fn()) }))
}

func (r *Registry) RowProcessed(t importer.ImportType, ok bool) {
	result := "failed"
	if ok {
		result = "imported"
	}
	r.Rows.WithLabelValues(string(t), result).Inc()
}

func (r *Registry) ProductCodeUpserted(t importer.ImportType) {
	r.CodesUpserted.WithLabelValues(string(t)).Inc()
}

func (r *Registry) BatchFinished(t importer.ImportType, outcome importer.Outcome, d time.Duration) {
	r.Batches.WithLabelValues(string(t), string(outcome)).Inc()
	r.BatchDuration.WithLabelValues(string(t)).Observe(d.Seconds())
}

// ObserveRequest records one finished HTTP request. Route is the matched
// pattern, not the raw path, to keep label cardinality bounded.
func (r *Registry) ObserveRequest(method, route string, status int, d time.Duration) {
	r.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
