// Package metrics provides Prometheus metrics for data-join coordination.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the coordination layer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Registry metrics
	RegistryOps *prometheus.CounterVec

	// Publisher metrics
	PublishedEntries *prometheus.CounterVec
	PublishConflicts prometheus.Counter

	// Anchor metrics
	AnchorOps *prometheus.CounterVec

	// Watchdog metrics
	HeapBytes     prometheus.Gauge
	MemLimitBytes prometheus.Gauge
	HeapSamples   prometheus.Counter
	RiskChecks    *prometheus.CounterVec
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // Address for metrics HTTP server (e.g., ":9090")
}

// New registers the collectors on reg. A nil reg uses the default
// registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "datajoin"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RegistryOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registry_operations_total",
				Help:      "Data source registry operations by outcome",
			},
			[]string{"op", "result"},
		),
		PublishedEntries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "raw_data_published_total",
				Help:      "Raw data publication entries claimed",
			},
			[]string{"kind"},
		),
		PublishConflicts: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "raw_data_publish_conflicts_total",
				Help:      "Publication slots lost to a concurrent publisher",
			},
		),
		AnchorOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "example_id_anchor_operations_total",
				Help:      "Example id anchor loads and saves by outcome",
			},
			[]string{"op", "result"},
		),
		HeapBytes: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "watchdog_heap_bytes",
				Help:      "Most recently sampled heap usage",
			},
		),
		MemLimitBytes: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "watchdog_memory_limit_bytes",
				Help:      "Configured memory ceiling",
			},
		),
		HeapSamples: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watchdog_heap_samples_total",
				Help:      "Heap usage samples taken",
			},
		),
		RiskChecks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watchdog_risk_checks_total",
				Help:      "OOM risk checks by decision",
			},
			[]string{"at_risk"},
		),
	}
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string, gatherer prometheus.Gatherer) error {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}

// IncRegistryOp counts a registry commit or retrieve.
func (m *Metrics) IncRegistryOp(op, result string) {
	if m == nil {
		return
	}
	m.RegistryOps.WithLabelValues(op, result).Inc()
}

// IncPublished counts a claimed publication slot.
func (m *Metrics) IncPublished(kind string) {
	if m == nil {
		return
	}
	m.PublishedEntries.WithLabelValues(kind).Inc()
}

// IncPublishConflict counts a publication slot lost to another writer.
func (m *Metrics) IncPublishConflict() {
	if m == nil {
		return
	}
	m.PublishConflicts.Inc()
}

// IncAnchorOp counts an anchor load or save.
func (m *Metrics) IncAnchorOp(op, result string) {
	if m == nil {
		return
	}
	m.AnchorOps.WithLabelValues(op, result).Inc()
}

// ObserveHeapSample records a fresh heap sample.
func (m *Metrics) ObserveHeapSample(heapBytes uint64) {
	if m == nil {
		return
	}
	m.HeapSamples.Inc()
	m.HeapBytes.Set(float64(heapBytes))
}

// SetMemLimit records the configured ceiling.
func (m *Metrics) SetMemLimit(limit int64) {
	if m == nil {
		return
	}
	m.MemLimitBytes.Set(float64(limit))
}

// IncRiskCheck counts a risk decision.
func (m *Metrics) IncRiskCheck(atRisk bool) {
	if m == nil {
		return
	}
	if atRisk {
		m.RiskChecks.WithLabelValues("true").Inc()
		return
	}
	m.RiskChecks.WithLabelValues("false").Inc()
}
