package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hotfolder/internal/ingest"
)

const (
	// Namespace prefixes every exported metric.
	Namespace = "hotfolder"

	// Subsystem groups the ingestion metrics.
	Subsystem = "ingest"
)

// Cycle results used as the "result" label.
const (
	ResultCompleted = "completed"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

// Metrics holds the collectors for poll cycles and their entries.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal        *prometheus.CounterVec
	EntriesTotal       *prometheus.CounterVec
	CycleDuration      prometheus.Histogram
	IngestedFilesTotal prometheus.Counter
	IngestedBytesTotal prometheus.Counter
	StepsStartedTotal  prometheus.Counter
	LastCycleTimestamp prometheus.Gauge
}

// New creates the collectors on a private registry. Go runtime and process
// collectors are registered alongside.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newWithRegistry(reg)
}

func newWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.CyclesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "cycles_total",
			Help:      "Poll cycles run, by result",
		},
		[]string{"result"},
	)
	m.EntriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "entries_total",
			Help:      "Hotfolder entries examined, by outcome",
		},
		[]string{"outcome"},
	)
	m.CycleDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of poll cycles that examined the hotfolder",
		Buckets:   []float64{0.05, 0.25, 1, 5, 15, 60, 300, 900, 1800},
	})
	m.IngestedFilesTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "files_total",
		Help:      "Image files relocated into work units",
	})
	m.IngestedBytesTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "bytes_total",
		Help:      "Bytes relocated into work units",
	})
	m.StepsStartedTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "steps_started_total",
		Help:      "Automatic steps started after ingestion",
	})
	m.LastCycleTimestamp = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "last_cycle_timestamp_seconds",
		Help:      "Unix time the last poll cycle finished",
	})
	return m
}

// ObserveCycle records one finished cycle.
func (m *Metrics) ObserveCycle(report ingest.CycleReport, err error) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(cycleResult(report, err)).Inc()
	if !report.Finished.IsZero() {
		m.LastCycleTimestamp.Set(float64(report.Finished.Unix()))
	}
	if report.Skipped {
		return
	}
	m.CycleDuration.Observe(report.Duration().Seconds())
	for _, entry := range report.Entries {
		m.EntriesTotal.WithLabelValues(string(entry.Outcome)).Inc()
		if entry.Outcome != ingest.OutcomeIngested {
			continue
		}
		m.IngestedFilesTotal.Add(float64(entry.Files))
		m.IngestedBytesTotal.Add(float64(entry.Bytes))
		m.StepsStartedTotal.Add(float64(entry.StepsStarted))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func cycleResult(report ingest.CycleReport, err error) string {
	switch {
	case report.Skipped:
		return ResultSkipped
	case err != nil:
		return ResultFailed
	default:
		return ResultCompleted
	}
}
