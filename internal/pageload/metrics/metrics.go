package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PagesCreated      prometheus.Counter
	ActivePages       prometheus.Gauge
	AttachAttempts    *prometheus.CounterVec
	InitNotifications prometheus.Counter
	LibrariesLoaded   prometheus.Counter
	AttachDuration    prometheus.Histogram
	PagesPruned       prometheus.Counter
}

// New registers page-load metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PagesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "eucookie_pages_created_total",
			Help: "Total number of page loads registered",
		}),
		ActivePages: f.NewGauge(prometheus.GaugeOpts{
			Name: "eucookie_active_pages",
			Help: "Page loads currently tracked",
		}),
		AttachAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eucookie_attach_attempts_total",
			Help: "Attach cycles, labeled by initializer outcome",
		}, []string{"outcome"}),
		InitNotifications: f.NewCounter(prometheus.CounterOpts{
			Name: "eucookie_init_notifications_total",
			Help: "eucookie.init notifications broadcast to listeners",
		}),
		LibrariesLoaded: f.NewCounter(prometheus.CounterOpts{
			Name: "eucookie_libraries_loaded_total",
			Help: "Consent libraries reported as loaded",
		}),
		AttachDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "eucookie_attach_duration_seconds",
			Help:    "Duration of attach cycles, including library init when it runs",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		PagesPruned: f.NewCounter(prometheus.CounterOpts{
			Name: "eucookie_pages_pruned_total",
			Help: "Page loads removed by the cleanup worker",
		}),
	}
}

func (m *Metrics) IncrementPagesCreated() {
	m.PagesCreated.Inc()
	m.ActivePages.Inc()
}

func (m *Metrics) IncrementAttach(outcome string) {
	m.AttachAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementNotifications() {
	m.InitNotifications.Inc()
}

func (m *Metrics) IncrementLibrariesLoaded() {
	m.LibrariesLoaded.Inc()
}

func (m *Metrics) ObserveAttach(start time.Time) {
	m.AttachDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddPruned(n int) {
	m.PagesPruned.Add(float64(n))
}

// SetActivePages resyncs the gauge with the store's page count.
func (m *Metrics) SetActivePages(n int) {
	m.ActivePages.Set(float64(n))
}
