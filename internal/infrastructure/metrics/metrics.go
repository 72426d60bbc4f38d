package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for the application lifecycle and its side effects.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// Committed transitions by timeline action
	Transitions *prometheus.CounterVec

	// Denied or failed transitions by action and error kind
	TransitionErrors *prometheus.CounterVec

	// Side-effect job outcomes by kind and result (ok, retry, dropped)
	Effects *prometheus.CounterVec

	EffectLatency *prometheus.HistogramVec

	RetryQueueDepth prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_application_transitions_total",
			Help: "Committed application transitions by timeline action",
		}, []string{"action"}),

		TransitionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_application_transition_errors_total",
			Help: "Rejected or failed application transitions by action and error kind",
		}, []string{"action", "kind"}),

		Effects: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_effect_jobs_total",
			Help: "Post-commit side-effect jobs by kind and result",
		}, []string{"kind", "result"}), // result: "ok", "retry", "dropped"

		EffectLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kyc_effect_job_duration_seconds",
			Help:    "Duration of post-commit side-effect jobs by kind",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),

		RetryQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "kyc_effect_retry_queue_depth",
			Help: "Jobs waiting in the retry queue",
		}),
	}
}

func (m *Metrics) IncTransition(action string) {
	if m != nil {
		m.Transitions.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncTransitionError(action, kind string) {
	if m != nil {
		m.TransitionErrors.WithLabelValues(action, kind).Inc()
	}
}

func (m *Metrics) ObserveEffect(kind, result string, d time.Duration) {
	if m != nil {
		m.Effects.WithLabelValues(kind, result).Inc()
		m.EffectLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}

func (m *Metrics) SetRetryDepth(n int) {
	if m != nil {
		m.RetryQueueDepth.Set(float64(n))
	}
}

// Handler serves this registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
