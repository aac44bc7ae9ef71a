package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the registry's observational-only Prometheus instruments:
// none of them ever influence a scheduling decision.
type Metrics struct {
	Registered      prometheus.Gauge
	Lookups         *prometheus.CounterVec
	Binds           *prometheus.GaugeVec
	AutoloadAttempts *prometheus.CounterVec
}

// NewMetrics builds a Metrics instance under the given namespace/subsystem,
// mirroring the teacher's metrics.NewMetrics(namespace, subsystem) shape.
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		Registered: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "schedulers_registered",
			Help:      "Number of schedulers currently registered.",
		}),
		Lookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scheduler_lookups_total",
			Help:      "Scheduler registry lookups by name and result.",
		}, []string{"name", "result"}),
		Binds: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scheduler_binds_in_flight",
			Help:      "Connections currently bound to each scheduler.",
		}, []string{"name"}),
		AutoloadAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scheduler_autoload_attempts_total",
			Help:      "Autoload hook invocations by name and outcome.",
		}, []string{"name", "outcome"}),
	}
}

func (m *Metrics) recordLookup(name string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.Lookups.WithLabelValues(name, result).Inc()
}

func (m *Metrics) recordBind(name string, delta float64) {
	if m == nil {
		return
	}
	m.Binds.WithLabelValues(name).Add(delta)
}

func (m *Metrics) recordAutoload(name, outcome string) {
	if m == nil {
		return
	}
	m.AutoloadAttempts.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) setRegisteredCount(n int) {
	if m == nil {
		return
	}
	m.Registered.Set(float64(n))
}
