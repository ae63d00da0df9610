package di

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the injector's Prometheus collectors. A nil *metrics records
// nothing.
type metrics struct {
	providerInvocations *prometheus.CounterVec
	builds              *prometheus.CounterVec
	buildDuration       prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &metrics{
		providerInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "di_provider_invocations_total",
				Help: "Total number of provider invocations",
			},
			[]string{"scope"},
		),
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "di_builds_total",
				Help: "Total number of top-level builds",
			},
			[]string{"result"},
		),
		buildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "di_build_duration_seconds",
				Help:    "Duration of top-level builds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),
	}

	var err error
	if m.providerInvocations, err = register(reg, m.providerInvocations); err != nil {
		return nil, err
	}
	if m.builds, err = register(reg, m.builds); err != nil {
		return nil, err
	}
	if m.buildDuration, err = register(reg, m.buildDuration); err != nil {
		return nil, err
	}
	return m, nil
}

// register registers c, reusing an identical collector that is already
// registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) providerInvoked(scope ScopeKind) {
	if m == nil {
		return
	}
	m.providerInvocations.WithLabelValues(scope.String()).Inc()
}

func (m *metrics) buildFinished(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.builds.WithLabelValues(result).Inc()
	m.buildDuration.Observe(d.Seconds())
}
