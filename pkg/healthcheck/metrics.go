// Package healthcheck metrics integration
// Provides Prometheus metrics for health check monitoring
package healthcheck

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HealthMetrics provides Prometheus metrics for health checks
type HealthMetrics struct {
	checksTotal         *prometheus.CounterVec
	checkDuration       *prometheus.HistogramVec
	healthStatus        *prometheus.GaugeVec
	circuitBreakerState *prometheus.GaugeVec
	circuitTrips        *prometheus.CounterVec
}

// NewHealthMetrics registers the health metrics on reg
func NewHealthMetrics(reg prometheus.Registerer, namespace string) *HealthMetrics {
	factory := promauto.With(reg)

	return &HealthMetrics{
		checksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "healthcheck",
				Name:      "checks_total",
				Help:      "Total number of health checks performed",
			},
			[]string{"check_name", "status"},
		),
		checkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "healthcheck",
				Name:      "check_duration_seconds",
				Help:      "Duration of health checks in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"check_name"},
		),
		healthStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "healthcheck",
				Name:      "status",
				Help:      "Current health status (0=unhealthy, 1=degraded, 2=healthy)",
			},
			[]string{"check_name"},
		),
		circuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "healthcheck",
				Name:      "circuit_breaker_state",
				Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"circuit_name"},
		),
		circuitTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "healthcheck",
				Name:      "circuit_trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"circuit_name"},
		),
	}
}

// RecordCheck records one check result
func (hm *HealthMetrics) RecordCheck(check Check) {
	hm.checksTotal.WithLabelValues(check.Name, string(check.Status)).Inc()
	hm.checkDuration.WithLabelValues(check.Name).Observe(check.Duration.Seconds())
	hm.healthStatus.WithLabelValues(check.Name).Set(statusToFloat(check.Status))
}

// RecordCircuitBreakerState records a state transition
func (hm *HealthMetrics) RecordCircuitBreakerState(name string, state CircuitBreakerState) {
	hm.circuitBreakerState.WithLabelValues(name).Set(float64(state))
	if state == StateOpen {
		hm.circuitTrips.WithLabelValues(name).Inc()
	}
}

// ObserveStateChanges returns an OnStateChange hook feeding hm. A previous
// hook, if any, still runs.
func (hm *HealthMetrics) ObserveStateChanges(next func(name string, from, to CircuitBreakerState)) func(name string, from, to CircuitBreakerState) {
	return func(name string, from, to CircuitBreakerState) {
		hm.RecordCircuitBreakerState(name, to)
		if next != nil {
			next(name, from, to)
		}
	}
}

func statusToFloat(status Status) float64 {
	switch status {
	case StatusHealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

type metricsChecker struct {
	metrics *HealthMetrics
	name    string
	next    Checker
}

func (m *metricsChecker) Check(ctx context.Context) Check {
	check := m.next.Check(ctx)
	if check.Name == "" {
		check.Name = m.name
	}
	m.metrics.RecordCheck(check)
	return check
}

// WithMetrics wraps checker so that each result is recorded under name
func WithMetrics(metrics *HealthMetrics, name string, checker Checker) Checker {
	if metrics == nil {
		return checker
	}
	return &metricsChecker{metrics: metrics, name: name, next: checker}
}
