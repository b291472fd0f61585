// Package metrics defines the Prometheus collectors for the maintenance
// loop and a registry helper. Cache stores register their own counters via
// cache.WithMetrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// CyclesRun counts maintenance cycles that won coordination and ran.
	CyclesRun = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_maintenance_cycles_total",
		Help: "Total number of maintenance cycles executed",
	})
	// CyclesSkipped counts cycles skipped because another instance held
	// the coordination token.
	CyclesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_maintenance_cycles_skipped_total",
		Help: "Total number of maintenance cycles skipped due to coordination",
	})
	// UnitFailures counts isolated per-unit failures.
	UnitFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_maintenance_unit_failures_total",
		Help: "Total number of failed maintenance units",
	})
	// UnitTimeouts counts units cancelled by their own timeout.
	UnitTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_maintenance_unit_timeouts_total",
		Help: "Total number of maintenance units cancelled by timeout",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers the maintenance collectors on reg.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CyclesRun, CyclesSkipped, UnitFailures, UnitTimeouts)
}
