package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// LeaseAcquireCounter tracks successful lease acquisitions.
	LeaseAcquireCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "market_lease_acquire_total",
		Help: "Total number of leases acquired",
	})
	// LeaseBusyCounter tracks acquisitions that exhausted their retry budget.
	LeaseBusyCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "market_lease_busy_total",
		Help: "Total number of lease acquisitions that gave up busy",
	})
	// ReentrantCounter tracks protected sections entered on an already held lease.
	ReentrantCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "market_lease_reentrant_total",
		Help: "Total number of reentrant protected-section entries",
	})
	// RenewFailureCounter tracks lease renewals that did not stick.
	RenewFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "market_lease_renew_failure_total",
		Help: "Total number of failed lease renewals",
	})
	// ActiveLeaseGauge reports the number of leases currently held.
	ActiveLeaseGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "market_active_leases",
		Help: "Current number of held leases",
	})
	// OperationCounter tracks marketplace operations by name and outcome.
	OperationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "market_operation_total",
		Help: "Total number of marketplace operations",
	}, []string{"op", "outcome"})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Register registers the marketplace metrics on the provided registry.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		LeaseAcquireCounter,
		LeaseBusyCounter,
		ReentrantCounter,
		RenewFailureCounter,
		ActiveLeaseGauge,
		OperationCounter,
	)
}
