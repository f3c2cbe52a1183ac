// Package metrics registers the Prometheus counters/gauges exported by
// the ground-link HTTP server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// FaultsTotal counts safe-mode entries by fault identifier.
	FaultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eps_faults_total",
		Help: "Number of safe-mode entries by fault identifier.",
	}, []string{"fault"})

	// ChronicIdleReinitTotal counts MPPT reinit attempts issued by the
	// chronic-idle handler.
	ChronicIdleReinitTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eps_chronic_idle_reinit_total",
		Help: "Number of MPPT reinit operations issued by the chronic-idle handler.",
	})

	// ReadErrorFlag reports the current global read-error flag (0 or 1).
	ReadErrorFlag = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "eps_read_error_flag",
		Help: "Current value of the global read-error flag.",
	})

	// SourceDecayFlag reports the current source-decay flag (0 or 1).
	SourceDecayFlag = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "eps_source_decay_flag",
		Help: "Current value of the latched source-decay flag.",
	})

	// IdleEvidenceWindow reports the chronic-idle evidence window's raw
	// bit value (0-255), for ground visibility into accumulation progress.
	IdleEvidenceWindow = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "eps_idle_evidence_window",
		Help: "Raw bit value of the chronic-idle sliding evidence window.",
	})

	// SourceDecayTrend reports the running W/month slope computed over
	// recent monthly averages. Read-only telemetry, not consulted by any
	// fault-declaration path.
	SourceDecayTrend = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "eps_source_decay_trend_watts_per_month",
		Help: "Linear trend (watts/month) over recent monthly power averages.",
	})
)

// Registry is a dedicated registry (rather than the global default) so
// the ground-link server can be wired up independently in tests.
func Registry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(FaultsTotal, ChronicIdleReinitTotal, ReadErrorFlag, SourceDecayFlag, IdleEvidenceWindow, SourceDecayTrend)
	return r
}
