package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	OperationsTotal *prometheus.CounterVec // op, result
	SweepsTotal     *prometheus.CounterVec // sweep, result

	AutoCompletedTotal prometheus.Counter
	StaleResetTotal    prometheus.Counter

	DogsWalking prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walk_operations_total",
				Help: "Lifecycle operations by op and result",
			},
			[]string{"op", "result"},
		),
		SweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walk_reconciler_sweeps_total",
				Help: "Reconciler sweeps by sweep and result",
			},
			[]string{"sweep", "result"},
		),
		AutoCompletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walk_auto_completed_total",
			Help: "Walks auto-completed by the reconciler after timeout",
		}),
		StaleResetTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walk_stale_reset_total",
			Help: "Dogs reset to available after a stale completed day",
		}),
		DogsWalking: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dogs_walking",
			Help: "Number of dogs currently walking",
		}),
	}

	prometheus.MustRegister(
		m.OperationsTotal,
		m.SweepsTotal,
		m.AutoCompletedTotal,
		m.StaleResetTotal,
		m.DogsWalking,
	)

	return m
}
