package watch

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ticks      *prometheus.CounterVec
	discovered prometheus.Counter
	upcoming   prometheus.Gauge
	expired    prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_ticks_total",
				Help:      "Watcher passes by result.",
			},
			[]string{"result"},
		),
		discovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_slots_discovered_total",
			Help:      "Available slots seen for the first time.",
		}),
		upcoming: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watch_upcoming_slots",
			Help:      "Available slots in the next seven days at the last pass.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_sessions_expired_total",
			Help:      "Sessions logged out because the token expired.",
		}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.ticks, m.discovered, m.upcoming, m.expired} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
