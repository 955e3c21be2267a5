package viewsync

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	refreshes         *prometheus.CounterVec
	refreshDuration   prometheus.Histogram
	liveSubscriptions prometheus.Gauge
	notifications     prometheus.Counter
	reconnects        prometheus.Counter
	polls             *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "camtrap",
			Subsystem: "viewsync",
			Name:      "refreshes_total",
			Help:      "Refresh cycles by result (applied, failed, stale).",
		}, []string{"result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "camtrap",
			Subsystem: "viewsync",
			Name:      "refresh_duration_seconds",
			Help:      "Time from fetch start to views replaced.",
			Buckets:   prometheus.DefBuckets,
		}),
		liveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "camtrap",
			Subsystem: "viewsync",
			Name:      "live_subscriptions",
			Help:      "Open live notification channels.",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "camtrap",
			Subsystem: "viewsync",
			Name:      "notifications_total",
			Help:      "Live notifications received.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "camtrap",
			Subsystem: "viewsync",
			Name:      "reconnects_total",
			Help:      "Live channel reconnect attempts.",
		}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "camtrap",
			Subsystem: "viewsync",
			Name:      "latest_polls_total",
			Help:      "Last-N polls by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.refreshes, m.refreshDuration, m.liveSubscriptions, m.notifications, m.reconnects, m.polls,
		} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("register viewsync metrics: %w", err)
			}
		}
	}
	return m, nil
}
