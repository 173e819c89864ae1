package handlers

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	notificationsTotal *prometheus.CounterVec
	statusChangesTotal *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		notificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "servicerequests",
			Name:      "notifications_total",
			Help:      "Staff notifications by outcome after retries.",
		}, []string{"service_type", "result"}),
		statusChangesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "servicerequests",
			Name:      "status_changes_total",
			Help:      "Status transitions observed on the event bus.",
		}, []string{"service_type", "from", "to"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
