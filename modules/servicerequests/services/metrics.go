package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	submissionsTotal    *prometheus.CounterVec
	reviewsTotal        *prometheus.CounterVec
	lookupFailuresTotal *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		submissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "servicerequests",
			Name:      "submissions_total",
			Help:      "Total number of submit attempts by outcome.",
		}, []string{"service_type", "result"}),
		reviewsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "servicerequests",
			Name:      "reviews_total",
			Help:      "Total number of staff reviews by resulting status.",
		}, []string{"service_type", "status"}),
		lookupFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "servicerequests",
			Name:      "lookup_failures_total",
			Help:      "Store lookups that failed and were treated as absent.",
		}, []string{"service_type"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
