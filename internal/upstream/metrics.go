package upstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// requestsTotal counts provider calls by provider name and outcome.
var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "skywatch_upstream_requests_total",
	Help: "Total number of outbound provider requests by provider and outcome.",
}, []string{"provider", "outcome"})

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "skywatch_upstream_request_duration_seconds",
	Help:    "Latency of outbound provider requests, retries included.",
	Buckets: prometheus.DefBuckets,
}, []string{"provider"})
