package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/metapool/go-metavote/metrics"
)

const namespace = "gateway"

var submissions = metrics.NewCounter(
	"submissions_total",
	namespace,
	"transaction submissions by method and result",
	[]string{"method", "result"},
)

var submitLatency = metrics.NewHistogramWithBuckets(
	"submit_seconds",
	namespace,
	"submission round trip latency by method and result",
	[]string{"method", "result"},
	prometheus.ExponentialBuckets(0.05, 2, 12),
)

var queryLatency = metrics.NewHistogramWithBuckets(
	"query_seconds",
	namespace,
	"view query latency by method and result",
	[]string{"method", "result"},
	prometheus.ExponentialBuckets(0.01, 2, 12),
)

// ObserveSubmit records one submission attempt.
func ObserveSubmit(method string, started time.Time, result string) {
	submissions.WithLabelValues(method, result).Inc()
	submitLatency.WithLabelValues(method, result).Observe(time.Since(started).Seconds())
}

// ObserveQuery records one view query round trip.
func ObserveQuery(method string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	queryLatency.WithLabelValues(method, result).Observe(time.Since(started).Seconds())
}
