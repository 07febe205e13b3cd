package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// StartCollectingMetrics begins serving metrics on localhost:`port`/metrics.
func StartCollectingMetrics(logger *zap.Logger, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		err := http.ListenAndServe(fmt.Sprintf(":%v", port), mux)
		logger.Warn("metrics server stopped", zap.Error(err))
	}()
}
