package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(apiRequestDuration) }

var apiRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "summarizer_api_request_duration_seconds",
		Help:    "Latency of calls to the summarization service.",
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	},
	[]string{"endpoint", "code"},
)

// ObserveAPICall records one request; code 0 means the request never got a response.
func ObserveAPICall(endpoint string, code int, d time.Duration) {
	apiRequestDuration.WithLabelValues(endpoint, strconv.Itoa(code)).Observe(d.Seconds())
}

func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "none"
	}
	return s
}
