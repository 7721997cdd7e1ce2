package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(buildInfo) }

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "summarizer_build_info",
		Help: "Constant 1, labeled with the running build.",
	},
	[]string{"version", "commit", "goversion"},
)

// SetBuildInfo publishes the binary's version labels. Values come from -ldflags.
func SetBuildInfo(version, commit string) {
	buildInfo.Reset()
	buildInfo.WithLabelValues(norm(version), norm(commit), runtime.Version()).Set(1)
}
