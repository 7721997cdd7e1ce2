package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobsSubmittedTotal, submitFailuresTotal, jobsFinishedTotal, pollsTotal, jobsInFlight)
}

var (
	jobsSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarizer_jobs_submitted_total",
			Help: "Jobs accepted by the summarization service, labeled by source.",
		},
		[]string{"source"}, // 'upload', 'url'
	)

	submitFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "summarizer_submit_failures_total",
			Help: "Submissions rejected locally or by the service.",
		},
	)

	jobsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarizer_jobs_finished_total",
			Help: "Jobs that reached a terminal state, labeled by status and error kind.",
		},
		[]string{"status", "kind"},
	)

	pollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarizer_polls_total",
			Help: "Status poll ticks, labeled by outcome.",
		},
		[]string{"outcome"}, // 'processing', 'done', 'error', 'failure'
	)

	jobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "summarizer_jobs_in_flight",
			Help: "Jobs currently being polled.",
		},
	)
)

func IncJobSubmitted(source string) {
	jobsSubmittedTotal.WithLabelValues(norm(source)).Inc()
	jobsInFlight.Inc()
}

func IncSubmitFailure() { submitFailuresTotal.Inc() }

func IncJobFinished(status, kind string) {
	jobsFinishedTotal.WithLabelValues(norm(status), norm(kind)).Inc()
	jobsInFlight.Dec()
}

func IncPoll(outcome string) {
	pollsTotal.WithLabelValues(norm(outcome)).Inc()
}
