package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsEnqueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bilgi_notifier_jobs_enqueued_total",
		Help: "Total number of notification jobs accepted into the dispatch queue",
	}, []string{"priority"})
	EnqueueRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bilgi_notifier_enqueue_rejected_total",
		Help: "Total number of notification requests rejected at enqueue time",
	}, []string{"reason"})
	JobsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bilgi_notifier_jobs_sent_total",
		Help: "Total number of jobs delivered to every recipient",
	})
	JobsRetried = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bilgi_notifier_jobs_retried_total",
		Help: "Total number of failed attempts that put the job back into the queue",
	})
	JobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bilgi_notifier_jobs_failed_total",
		Help: "Total number of jobs abandoned after exhausting their attempts",
	})
	Deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bilgi_notifier_deliveries_total",
		Help: "Per-recipient delivery attempts grouped by sink and result",
	}, []string{"sink", "result"})
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bilgi_notifier_queue_depth",
		Help: "Current number of pending jobs in the dispatch queue",
	})
)

// Handler returns an http.Handler exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

func init() {
	prometheus.MustRegister(JobsEnqueued)
	prometheus.MustRegister(EnqueueRejected)
	prometheus.MustRegister(JobsSent)
	prometheus.MustRegister(JobsRetried)
	prometheus.MustRegister(JobsFailed)
	prometheus.MustRegister(Deliveries)
	prometheus.MustRegister(QueueDepth)
}
