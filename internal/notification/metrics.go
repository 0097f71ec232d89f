package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_requests_total",
		Help: "Total number of status notifications received, by source and outcome.",
	}, []string{"source", "outcome"})

	EmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_emails_total",
		Help: "Total number of processed notification tasks, by result.",
	}, []string{"result"})

	EmailSendLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_email_send_latency_seconds",
		Help:    "Latency of the email provider call.",
		Buckets: prometheus.DefBuckets,
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_dispatch_queue_depth",
		Help: "Current number of tasks waiting in the dispatch queue.",
	})

	TasksDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_tasks_dropped_total",
		Help: "Total number of tasks that were not scheduled or crashed.",
	}, []string{"reason"})
)

// Result labels for EmailsTotal.
const (
	ResultSent      = "sent"
	ResultFailed    = "failed"
	ResultDuplicate = "duplicate"
)

type PrometheusMetrics struct{}

func (m *PrometheusMetrics) RecordRequest(source, outcome string) {
	RequestsTotal.WithLabelValues(source, outcome).Inc()
}

func (m *PrometheusMetrics) RecordEmail(result string) {
	EmailsTotal.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) StartTimer() *prometheus.Timer {
	return prometheus.NewTimer(EmailSendLatency)
}
