package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "desci_form"

var (
	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Count of calls to the application backend by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)
	upstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of calls to the application backend.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	stepTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_transitions_total",
			Help:      "Count of step navigation attempts by action and result.",
		},
		[]string{"action", "result"},
	)
	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Count of submission attempts by result.",
		},
		[]string{"result"},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_form_sessions",
			Help:      "Number of form sessions held in memory.",
		},
	)
)

var registerMetrics sync.Once

// Register 向默认注册表登记全部指标
func Register() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(upstreamRequests, upstreamLatency, stepTransitions, submissions, activeSessions)
	})
}

// RecordUpstream 记录一次上游调用
func RecordUpstream(endpoint, outcome string, elapsed time.Duration) {
	upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	upstreamLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordStep 记录一次步骤导航
func RecordStep(action, result string) {
	stepTransitions.WithLabelValues(action, result).Inc()
}

// RecordSubmission 记录一次提交
func RecordSubmission(result string) {
	submissions.WithLabelValues(result).Inc()
}

// SetActiveSessions 更新内存中的会话数
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
