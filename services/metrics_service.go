package services

import (
	"sync/atomic"
	"time"

	"sapcontrol-keeper/internal/logger"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	OutcomeOK          = "ok"
	OutcomeUnreachable = "unreachable"
	OutcomeFault       = "fault"
	OutcomeError       = "error"
)

var (
	remoteCallCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sapcontrol_call_total",
			Help: "Total sapcontrol operations",
		},
		[]string{"operation", "outcome"},
	)

	remoteCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sapcontrol_call_duration_seconds",
			Help:    "Duration of sapcontrol operations including the connection setup",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	stateRunCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_run_total",
			Help: "Total convergence runs",
		},
		[]string{"state", "outcome"},
	)

	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total API requests",
		},
		[]string{"path"},
	)

	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "Total API requests answered with a status >= 400",
		},
		[]string{"path"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	totalRequests int64
	totalErrors   int64
)

func init() {
	prometheus.MustRegister(remoteCallCount)
	prometheus.MustRegister(remoteCallDuration)
	prometheus.MustRegister(stateRunCount)
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestErrors)
	prometheus.MustRegister(requestDuration)
}

// RecordRemoteCall counts one sapcontrol operation.
func RecordRemoteCall(operation, outcome string, duration time.Duration) {
	remoteCallCount.WithLabelValues(operation, outcome).Inc()
	remoteCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordStateRun counts one convergence run.
func RecordStateRun(state, outcome string) {
	stateRunCount.WithLabelValues(state, outcome).Inc()
}

func IncrementRequestCount(path string) {
	atomic.AddInt64(&totalRequests, 1)
	requestCount.WithLabelValues(path).Inc()
}

func IncrementErrorCount(path string) {
	atomic.AddInt64(&totalErrors, 1)
	requestErrors.WithLabelValues(path).Inc()
}

func RecordRequestDuration(path string, seconds float64) {
	requestDuration.WithLabelValues(path).Observe(seconds)
}

func GetTotalRequestCount() int64 {
	return atomic.LoadInt64(&totalRequests)
}

func GetTotalErrorCount() int64 {
	return atomic.LoadInt64(&totalErrors)
}

/**
 * Push all registered metrics to a Pushgateway
 * @param {string} addr - Pushgateway URL
 * @param {string} job - Job label of the pushed group
 * @param {string} instance - Grouping label, usually the host name
 * @returns {error} Error if the gateway rejected the push
 */
func PushMetrics(addr, job, instance string) error {
	if addr == "" {
		return errors.New("no pushgateway configured")
	}
	pusher := push.New(addr, job).Gatherer(prometheus.DefaultGatherer)
	if instance != "" {
		pusher = pusher.Grouping("instance", instance)
	}
	if err := pusher.Push(); err != nil {
		return errors.Wrapf(err, "push metrics to %s", addr)
	}
	logger.Infof("Pushed metrics to %s (job %s)", addr, job)
	return nil
}
