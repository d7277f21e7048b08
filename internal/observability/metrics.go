package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpDurationHistogram  *prometheus.HistogramVec
	submissionCounter      *prometheus.CounterVec
	decisionCounter        *prometheus.CounterVec
	pendingQueueGauge      *prometheus.GaugeVec
	walletImbalanceCounter *prometheus.CounterVec
	idempotencyCounter     *prometheus.CounterVec
	workerRunCounter       *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		submissionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "request_submissions_total",
			Help: "Requests accepted into the review pipeline",
		}, []string{"type"})

		decisionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_decisions_total",
			Help: "Admin decisions applied to pending requests",
		}, []string{"action", "type"})

		pendingQueueGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "review_queue_pending",
			Help: "Current number of requests waiting for review",
		}, []string{"type"})

		walletImbalanceCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_imbalance_total",
			Help: "Number of times a wallet balance diverged from its ledger",
		}, []string{"currency"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			submissionCounter,
			decisionCounter,
			pendingQueueGauge,
			walletImbalanceCounter,
			idempotencyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementSubmission(txType string) {
	if submissionCounter == nil {
		return
	}
	submissionCounter.WithLabelValues(txType).Inc()
}

func IncrementDecision(action, txType string) {
	if decisionCounter == nil {
		return
	}
	decisionCounter.WithLabelValues(action, txType).Inc()
}

func SetPendingQueueSize(txType string, size float64) {
	if pendingQueueGauge == nil {
		return
	}
	pendingQueueGauge.WithLabelValues(txType).Set(size)
}

func IncrementWalletImbalance(currency string) {
	if walletImbalanceCounter == nil {
		return
	}
	walletImbalanceCounter.WithLabelValues(currency).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
