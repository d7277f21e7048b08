package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/remitbd/remit-core/internal/domain"
	"github.com/remitbd/remit-core/internal/observability"
	"github.com/remitbd/remit-core/internal/service"
)

// QueueMetricsWorker samples the review queue and exports its depth per
// request type so the backlog is visible before admins notice it.
type QueueMetricsWorker struct {
	reviewSvc *service.ReviewService
	interval  time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewQueueMetricsWorker(reviewSvc *service.ReviewService) *QueueMetricsWorker {
	return &QueueMetricsWorker{
		reviewSvc: reviewSvc,
		interval:  30 * time.Second,
		stopCh:    make(chan struct{}),
	}
}

// WithInterval updates the sampling interval.
func (w *QueueMetricsWorker) WithInterval(interval time.Duration) *QueueMetricsWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and samples the queue at the configured interval.
func (w *QueueMetricsWorker) Start(ctx context.Context) {
	zap.L().Info("queue metrics worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sampleOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("queue metrics worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("queue metrics worker stop signal received")
			return
		case <-ticker.C:
			w.sampleOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *QueueMetricsWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *QueueMetricsWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *QueueMetricsWorker) sampleOnce(ctx context.Context) {
	summary, err := w.reviewSvc.Dashboard(ctx)
	if err != nil {
		observability.IncrementWorkerRun("queue_metrics", "failed")
		zap.L().Error("queue metrics sample failed", zap.Error(err))
		return
	}

	// Reset types absent from the summary so gauges fall back to zero.
	counts := map[string]int64{
		domain.TxTypeDeposit:    0,
		domain.TxTypeWithdrawal: 0,
		domain.TxTypeExchange:   0,
	}
	for _, row := range summary.Pending {
		counts[row.Type] = row.Count
	}
	for txType, count := range counts {
		observability.SetPendingQueueSize(txType, float64(count))
	}
	observability.IncrementWorkerRun("queue_metrics", "success")
}
