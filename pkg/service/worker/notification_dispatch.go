package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/usecase"
	"github.com/nexaflow/nexaflow/pkg/utils/logging"
)

// NotificationDispatcher delivers queued notifications
type NotificationDispatcher interface {
	DispatchPending(ctx context.Context, limit int) (*usecase.DispatchReport, error)
}

// NotificationWorker manages background delivery of queued notifications
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - For future horizontal scaling, implement distributed locking or leader election
type NotificationWorker struct {
	dispatcher NotificationDispatcher
	interval   time.Duration
	batchSize  int
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewNotificationWorker creates a new worker for delivering notifications
func NewNotificationWorker(dispatcher NotificationDispatcher, interval time.Duration, batchSize int) *NotificationWorker {
	return &NotificationWorker{
		dispatcher: dispatcher,
		interval:   interval,
		batchSize:  batchSize,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the background delivery loop
// - The first run starts right away in a background goroutine
// - Does not block server startup
func (w *NotificationWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.New("notification worker interval must be positive", goerr.V("interval", w.interval))
	}

	logging.Default().Info("Notification worker starting",
		"interval", w.interval.String(),
		"batch_size", w.batchSize)

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *NotificationWorker) Stop() {
	logging.Default().Info("Notification worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Notification worker stopped")
}

// run is the main worker loop (runs in goroutine)
func (w *NotificationWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.dispatch(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.dispatch(ctx)

		case <-w.stopCh:
			logging.Default().Info("Notification worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Notification worker context cancelled")
			return
		}
	}
}

// dispatch performs a single delivery cycle. Errors are logged and the worker
// keeps running.
func (w *NotificationWorker) dispatch(ctx context.Context) {
	startTime := time.Now()

	report, err := w.dispatcher.DispatchPending(ctx, w.batchSize)
	if err != nil {
		logging.Default().Error("Notification dispatch failed (will retry next interval)",
			"error", err.Error())
		return
	}

	if report.Sent+report.Failed > 0 {
		logging.Default().Info("Notification dispatch completed",
			"sent", report.Sent,
			"failed", report.Failed,
			"duration", time.Since(startTime).String())
	}
}
