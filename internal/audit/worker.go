package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LakeAndrew/MerakiScripts/internal/metrics"
	"github.com/LakeAndrew/MerakiScripts/internal/model"
)

const (
	// DefaultBatchSize is the number of pending runs claimed per poll.
	DefaultBatchSize = 5
	// DefaultPollInterval is the time between polls for pending runs.
	DefaultPollInterval = 5 * time.Second
	// DefaultMetricsInterval is how often to refresh queue depth metrics.
	DefaultMetricsInterval = 10 * time.Second
)

// RunStore persists audit runs and their results.
type RunStore interface {
	GetPendingRuns(ctx context.Context, limit int) ([]*model.AuditRun, error)
	MarkRunRunning(ctx context.Context, id string) error
	CompleteRun(ctx context.Context, id string, summary model.RunSummary) error
	FailRun(ctx context.Context, id, message string) error
	SaveResult(ctx context.Context, runID string, result *model.AuditResult) error
	CountPendingRuns(ctx context.Context) (int64, error)
}

// Worker executes queued audit runs (service mode).
type Worker struct {
	store           RunStore
	runner          *Runner
	logger          *slog.Logger
	metrics         metrics.Recorder
	batchSize       int
	pollInterval    time.Duration
	metricsInterval time.Duration
	lastMetrics     time.Time

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewWorker creates an audit run worker.
func NewWorker(store RunStore, runner *Runner, logger *slog.Logger, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		store:           store,
		runner:          runner,
		logger:          logger.With("component", "audit.worker"),
		metrics:         recorder,
		batchSize:       DefaultBatchSize,
		pollInterval:    DefaultPollInterval,
		metricsInterval: DefaultMetricsInterval,
	}
}

// SetPollInterval overrides the default poll interval.
func (w *Worker) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		w.pollInterval = interval
	}
}

// SetBatchSize overrides the default batch size.
func (w *Worker) SetBatchSize(size int) {
	if size > 0 {
		w.batchSize = size
	}
}

// Run starts the worker loop. Blocks until context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	w.logger.Info("audit worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.mu.Lock()
		draining := w.draining
		w.mu.Unlock()

		if draining {
			w.logger.Info("audit worker draining, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			// Context cancellation is how the worker is told to stop, so a
			// cancelled context is a clean exit, not a failure.
			w.logger.Info("audit worker stopping")
			return nil
		case <-ticker.C:
			if err := w.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.logger.Error("process error", "error", err)
			}
		}
	}
}

// Shutdown gracefully stops the worker, letting an in-flight run finish.
// It implements server.ShutdownFunc for integration with graceful shutdown.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.draining = true
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	w.logger.Info("audit worker shutdown initiated")

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			w.logger.Info("audit worker shutdown complete")
			return nil
		case <-ctx.Done():
			w.logger.Warn("audit worker shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

// processOnce claims and executes a batch of pending runs.
func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateQueueDepth(ctx)

	runs, err := w.store.GetPendingRuns(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending runs: %w", err)
	}

	for _, run := range runs {
		if err := w.execute(ctx, run); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			w.logger.Warn("run execution failed",
				"run_id", run.ID,
				"error", err,
			)
		}
	}

	return nil
}

// execute performs a single queued run end to end.
func (w *Worker) execute(ctx context.Context, run *model.AuditRun) error {
	if err := w.store.MarkRunRunning(ctx, run.ID); err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}

	w.logger.Info("run started", "run_id", run.ID, "org_id", run.OrgID)

	result, err := w.runner.Run(ctx, run.OrgID)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled mid-run; put it back in the queue by leaving a
			// failure record the operator can retry.
			_ = w.store.FailRun(context.WithoutCancel(ctx), run.ID, "cancelled: "+err.Error())
			return ctx.Err()
		}
		if failErr := w.store.FailRun(ctx, run.ID, err.Error()); failErr != nil {
			return fmt.Errorf("record run failure: %w", failErr)
		}
		return err
	}

	if err := w.store.SaveResult(ctx, run.ID, result); err != nil {
		if failErr := w.store.FailRun(ctx, run.ID, "save result: "+err.Error()); failErr != nil {
			w.logger.Error("failed to record run failure", "run_id", run.ID, "error", failErr)
		}
		return fmt.Errorf("save result: %w", err)
	}

	if err := w.store.CompleteRun(ctx, run.ID, result.Summary()); err != nil {
		return fmt.Errorf("complete run: %w", err)
	}

	w.logger.Info("run completed", "run_id", run.ID, "org_id", run.OrgID)
	return nil
}

// maybeUpdateQueueDepth refreshes the pending-run gauge.
func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if w.metricsInterval <= 0 {
		return
	}
	if !w.lastMetrics.IsZero() && time.Since(w.lastMetrics) < w.metricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	depth, err := w.store.CountPendingRuns(ctx)
	if err != nil {
		w.logger.Warn("failed to read pending run count", "error", err)
		return
	}
	w.metrics.SetAuditQueueDepth(depth)
}
