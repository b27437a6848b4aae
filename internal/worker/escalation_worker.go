package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
)

// EscalationRunner performs one escalation pass.
type EscalationRunner interface {
	Run(ctx context.Context, now time.Time) ([]domain.EscalationAction, error)
}

// EscalationWorker runs escalation passes on a cron schedule.
type EscalationWorker struct {
	runner  EscalationRunner
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewEscalationWorker validates the schedule and registers the job. The
// scheduler does not start until Start is called.
func NewEscalationWorker(runner EscalationRunner, cfg config.EscalationConfig, logger *zap.Logger) (*EscalationWorker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid escalation schedule %q: %w", cfg.Schedule, err)
	}
	w := &EscalationWorker{
		runner:  runner,
		timeout: cfg.Timeout(),
		logger:  logger,
		now:     time.Now,
	}
	w.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := w.cron.AddFunc(cfg.Schedule, w.tick); err != nil {
		return nil, fmt.Errorf("register escalation job: %w", err)
	}
	return w, nil
}

// Start launches the scheduler in its own goroutine.
func (w *EscalationWorker) Start() {
	w.logger.Info("escalation worker started", zap.Int("entries", len(w.cron.Entries())))
	w.cron.Start()
}

// Stop halts the scheduler and waits for a running pass to finish or for ctx
// to expire.
func (w *EscalationWorker) Stop(ctx context.Context) {
	done := w.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("escalation worker stop timed out")
	}
}

// RunOnce performs a single pass using the worker's clock and timeout.
func (w *EscalationWorker) RunOnce(ctx context.Context) ([]domain.EscalationAction, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	return w.runner.Run(ctx, w.now().UTC())
}

func (w *EscalationWorker) tick() {
	started := time.Now()
	applied, err := w.RunOnce(context.Background())
	if err != nil {
		w.logger.Error("escalation pass failed", zap.Error(err))
		return
	}
	w.logger.Debug("escalation pass complete",
		zap.Int("applied", len(applied)),
		zap.Duration("elapsed", time.Since(started)),
	)
}
