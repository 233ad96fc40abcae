package gesture

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/attention/internal/metrics"
	"github.com/ayusman/attention/internal/skeleton"
)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics counts emitted events and emit failures.
func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

type scheduled struct {
	eval     Evaluator
	interval time.Duration
}

// Runner polls the snapshot cell for each evaluator at its own interval and
// forwards the resulting events to an Emitter.
type Runner struct {
	cell    *skeleton.Cell
	emitter Emitter
	logger  *zap.Logger
	metrics *metrics.Metrics
	evals   []scheduled
}

// NewRunner creates a Runner with no evaluators.
func NewRunner(cell *skeleton.Cell, emitter Emitter, opts ...RunnerOption) *Runner {
	r := &Runner{
		cell:    cell,
		emitter: emitter,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add schedules an evaluator. Must be called before Run.
func (r *Runner) Add(e Evaluator, interval time.Duration) {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	r.evals = append(r.evals, scheduled{eval: e, interval: interval})
}

// Run starts one goroutine per evaluator and blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, s := range r.evals {
		wg.Add(1)
		go func(s scheduled) {
			defer wg.Done()
			r.loop(ctx, s)
		}(s)
	}
	wg.Wait()
	return ctx.Err()
}

func (r *Runner) loop(ctx context.Context, s scheduled) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	r.logger.Debug("evaluator started",
		zap.String("evaluator", s.eval.Name()),
		zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx, s.eval)
		}
	}
}

// Tick runs one poll of e against the current snapshot and emits its events.
// A nil snapshot skips the evaluator entirely.
func (r *Runner) Tick(ctx context.Context, e Evaluator) {
	snap := r.cell.Load()
	if snap == nil {
		return
	}

	for _, ev := range e.Evaluate(snap) {
		ev.BodyID = snap.BodyID
		if err := r.emitter.Emit(ctx, ev); err != nil {
			if r.metrics != nil {
				r.metrics.RecordEmitError(ev.Name)
			}
			r.logger.Warn("emit failed",
				zap.String("evaluator", e.Name()),
				zap.String("event", ev.Name),
				zap.Error(err))
			continue
		}

		if r.metrics != nil {
			r.metrics.RecordEvent(ev.Name)
		}
		if ev.Name != EventCursor {
			r.logger.Info("gesture detected",
				zap.String("event", ev.Name),
				zap.Any("data", ev.Payload),
				zap.Uint32("body_id", ev.BodyID))
		}
	}
}
