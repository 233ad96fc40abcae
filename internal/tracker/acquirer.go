package tracker

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/attention/internal/metrics"
	"github.com/ayusman/attention/internal/skeleton"
)

// DefaultPollInterval is used when the acquirer is given a non-positive interval.
const DefaultPollInterval = 30 * time.Millisecond

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithLogger sets the logger used for recovered provider errors.
func WithLogger(l *zap.Logger) Option {
	return func(a *Acquirer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics records frame and error counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Acquirer) {
		a.metrics = m
	}
}

// Acquirer polls a Provider and publishes the closest body to a snapshot cell.
// It is the only writer of the cell.
type Acquirer struct {
	provider Provider
	cell     *skeleton.Cell
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
	enabled  atomic.Bool

	// errStreak counts consecutive provider failures. Only touched by Run.
	errStreak int
}

// NewAcquirer creates an Acquirer that starts enabled.
func NewAcquirer(p Provider, cell *skeleton.Cell, interval time.Duration, opts ...Option) *Acquirer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	a := &Acquirer{
		provider: p,
		cell:     cell,
		interval: interval,
		logger:   zap.NewNop(),
	}
	a.enabled.Store(true)

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetEnabled pauses or resumes acquisition. While paused the cell holds no data.
func (a *Acquirer) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
	if !enabled {
		a.cell.Publish(nil)
	}
}

// IsEnabled reports whether acquisition is running.
func (a *Acquirer) IsEnabled() bool {
	return a.enabled.Load()
}

// Poll performs one provider update and selects the closest body.
// It returns a nil snapshot when no body is in view. The error from the
// provider is returned unchanged; the caller decides how to handle it.
func (a *Acquirer) Poll(ctx context.Context) (*skeleton.Snapshot, error) {
	frame, err := a.provider.Update(ctx)
	if err != nil {
		if a.metrics != nil {
			a.metrics.RecordProviderError()
		}
		return nil, err
	}

	if a.metrics != nil {
		a.metrics.RecordFrame(len(frame.Bodies))
	}

	idx, ok := ClosestBody(frame.Bodies)
	if !ok {
		return nil, nil
	}

	captured := frame.Timestamp
	if captured.IsZero() {
		captured = time.Now()
	}

	body := frame.Bodies[idx]
	return &skeleton.Snapshot{
		BodyID:     body.ID,
		Joints:     body.Joints,
		CapturedAt: captured,
	}, nil
}

// Run polls until ctx is cancelled. Provider errors never stop the loop:
// they are logged, counted and published as "no data" for that iteration.
func (a *Acquirer) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.cell.Publish(nil)
			return ctx.Err()
		case <-ticker.C:
			a.step(ctx)
		}
	}
}

// step runs a single acquisition iteration.
func (a *Acquirer) step(ctx context.Context) {
	if !a.IsEnabled() {
		a.cell.Publish(nil)
		return
	}

	snap, err := a.Poll(ctx)
	if err != nil {
		a.errStreak++
		if a.errStreak == 1 {
			a.logger.Warn("body tracking update failed, publishing no data", zap.Error(err))
		} else {
			a.logger.Debug("body tracking update failed", zap.Error(err), zap.Int("streak", a.errStreak))
		}
		a.cell.Publish(nil)
		return
	}

	if a.errStreak > 0 {
		a.logger.Info("body tracking recovered", zap.Int("failed_updates", a.errStreak))
		a.errStreak = 0
	}

	a.cell.Publish(snap)
}
