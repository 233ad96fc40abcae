package printer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/attention/internal/metrics"
	"github.com/ayusman/attention/internal/slip"
	"github.com/ayusman/attention/internal/store"
)

// PrintError is returned when the printer connection fails mid-job.
type PrintError struct {
	Err error
}

func (e *PrintError) Error() string {
	return "print failed: " + e.Err.Error()
}

func (e *PrintError) Unwrap() error {
	return e.Err
}

// Job is one slip to print.
type Job struct {
	// ID is generated when empty.
	ID   string
	Slip slip.Slip
}

// Result describes a printed slip.
type Result struct {
	ID       string
	Grade    slip.Grade
	Amounts  slip.Amounts
	Duration time.Duration
}

// JobRecorder persists finished jobs.
type JobRecorder interface {
	Create(j *store.PrintJob) error
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records job outcomes and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRecorder stores every job outcome.
func WithRecorder(r JobRecorder) Option {
	return func(s *Service) {
		s.jobs = r
	}
}

// WithPreviewPath writes a PNG of every rendered slip to path.
func WithPreviewPath(path string) Option {
	return func(s *Service) {
		s.previewPath = path
	}
}

// WithRendererOptions passes options to the slip renderer.
func WithRendererOptions(opts ...slip.RendererOption) Option {
	return func(s *Service) {
		s.rendererOpts = append(s.rendererOpts, opts...)
	}
}

// Service renders slips and sends them to the printer. It keeps one cached
// connection and drops it after any failed write so the next job reconnects.
// Jobs are printed one at a time.
type Service struct {
	connector    Connector
	fontPath     string
	previewPath  string
	rendererOpts []slip.RendererOption
	logger       *zap.Logger
	metrics      *metrics.Metrics
	jobs         JobRecorder

	mu       sync.Mutex
	conn     Conn
	renderer *slip.Renderer
}

// NewService creates a Service. The font at fontPath is loaded on the first
// job; an empty path uses the built-in face.
func NewService(connector Connector, fontPath string, opts ...Option) *Service {
	s := &Service{
		connector: connector,
		fontPath:  fontPath,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens the printer connection ahead of the first job.
func (s *Service) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.connLocked(ctx)
	return err
}

// Connected reports whether a connection is cached.
func (s *Service) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Print renders job and sends it to the printer.
// Errors wrap ErrNotConnected, slip.ErrFont, or are a *PrintError.
func (s *Service) Print(ctx context.Context, job Job) (Result, error) {
	start := time.Now()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	s.mu.Lock()
	res, err := s.printLocked(ctx, job)
	s.mu.Unlock()

	res.ID = job.ID
	res.Duration = time.Since(start)
	s.record(job, res, err)
	return res, err
}

func (s *Service) printLocked(ctx context.Context, job Job) (Result, error) {
	res := Result{
		Grade:   job.Slip.Grade(),
		Amounts: job.Slip.Amounts(),
	}

	conn, err := s.connLocked(ctx)
	if err != nil {
		return res, err
	}

	r, err := s.rendererLocked()
	if err != nil {
		return res, err
	}

	img := r.Render(job.Slip)
	if s.previewPath != "" {
		if err := writePreview(s.previewPath, img); err != nil {
			s.logger.Warn("failed to write slip preview", zap.String("path", s.previewPath), zap.Error(err))
		}
	}

	s.logger.Info("printing slip",
		zap.String("job_id", job.ID),
		zap.String("grade", string(res.Grade)),
		zap.String("title", res.Grade.Info().Title),
		zap.Int("watch_seconds", job.Slip.WatchSeconds),
		zap.Float64("watched_percent", job.Slip.WatchedPercent))

	data := Encode(img)
	n, err := conn.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		s.resetLocked()
		return res, &PrintError{Err: err}
	}

	return res, nil
}

func (s *Service) connLocked(ctx context.Context) (Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}

	s.logger.Info("connecting to printer")
	conn, err := s.connector.Connect(ctx)
	if err != nil {
		s.logger.Warn("printer connection failed", zap.Error(err))
		if !errors.Is(err, ErrNotConnected) {
			err = fmt.Errorf("%w: %v", ErrNotConnected, err)
		}
		return nil, err
	}

	s.logger.Info("printer connected")
	s.conn = conn
	return conn, nil
}

func (s *Service) rendererLocked() (*slip.Renderer, error) {
	if s.renderer != nil {
		return s.renderer, nil
	}

	r, err := slip.NewRenderer(s.fontPath, s.rendererOpts...)
	if err != nil {
		s.logger.Error("failed to load slip font", zap.String("path", s.fontPath), zap.Error(err))
		return nil, err
	}
	s.renderer = r
	return r, nil
}

// resetLocked closes and forgets the cached connection.
func (s *Service) resetLocked() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Debug("closing failed printer connection", zap.Error(err))
	}
	s.conn = nil
}

// Close releases the cached connection.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *Service) record(job Job, res Result, err error) {
	status := store.JobStatusSuccess
	message := ""
	if err != nil {
		status = store.JobStatusError
		message = err.Error()
		s.logger.Warn("print job failed", zap.String("job_id", job.ID), zap.Error(err))
	}

	if s.metrics != nil {
		s.metrics.RecordPrintJob(string(status), res.Duration)
	}

	if s.jobs == nil {
		return
	}
	rec := &store.PrintJob{
		ID:             job.ID,
		Name:           job.Slip.Name,
		WatchSeconds:   job.Slip.WatchSeconds,
		WatchedPercent: job.Slip.WatchedPercent,
		Grade:          string(res.Grade),
		Subtotal:       res.Amounts.Subtotal,
		Status:         status,
		Message:        message,
		Duration:       res.Duration,
	}
	if err := s.jobs.Create(rec); err != nil {
		s.logger.Warn("failed to record print job", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func writePreview(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
