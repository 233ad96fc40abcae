// Package printapi serves the payroll-slip print endpoint.
package printapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ayusman/attention/internal/metrics"
	"github.com/ayusman/attention/internal/printer"
	"github.com/ayusman/attention/internal/slip"
	"github.com/ayusman/attention/internal/store"
)

// Response messages shown by the kiosk front end.
const (
	MsgQueued       = "已加入佇列"
	MsgNotConnected = "無法連接印表機"
	MsgFontError    = "字體錯誤"
	MsgPrintFailed  = "列印失敗: "
)

// LivenessText is returned by GET /.
const LivenessText = "Print Server Running"

const (
	defaultListLimit = 20
	maxListLimit     = 200
	maxBodyBytes     = 64 << 10
)

// Printer prints one job.
type Printer interface {
	Print(ctx context.Context, job printer.Job) (printer.Result, error)
}

// JobLister lists recorded print jobs.
type JobLister interface {
	List(limit int) ([]*store.PrintJob, error)
}

// Response is the body of POST /api/print.
type Response struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
	ID     string `json:"id,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics exposes /metrics and records request counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithJobs enables GET /api/prints.
func WithJobs(jobs JobLister) Option {
	return func(s *Server) {
		s.jobs = jobs
	}
}

// Server is the print HTTP server.
type Server struct {
	engine  *gin.Engine
	printer Printer
	jobs    JobLister
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Server and registers its routes.
func New(p Printer, opts ...Option) *Server {
	s := &Server{
		printer: p,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(s.logger), cors())
	s.engine = engine
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, LivenessText)
	})

	s.engine.POST("/api/print", s.instrument("print", s.handlePrint))
	s.engine.GET("/api/prints", s.instrument("prints", s.handleListPrints))

	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// instrument records request metrics for h under endpoint.
func (s *Server) instrument(endpoint string, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		h(c)
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(endpoint, c.Request.Method, c.Writer.Status(), time.Since(start))
		}
	}
}

func (s *Server) handlePrint(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		s.logger.Warn("failed to read print request body", zap.Error(err))
	}
	req := ParsePrintRequest(body)

	res, err := s.printer.Print(c.Request.Context(), printer.Job{
		Slip: slip.Slip{
			Name:           req.Name,
			WatchSeconds:   req.WatchSeconds,
			WatchedPercent: req.WatchedPercent,
		},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{
			Status: "error",
			Msg:    errorMessage(err),
			ID:     res.ID,
		})
		return
	}

	c.JSON(http.StatusOK, Response{Status: "success", Msg: MsgQueued, ID: res.ID})
}

// errorMessage maps a print failure to the message shown to the user.
func errorMessage(err error) string {
	var pe *printer.PrintError
	switch {
	case errors.Is(err, printer.ErrNotConnected):
		return MsgNotConnected
	case errors.Is(err, slip.ErrFont):
		return MsgFontError
	case errors.As(err, &pe):
		return MsgPrintFailed + pe.Err.Error()
	default:
		return MsgPrintFailed + err.Error()
	}
}

type jobResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name,omitempty"`
	WatchSeconds   int       `json:"watchSeconds"`
	WatchedPercent float64   `json:"watchedPercent"`
	Grade          string    `json:"grade"`
	Subtotal       int64     `json:"subtotal"`
	Status         string    `json:"status"`
	Message        string    `json:"message,omitempty"`
	DurationMS     int64     `json:"durationMs"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (s *Server) handleListPrints(c *gin.Context) {
	if s.jobs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job history disabled"})
		return
	}

	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxListLimit)
	}

	jobs, err := s.jobs.List(limit)
	if err != nil {
		s.logger.Error("failed to list print jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list print jobs"})
		return
	}

	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobResponse{
			ID:             j.ID,
			Name:           j.Name,
			WatchSeconds:   j.WatchSeconds,
			WatchedPercent: j.WatchedPercent,
			Grade:          j.Grade,
			Subtotal:       j.Subtotal,
			Status:         string(j.Status),
			Message:        j.Message,
			DurationMS:     j.Duration.Milliseconds(),
			CreatedAt:      j.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
