// Package app assembles the gesture server: body acquisition, gesture
// evaluators and the WebSocket/HTTP front.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/attention/internal/capture"
	"github.com/ayusman/attention/internal/config"
	"github.com/ayusman/attention/internal/gesture"
	"github.com/ayusman/attention/internal/metrics"
	"github.com/ayusman/attention/internal/server"
	"github.com/ayusman/attention/internal/skeleton"
	"github.com/ayusman/attention/internal/store"
	"github.com/ayusman/attention/internal/tracker"
)

// Config holds the collaborators of an App.
type Config struct {
	Settings *config.Config
	// Store is optional; without it events are not recorded and the
	// tracking switch is not remembered.
	Store    *store.Store
	Provider tracker.Provider
	// Camera enables the preview stream.
	Camera  capture.Camera
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// App is the gesture server.
type App struct {
	config   Config
	logger   *zap.Logger
	cell     *skeleton.Cell
	acq      *tracker.Acquirer
	runner   *gesture.Runner
	server   *server.Server
	recorder *server.Recorder

	mu      sync.RWMutex
	onEvent func(e *store.GestureEvent)
}

// New wires an App. Tracking starts in the state last saved in the store.
func New(c Config) (*App, error) {
	if c.Settings == nil {
		c.Settings = config.New()
	}
	if c.Provider == nil {
		return nil, fmt.Errorf("app: no body provider")
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	s := c.Settings
	a := &App{
		config: c,
		logger: c.Logger,
		cell:   skeleton.NewCell(),
	}

	a.acq = tracker.NewAcquirer(c.Provider, a.cell, s.Tracker.PollInterval,
		tracker.WithLogger(c.Logger.Named("tracker")),
		tracker.WithMetrics(c.Metrics))
	if c.Store != nil {
		a.acq.SetEnabled(c.Store.Settings().GetBool(store.SettingTrackingEnabled, true))
	}

	srvCfg := server.Config{
		StaticDir: s.GestureServer.StaticDir,
		Tracking:  a,
		Camera:    c.Camera,
		Cell:      a.cell,
		Metrics:   c.Metrics,
		Logger:    c.Logger.Named("server"),
	}
	var events server.EventStore
	if c.Store != nil {
		srvCfg.Events = c.Store.Events()
		events = c.Store.Events()
	}
	a.server = server.New(srvCfg)

	a.recorder = server.NewRecorder(a.server.Hub(), events, c.Logger.Named("recorder"))
	a.recorder.OnEvent = a.notify

	runner, err := newRunner(s, a.cell, a.recorder, c.Metrics, c.Logger.Named("gesture"))
	if err != nil {
		return nil, err
	}
	a.runner = runner

	return a, nil
}

func newRunner(s *config.Config, cell *skeleton.Cell, emitter gesture.Emitter, m *metrics.Metrics, logger *zap.Logger) (*gesture.Runner, error) {
	runner := gesture.NewRunner(cell, emitter,
		gesture.WithLogger(logger),
		gesture.WithMetrics(m))

	runner.Add(gesture.NewHandRaise(), s.Hand.PollInterval)
	runner.Add(gesture.NewKick(s.Kick.ActivateMM, s.Kick.ReleaseMM), s.Kick.PollInterval)

	if s.Cursor.Enabled {
		cursor, err := gesture.NewCursor(gesture.CursorConfig{
			Hand:      s.Cursor.Hand,
			XMin:      s.Cursor.XMin,
			XMax:      s.Cursor.XMax,
			YMin:      s.Cursor.YMin,
			YMax:      s.Cursor.YMax,
			InvertX:   s.Cursor.InvertX,
			InvertY:   s.Cursor.InvertY,
			Smoothing: s.Cursor.Smoothing,
		})
		if err != nil {
			return nil, fmt.Errorf("cursor: %w", err)
		}
		runner.Add(cursor, s.Cursor.PollInterval)
	}
	return runner, nil
}

// SetEnabled pauses or resumes body tracking.
func (a *App) SetEnabled(enabled bool) {
	a.acq.SetEnabled(enabled)
}

// IsEnabled reports whether body tracking is running.
func (a *App) IsEnabled() bool {
	return a.acq.IsEnabled()
}

// OnEvent registers fn to be called for every recorded edge-triggered event.
func (a *App) OnEvent(fn func(e *store.GestureEvent)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onEvent = fn
}

func (a *App) notify(e *store.GestureEvent) {
	a.mu.RLock()
	fn := a.onEvent
	a.mu.RUnlock()

	if fn != nil {
		fn(e)
	}
}

// Handler returns the HTTP handler serving /, /ws and the /api routes.
func (a *App) Handler() http.Handler {
	return a.server
}

// Hub returns the WebSocket hub.
func (a *App) Hub() *server.Hub {
	return a.server.Hub()
}

// Cell returns the snapshot cell shared by acquisition and evaluation.
func (a *App) Cell() *skeleton.Cell {
	return a.cell
}

// Run starts the pipeline and serves HTTP on addr until ctx is cancelled.
func (a *App) Run(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.RunPipeline(ctx)
	}()

	err := a.server.ListenAndServe(ctx, addr)
	cancel()
	wg.Wait()
	return err
}
