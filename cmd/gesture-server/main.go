package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/attention/internal/app"
	"github.com/ayusman/attention/internal/capture"
	"github.com/ayusman/attention/internal/config"
	"github.com/ayusman/attention/internal/logger"
	"github.com/ayusman/attention/internal/metrics"
	"github.com/ayusman/attention/internal/printclient"
	"github.com/ayusman/attention/internal/store"
	"github.com/ayusman/attention/internal/tracker"
	"github.com/ayusman/attention/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (default $ATTENTION_CONFIG)")
	withTray := flag.Bool("tray", false, "show the system tray menu")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogDevelopment); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, *withTray); err != nil {
		logger.L().Error("gesture server stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, withTray bool) error {
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	log.Info("store opened", zap.String("path", st.Path()))

	m := metrics.New(metrics.WithNamespace("attention"), metrics.WithProcessCollectors())

	provider, err := newProvider(cfg.Tracker, logger.Named("bridge"))
	if err != nil {
		return err
	}
	defer provider.Close()

	appCfg := app.Config{
		Settings: cfg,
		Store:    st,
		Provider: provider,
		Metrics:  m,
		Logger:   logger.L(),
	}
	if cfg.Preview.Enabled {
		cam := openPreview(cfg.Preview, log)
		defer cam.Close()
		appCfg.Camera = cam
	}

	a, err := app.New(appCfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !withTray {
		return a.Run(ctx, cfg.GestureServer.Addr)
	}

	t := newTray(ctx, cfg, a, st, log)
	a.OnEvent(func(e *store.GestureEvent) { t.SetLastEvent(e.Name) })
	t.OnQuit(cancel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx, cfg.GestureServer.Addr)
		cancel()
	}()
	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	// systray must own the main thread.
	t.Run()
	cancel()
	return <-errCh
}

func newProvider(cfg config.Tracker, log *zap.Logger) (tracker.Provider, error) {
	if cfg.Mock {
		p := tracker.NewMockProvider()
		p.SetBodies([]tracker.Body{tracker.StandingBody(1, 1500)})
		log.Info("using mock body provider")
		return p, nil
	}

	p, err := tracker.NewBridgeProvider(tracker.BridgeConfig{
		Command:        cfg.BridgeCommand,
		Args:           cfg.BridgeArgv(),
		IdleTimeout:    cfg.IdleTimeout,
		RequestTimeout: cfg.RequestTimeout,
		StartTimeout:   cfg.StartTimeout,
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("body tracking bridge: %w", err)
	}
	return p, nil
}

// openPreview opens the colour camera, falling back to a blank canvas.
func openPreview(cfg config.Preview, log *zap.Logger) capture.Camera {
	dev := capture.NewCamera(capture.DeviceConfig{
		ID:     cfg.CameraID,
		Width:  cfg.Width,
		Height: cfg.Height,
		FPS:    cfg.FPS,
		FourCC: cfg.FourCC,
	})
	if err := dev.Open(); err != nil {
		log.Warn("colour camera unavailable, preview draws on a blank canvas",
			zap.Int("camera_id", cfg.CameraID), zap.Error(err))
		width, height := dev.Size()
		canvas := capture.NewCanvasCamera(width, height, color.RGBA{A: 255})
		canvas.SetFPS(cfg.FPS)
		canvas.Open()
		return canvas
	}

	width, height := dev.Size()
	log.Info("colour camera opened", zap.Int("camera_id", cfg.CameraID),
		zap.Int("width", width), zap.Int("height", height))
	return dev
}

func newTray(ctx context.Context, cfg *config.Config, tracking tray.Tracking, st *store.Store, log *zap.Logger) *tray.Tray {
	actions := &tray.Actions{
		Tracking: tracking,
		Settings: st.Settings(),
		Printer:  printclient.New(cfg.PrintServer.URL, printclient.DefaultTimeout),
		Logger:   log,
	}

	t := tray.New(tracking.IsEnabled())
	t.OnToggle(actions.SetTracking)
	t.OnPrintTest(func() {
		reqCtx, cancel := context.WithTimeout(ctx, printclient.DefaultTimeout+time.Second)
		defer cancel()

		msg, err := actions.PrintTestSlip(reqCtx)
		if msg == "" && err != nil {
			msg = "unreachable"
		}
		t.SetStatus(msg)
	})
	return t
}
