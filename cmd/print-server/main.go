package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ayusman/attention/internal/config"
	"github.com/ayusman/attention/internal/logger"
	"github.com/ayusman/attention/internal/metrics"
	"github.com/ayusman/attention/internal/printapi"
	"github.com/ayusman/attention/internal/printer"
	"github.com/ayusman/attention/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (default $ATTENTION_CONFIG)")
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

	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		logger.L().Error("print server stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logger.Named("print")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	m := metrics.New(metrics.WithNamespace("attention"), metrics.WithProcessCollectors())

	connector := printer.NewUSBConnector(printer.USBConfig{
		VendorID:    cfg.Printer.VendorID,
		ProductID:   cfg.Printer.ProductID,
		OutEndpoint: cfg.Printer.OutEndpoint,
		Logger:      logger.Named("usb"),
	})
	svc := printer.NewService(connector, cfg.Printer.FontPath,
		printer.WithLogger(logger.Named("printer")),
		printer.WithMetrics(m),
		printer.WithRecorder(st.PrintJobs()),
		printer.WithPreviewPath(cfg.Printer.PreviewPath))
	defer svc.Close()

	// A missing printer is not fatal; every print retries the connection.
	if err := svc.Connect(ctx); err != nil {
		log.Warn("printer not connected at startup",
			zap.String("vid", fmt.Sprintf("%04x", cfg.Printer.VendorID)),
			zap.String("pid", fmt.Sprintf("%04x", cfg.Printer.ProductID)),
			zap.Error(err))
	} else {
		log.Info("printer connected")
	}

	api := printapi.New(svc,
		printapi.WithLogger(logger.Named("printapi")),
		printapi.WithMetrics(m),
		printapi.WithJobs(st.PrintJobs()))

	srv := &http.Server{
		Addr:              cfg.PrintServer.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("print server listening", zap.String("addr", cfg.PrintServer.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("print server stopped")
	return nil
}
