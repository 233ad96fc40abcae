package tray

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayusman/attention/internal/printclient"
	"github.com/ayusman/attention/internal/store"
)

// TestSlip is the request sent by "Print test slip".
var TestSlip = printclient.Request{
	Name:           "測試",
	WatchSeconds:   90,
	WatchedPercent: 85,
}

// Tracking switches body acquisition.
type Tracking interface {
	SetEnabled(enabled bool)
	IsEnabled() bool
}

// Settings persists flags across restarts.
type Settings interface {
	SetBool(key string, value bool) error
}

// SlipPrinter submits slips to the print server.
type SlipPrinter interface {
	Print(ctx context.Context, req printclient.Request) (*printclient.Response, error)
}

// Actions implements the tray menu commands.
type Actions struct {
	Tracking Tracking
	Settings Settings
	Printer  SlipPrinter
	Logger   *zap.Logger
}

func (a *Actions) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// SetTracking switches acquisition and remembers the choice.
func (a *Actions) SetTracking(enabled bool) {
	a.Tracking.SetEnabled(enabled)
	a.logger().Info("tracking toggled", zap.Bool("enabled", enabled))

	if a.Settings == nil {
		return
	}
	if err := a.Settings.SetBool(store.SettingTrackingEnabled, enabled); err != nil {
		a.logger().Warn("persist tracking setting", zap.Error(err))
	}
}

// PrintTestSlip sends TestSlip and returns the server message.
func (a *Actions) PrintTestSlip(ctx context.Context) (string, error) {
	if a.Printer == nil {
		return "", fmt.Errorf("no print server configured")
	}

	resp, err := a.Printer.Print(ctx, TestSlip)
	if err != nil {
		a.logger().Warn("test print failed", zap.Error(err))
		if resp != nil && resp.Msg != "" {
			return resp.Msg, err
		}
		return "", err
	}

	a.logger().Info("test print queued", zap.String("job_id", resp.ID))
	return resp.Msg, nil
}
