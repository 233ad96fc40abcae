// Package config defines the configuration shared by the gesture and print servers.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration for both binaries.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogDevelopment switches to the human-readable console encoder.
	LogDevelopment bool `koanf:"log_development"`

	GestureServer GestureServer `koanf:"gesture_server"`
	PrintServer   PrintServer   `koanf:"print_server"`
	Store         Store         `koanf:"store"`
	Tracker       Tracker       `koanf:"tracker"`
	Hand          Hand          `koanf:"hand"`
	Kick          Kick          `koanf:"kick"`
	Cursor        Cursor        `koanf:"cursor"`
	Preview       Preview       `koanf:"preview"`
	Printer       Printer       `koanf:"printer"`
}

// GestureServer configures the WebSocket event server.
type GestureServer struct {
	Addr      string `koanf:"addr"`
	StaticDir string `koanf:"static_dir"`
}

// PrintServer configures the slip printing HTTP service.
type PrintServer struct {
	Addr string `koanf:"addr"`
	// URL is where clients (the tray) reach the print server.
	URL string `koanf:"url"`
}

// Store configures the sqlite database.
type Store struct {
	// Path of the database file. Empty means ~/.attention/attention.db.
	Path string `koanf:"path"`
}

// Tracker configures body acquisition.
type Tracker struct {
	PollInterval time.Duration `koanf:"poll_interval"`
	// Mock replaces the SDK bridge with an in-memory provider.
	Mock bool `koanf:"mock"`
	// BridgeCommand is the helper executable that drives the body-tracking SDK.
	BridgeCommand string   `koanf:"bridge_command"`
	BridgeArgs    []string `koanf:"bridge_args"`
	// IdleTimeout stops the bridge process after this long without requests.
	IdleTimeout time.Duration `koanf:"idle_timeout"`
	// RequestTimeout bounds each frame request; StartTimeout bounds the first
	// one after the bridge starts.
	RequestTimeout time.Duration `koanf:"request_timeout"`
	StartTimeout   time.Duration `koanf:"start_timeout"`

	// Device settings forwarded to the bridge.
	ColorResolution string `koanf:"color_resolution"`
	ColorFormat     string `koanf:"color_format"`
	DepthMode       string `koanf:"depth_mode"`
}

// BridgeArgv returns BridgeArgs followed by the device settings as flags.
// Empty settings are left to the bridge's own defaults.
func (t Tracker) BridgeArgv() []string {
	argv := append([]string(nil), t.BridgeArgs...)
	for _, f := range []struct{ flag, value string }{
		{"--color-resolution", t.ColorResolution},
		{"--color-format", t.ColorFormat},
		{"--depth-mode", t.DepthMode},
	} {
		if f.value != "" {
			argv = append(argv, f.flag, f.value)
		}
	}
	return argv
}

// Hand configures the hand-raise evaluator.
type Hand struct {
	PollInterval time.Duration `koanf:"poll_interval"`
}

// Kick configures the kick evaluator. Displacements are ankle Y minus hip Y in millimetres.
type Kick struct {
	PollInterval time.Duration `koanf:"poll_interval"`
	ActivateMM   float64       `koanf:"activate_mm"`
	ReleaseMM    float64       `koanf:"release_mm"`
}

// Cursor configures the hand-to-screen mapping.
type Cursor struct {
	Enabled      bool          `koanf:"enabled"`
	PollInterval time.Duration `koanf:"poll_interval"`
	// Hand selects the dominant hand: "left" or "right".
	Hand    string  `koanf:"hand"`
	XMin    float64 `koanf:"x_min"`
	XMax    float64 `koanf:"x_max"`
	YMin    float64 `koanf:"y_min"`
	YMax    float64 `koanf:"y_max"`
	InvertX bool    `koanf:"invert_x"`
	InvertY bool    `koanf:"invert_y"`
	// Smoothing is the exponential smoothing factor in (0, 1]; 1 disables smoothing.
	Smoothing float64 `koanf:"smoothing"`
}

// Preview configures the optional colour camera preview stream.
type Preview struct {
	Enabled  bool `koanf:"enabled"`
	CameraID int  `koanf:"camera_id"`
	FPS      int  `koanf:"fps"`
	// Width and Height request the colour mode; the Kinect colour sensor
	// serves 1920x1080 for the 1080P setting.
	Width  int `koanf:"width"`
	Height int `koanf:"height"`
	// FourCC requests a driver pixel format, e.g. MJPG. Empty keeps the default.
	FourCC string `koanf:"fourcc"`
}

// Printer configures the USB receipt printer and slip rendering.
type Printer struct {
	VendorID    uint16 `koanf:"vendor_id"`
	ProductID   uint16 `koanf:"product_id"`
	OutEndpoint int    `koanf:"out_endpoint"`
	// FontPath is a TrueType/OpenType font with CJK coverage. Empty uses a built-in bitmap font.
	FontPath string `koanf:"font_path"`
	// PreviewPath receives a PNG of the last rendered slip. Empty disables it.
	PreviewPath string `koanf:"preview_path"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel: "info",
		GestureServer: GestureServer{
			Addr: ":5000",
		},
		PrintServer: PrintServer{
			Addr: ":4000",
			URL:  "http://127.0.0.1:4000",
		},
		Tracker: Tracker{
			PollInterval:    30 * time.Millisecond,
			BridgeCommand:   "python3",
			BridgeArgs:      []string{"scripts/k4abt_bridge.py"},
			IdleTimeout:     30 * time.Second,
			RequestTimeout:  2 * time.Second,
			StartTimeout:    30 * time.Second,
			ColorResolution: "1080P",
			ColorFormat:     "BGRA32",
			DepthMode:       "WFOV_2X2BINNED",
		},
		Hand: Hand{
			PollInterval: 50 * time.Millisecond,
		},
		Kick: Kick{
			PollInterval: 50 * time.Millisecond,
			ActivateMM:   400,
			ReleaseMM:    700,
		},
		Cursor: Cursor{
			Enabled:      true,
			PollInterval: 33 * time.Millisecond,
			Hand:         "right",
			XMin:         -600,
			XMax:         600,
			YMin:         -700,
			YMax:         300,
			Smoothing:    0.35,
		},
		Preview: Preview{
			FPS:    15,
			Width:  1920,
			Height: 1080,
		},
		Printer: Printer{
			VendorID:    0x1fc9,
			ProductID:   0x2016,
			OutEndpoint: 0x03,
			PreviewPath: "last_print_preview.png",
		},
	}
}

// Validate reports the first inconsistency in c.
func (c *Config) Validate() error {
	if c.GestureServer.Addr == "" {
		return fmt.Errorf("%w: gesture_server.addr must not be empty", ErrInvalidConfig)
	}
	if c.PrintServer.Addr == "" {
		return fmt.Errorf("%w: print_server.addr must not be empty", ErrInvalidConfig)
	}

	intervals := map[string]time.Duration{
		"tracker.poll_interval": c.Tracker.PollInterval,
		"hand.poll_interval":    c.Hand.PollInterval,
		"kick.poll_interval":    c.Kick.PollInterval,
		"cursor.poll_interval":  c.Cursor.PollInterval,
	}
	for key, d := range intervals {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, key)
		}
	}

	if c.Kick.ReleaseMM < c.Kick.ActivateMM {
		return fmt.Errorf("%w: kick.release_mm (%.0f) must not be below kick.activate_mm (%.0f)",
			ErrInvalidConfig, c.Kick.ReleaseMM, c.Kick.ActivateMM)
	}

	if c.Cursor.Hand != "left" && c.Cursor.Hand != "right" {
		return fmt.Errorf("%w: cursor.hand must be left or right, got %q", ErrInvalidConfig, c.Cursor.Hand)
	}
	if c.Cursor.XMax <= c.Cursor.XMin || c.Cursor.YMax <= c.Cursor.YMin {
		return fmt.Errorf("%w: cursor capture volume is empty", ErrInvalidConfig)
	}
	if c.Cursor.Smoothing <= 0 || c.Cursor.Smoothing > 1 {
		return fmt.Errorf("%w: cursor.smoothing must be in (0, 1], got %g", ErrInvalidConfig, c.Cursor.Smoothing)
	}

	if c.Printer.OutEndpoint <= 0 {
		return fmt.Errorf("%w: printer.out_endpoint must be positive", ErrInvalidConfig)
	}
	return nil
}
