// Package capture reads colour frames for the skeleton preview stream.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Kinect colour stream defaults: 1080p at the tracker's preview rate.
const (
	DefaultFPS    = 15
	DefaultWidth  = 1920
	DefaultHeight = 1080
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame is returned when the device delivers no usable frame.
	ErrNoFrame = errors.New("no frame from camera")
)

// Camera defines the interface for preview frame sources.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns a BGR frame. The caller must close it.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// DeviceConfig selects a colour device and the mode requested from its driver.
type DeviceConfig struct {
	ID     int
	Width  int
	Height int
	FPS    int
	// FourCC requests a pixel format such as "MJPG" or "YUY2". Empty keeps
	// the driver default.
	FourCC string
}

func (c DeviceConfig) withDefaults() DeviceConfig {
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = DefaultWidth, DefaultHeight
	}
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	return c
}

// Device reads the colour stream of a UVC device, such as the Kinect colour
// sensor, and hands out BGR frames whatever layout the driver delivers.
type Device struct {
	mu     sync.Mutex
	config DeviceConfig
	vc     *gocv.VideoCapture
	width  int
	height int
}

// NewCamera creates a Device. Zero fields of config take the defaults.
func NewCamera(config DeviceConfig) *Device {
	return &Device{config: config.withDefaults()}
}

// Open opens the device and requests the configured mode. The driver may
// negotiate a different size; Size reports what was granted.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(d.config.ID)
	if err != nil {
		return fmt.Errorf("open colour device %d: %w", d.config.ID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open colour device %d: device unavailable", d.config.ID)
	}

	if d.config.FourCC != "" {
		vc.Set(gocv.VideoCaptureFOURCC, float64(vc.ToCodec(d.config.FourCC)))
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(d.config.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(d.config.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(d.config.FPS))

	d.width = int(vc.Get(gocv.VideoCaptureFrameWidth))
	d.height = int(vc.Get(gocv.VideoCaptureFrameHeight))
	d.vc = vc
	return nil
}

// Close releases the device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil
	}
	err := d.vc.Close()
	d.vc = nil
	return err
}

// ReadFrame grabs the next frame and converts it to BGR.
func (d *Device) ReadFrame() (*gocv.Mat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if !d.vc.Read(&mat) || mat.Empty() {
		mat.Close()
		return nil, ErrNoFrame
	}
	if err := toBGR(&mat); err != nil {
		mat.Close()
		return nil, err
	}
	return &mat, nil
}

// SetFPS changes the requested rate. Values less than or equal to 0 are ignored.
func (d *Device) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.config.FPS = fps
	if d.vc != nil {
		d.vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the requested rate.
func (d *Device) FPS() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config.FPS
}

// IsOpen reports whether the device is open.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vc != nil
}

// Size returns the frame size granted by the driver, or the requested size
// before Open.
func (d *Device) Size() (width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil || d.width <= 0 || d.height <= 0 {
		return d.config.Width, d.config.Height
	}
	return d.width, d.height
}

// toBGR converts m in place to 3-channel BGR. The Kinect colour stream is
// BGRA32; some drivers hand out grey frames.
func toBGR(m *gocv.Mat) error {
	var code gocv.ColorConversionCode
	switch m.Channels() {
	case 3:
		return nil
	case 4:
		code = gocv.ColorBGRAToBGR
	case 1:
		code = gocv.ColorGrayToBGR
	default:
		return fmt.Errorf("%w: unsupported %d-channel frame", ErrNoFrame, m.Channels())
	}

	bgr := gocv.NewMat()
	gocv.CvtColor(*m, &bgr, code)
	m.Close()
	*m = bgr
	return nil
}
