package capture

import (
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

// CanvasCamera produces solid-colour frames. The preview uses it when no
// colour camera is attached so the skeleton is drawn on a plain background.
type CanvasCamera struct {
	mu      sync.Mutex
	width   int
	height  int
	bg      color.RGBA
	fps     int
	running bool
}

// NewCanvasCamera creates a CanvasCamera of the given size.
func NewCanvasCamera(width, height int, bg color.RGBA) *CanvasCamera {
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	return &CanvasCamera{width: width, height: height, bg: bg, fps: DefaultFPS}
}

// Open implements Camera.
func (c *CanvasCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	return nil
}

// Close implements Camera.
func (c *CanvasCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// ReadFrame returns a new frame filled with the background colour.
func (c *CanvasCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMatWithSize(c.height, c.width, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&mat, image.Rect(0, 0, c.width, c.height), c.bg, -1)
	return &mat, nil
}

// SetFPS implements Camera.
func (c *CanvasCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

// FPS implements Camera.
func (c *CanvasCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen implements Camera.
func (c *CanvasCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
