package gesture

import (
	"errors"
	"math"

	"github.com/ayusman/attention/internal/skeleton"
)

// CursorConfig describes the capture volume mapped onto the screen.
type CursorConfig struct {
	// Hand is "left" or "right".
	Hand    string
	XMin    float64
	XMax    float64
	YMin    float64
	YMax    float64
	InvertX bool
	InvertY bool
	// Smoothing is the exponential smoothing factor in (0,1]. 1 disables smoothing.
	Smoothing float64
}

// Validate checks the capture volume and smoothing factor.
func (c CursorConfig) Validate() error {
	if c.Hand != Left && c.Hand != Right {
		return errors.New("cursor hand must be left or right")
	}
	if c.XMax <= c.XMin || c.YMax <= c.YMin {
		return errors.New("cursor capture volume is empty")
	}
	if c.Smoothing <= 0 || c.Smoothing > 1 {
		return errors.New("cursor smoothing must be in (0,1]")
	}
	return nil
}

// Cursor streams the dominant hand position as cursor_move on every poll.
type Cursor struct {
	cfg    CursorConfig
	joint  skeleton.Joint
	x, y   float64
	seeded bool
}

// NewCursor creates a Cursor evaluator.
func NewCursor(cfg CursorConfig) (*Cursor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	joint := skeleton.HandRight
	if cfg.Hand == Left {
		joint = skeleton.HandLeft
	}
	return &Cursor{cfg: cfg, joint: joint}, nil
}

// Name implements Evaluator.
func (c *Cursor) Name() string { return "cursor" }

// Evaluate implements Evaluator.
func (c *Cursor) Evaluate(snap *skeleton.Snapshot) []Event {
	if snap == nil {
		return nil
	}

	hand := snap.At(c.joint)
	rawX := normalise(hand.X, c.cfg.XMin, c.cfg.XMax)
	rawY := normalise(hand.Y, c.cfg.YMin, c.cfg.YMax)
	if c.cfg.InvertX {
		rawX = 1 - rawX
	}
	if c.cfg.InvertY {
		rawY = 1 - rawY
	}

	if !c.seeded {
		c.x, c.y = rawX, rawY
		c.seeded = true
	} else {
		c.x += (rawX - c.x) * c.cfg.Smoothing
		c.y += (rawY - c.y) * c.cfg.Smoothing
	}

	return []Event{{Name: EventCursor, Payload: CursorPayload{X: c.x, Y: c.y}}}
}

// normalise clamps v to [lo,hi] and scales it to [0,1].
func normalise(v, lo, hi float64) float64 {
	v = math.Max(lo, math.Min(hi, v))
	return (v - lo) / (hi - lo)
}
