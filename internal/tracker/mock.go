package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"github.com/ayusman/attention/internal/skeleton"
)

// MockProvider is a test implementation of the Provider interface.
// It allows tests to control the tracked bodies and errors.
type MockProvider struct {
	mu     sync.Mutex
	bodies []Body
	err    error
	calls  int
}

// NewMockProvider creates a new MockProvider with no bodies in view.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// SetBodies sets the bodies that will be returned by Update.
func (m *MockProvider) SetBodies(bodies []Body) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = bodies
}

// SetError sets the error that will be returned by Update.
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Update has been called.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Update returns the pre-configured bodies or error.
func (m *MockProvider) Update(ctx context.Context) (Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return Frame{}, m.err
	}

	bodies := make([]Body, len(m.bodies))
	copy(bodies, m.bodies)
	return Frame{Bodies: bodies, Timestamp: time.Now()}, nil
}

// Close is a no-op for the mock provider.
func (m *MockProvider) Close() error {
	return nil
}

// StandingBody returns a preset Body of a person standing upright with
// arms down, pelvis at the given depth in millimetres.
func StandingBody(id uint32, depth float64) Body {
	b := Body{ID: id}
	set := func(j skeleton.Joint, x, y float64) {
		b.Joints[j] = r3.Vector{X: x, Y: y, Z: depth}
	}

	// Y grows downward; pelvis sits at the camera's vertical origin.
	set(skeleton.Pelvis, 0, 0)
	set(skeleton.SpineNavel, 0, -150)
	set(skeleton.SpineChest, 0, -300)
	set(skeleton.Neck, 0, -450)
	set(skeleton.Head, 0, -550)
	set(skeleton.Nose, 0, -540)
	set(skeleton.EyeLeft, -30, -570)
	set(skeleton.EyeRight, 30, -570)
	set(skeleton.EarLeft, -70, -560)
	set(skeleton.EarRight, 70, -560)

	set(skeleton.ClavicleLeft, -60, -400)
	set(skeleton.ShoulderLeft, -180, -400)
	set(skeleton.ElbowLeft, -200, -130)
	set(skeleton.WristLeft, -210, 100)
	set(skeleton.HandLeft, -210, 170)
	set(skeleton.HandTipLeft, -210, 230)
	set(skeleton.ThumbLeft, -180, 180)

	set(skeleton.ClavicleRight, 60, -400)
	set(skeleton.ShoulderRight, 180, -400)
	set(skeleton.ElbowRight, 200, -130)
	set(skeleton.WristRight, 210, 100)
	set(skeleton.HandRight, 210, 170)
	set(skeleton.HandTipRight, 210, 230)
	set(skeleton.ThumbRight, 180, 180)

	set(skeleton.HipLeft, -100, 20)
	set(skeleton.KneeLeft, -100, 450)
	set(skeleton.AnkleLeft, -100, 870)
	set(skeleton.FootLeft, -100, 920)

	set(skeleton.HipRight, 100, 20)
	set(skeleton.KneeRight, 100, 450)
	set(skeleton.AnkleRight, 100, 870)
	set(skeleton.FootRight, 100, 920)

	return b
}

// HandsUpBody returns StandingBody with the selected hands raised above the head.
func HandsUpBody(id uint32, depth float64, left, right bool) Body {
	b := StandingBody(id, depth)
	if left {
		b.Joints[skeleton.WristLeft].Y = -700
		b.Joints[skeleton.HandLeft].Y = -780
		b.Joints[skeleton.HandTipLeft].Y = -850
	}
	if right {
		b.Joints[skeleton.WristRight].Y = -700
		b.Joints[skeleton.HandRight].Y = -780
		b.Joints[skeleton.HandTipRight].Y = -850
	}
	return b
}

// KickBody returns StandingBody with one ankle lifted so that ankle Y minus
// hip Y equals displacement. leg is "left" or "right".
func KickBody(id uint32, depth float64, leg string, displacement float64) Body {
	b := StandingBody(id, depth)
	hip, ankle := skeleton.HipLeft, skeleton.AnkleLeft
	if leg == "right" {
		hip, ankle = skeleton.HipRight, skeleton.AnkleRight
	}
	b.Joints[ankle].Y = b.Joints[hip].Y + displacement
	return b
}
