// Package tracker reads skeletons from the body-tracking SDK and publishes the closest body.
package tracker

import (
	"context"
	"errors"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/attention/internal/skeleton"
)

// ErrBridgeNotFound is returned when the SDK bridge executable cannot be located.
var ErrBridgeNotFound = errors.New("body tracking bridge not found")

// ErrBridgeTimeout is returned when the SDK bridge does not answer in time.
var ErrBridgeTimeout = errors.New("body tracking bridge timed out")

// Provider defines the interface for body-tracking implementations.
type Provider interface {
	// Update captures one frame and returns every body tracked in it.
	// Returns a Frame with no bodies if nobody is in view.
	Update(ctx context.Context) (Frame, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Body is one tracked person in a frame.
type Body struct {
	ID     uint32
	Joints skeleton.Joints
}

// Frame is the result of one provider update.
type Frame struct {
	Bodies    []Body
	Timestamp time.Time
}

// ClosestBody returns the index of the body whose torso joint has the smallest
// depth. Ties go to the lowest index. Returns false if the frame has no bodies.
func ClosestBody(bodies []Body) (int, bool) {
	if len(bodies) == 0 {
		return 0, false
	}

	depths := make([]float64, len(bodies))
	for i := range bodies {
		depths[i] = bodies[i].Joints[skeleton.Torso].Z
	}

	// MinIdx returns the first index holding the minimum.
	return floats.MinIdx(depths), true
}
