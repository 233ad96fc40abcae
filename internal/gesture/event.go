// Package gesture turns joint snapshots into edge-triggered and continuous client events.
package gesture

import (
	"context"

	"github.com/ayusman/attention/internal/skeleton"
)

// Event names pushed to clients.
const (
	EventHand   = "hand_event"
	EventKick   = "kick_event"
	EventCursor = "cursor_move"
)

// Sides and legs reported in event payloads.
const (
	Left  = "left"
	Right = "right"
)

// Event is one notification for connected clients.
type Event struct {
	Name    string
	Payload any
	// BodyID is the tracked body the event came from. Set by the Runner.
	BodyID uint32
}

// HandPayload is the data of a hand_event.
type HandPayload struct {
	Side string `json:"side"`
}

// KickPayload is the data of a kick_event.
type KickPayload struct {
	Leg string `json:"leg"`
}

// CursorPayload is the data of a cursor_move. Both fields are in [0,1]
// with the origin at the top-left of the screen.
type CursorPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Emitter delivers events to clients.
type Emitter interface {
	Emit(ctx context.Context, ev Event) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, ev Event) error

// Emit calls f(ctx, ev).
func (f EmitterFunc) Emit(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Evaluator derives events from a snapshot. Implementations keep their own
// state and are only ever called from a single goroutine.
type Evaluator interface {
	Name() string
	// Evaluate is never called with a nil snapshot by the Runner, but
	// implementations treat nil as "no transition" anyway.
	Evaluate(snap *skeleton.Snapshot) []Event
}
