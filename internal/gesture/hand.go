package gesture

import "github.com/ayusman/attention/internal/skeleton"

// HandRaise fires hand_event when a hand rises above the head.
// Each side has its own edge, so raising the second hand while the first
// is still up fires again for that side.
type HandRaise struct {
	left  Edge
	right Edge
}

// NewHandRaise creates a HandRaise evaluator with both hands down.
func NewHandRaise() *HandRaise {
	return &HandRaise{}
}

// Name implements Evaluator.
func (h *HandRaise) Name() string { return "hand_raise" }

// Evaluate implements Evaluator. Left is checked before right.
func (h *HandRaise) Evaluate(snap *skeleton.Snapshot) []Event {
	if snap == nil {
		return nil
	}

	head := snap.At(skeleton.Head).Y

	var events []Event
	if h.left.Update(snap.At(skeleton.HandLeft).Y < head) {
		events = append(events, Event{Name: EventHand, Payload: HandPayload{Side: Left}})
	}
	if h.right.Update(snap.At(skeleton.HandRight).Y < head) {
		events = append(events, Event{Name: EventHand, Payload: HandPayload{Side: Right}})
	}
	return events
}
