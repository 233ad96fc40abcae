package gesture

import "github.com/ayusman/attention/internal/skeleton"

// Default kick thresholds in millimetres of ankle-minus-hip height.
const (
	DefaultKickActivateMM = 400
	DefaultKickReleaseMM  = 700
)

// Kick fires kick_event when either ankle comes within ActivateMM of its hip.
// It only re-arms once both ankles are back below ReleaseMM.
type Kick struct {
	activateMM float64
	releaseMM  float64
	active     bool
}

// NewKick creates a Kick evaluator. Non-positive thresholds use the defaults.
func NewKick(activateMM, releaseMM float64) *Kick {
	if activateMM <= 0 {
		activateMM = DefaultKickActivateMM
	}
	if releaseMM <= 0 {
		releaseMM = DefaultKickReleaseMM
	}
	return &Kick{activateMM: activateMM, releaseMM: releaseMM}
}

// Name implements Evaluator.
func (k *Kick) Name() string { return "kick" }

// Active reports whether a kick is currently in progress.
func (k *Kick) Active() bool { return k.active }

// Evaluate implements Evaluator.
func (k *Kick) Evaluate(snap *skeleton.Snapshot) []Event {
	if snap == nil {
		return nil
	}

	left := snap.At(skeleton.AnkleLeft).Y - snap.At(skeleton.HipLeft).Y
	right := snap.At(skeleton.AnkleRight).Y - snap.At(skeleton.HipRight).Y

	if k.active {
		if left > k.releaseMM && right > k.releaseMM {
			k.active = false
		}
		return nil
	}

	if min(left, right) >= k.activateMM {
		return nil
	}

	k.active = true
	leg := Left
	if right < left {
		leg = Right
	}
	return []Event{{Name: EventKick, Payload: KickPayload{Leg: leg}}}
}
