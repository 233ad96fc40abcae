package server

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/ayusman/attention/internal/gesture"
	"github.com/ayusman/attention/internal/store"
)

// EventStore persists gesture events.
type EventStore interface {
	Create(e *store.GestureEvent) error
}

// Recorder is a gesture.Emitter that stores edge-triggered events before
// forwarding every event to the next emitter. Cursor moves are not stored.
type Recorder struct {
	next   gesture.Emitter
	events EventStore
	logger *zap.Logger

	// OnEvent, if set, is called with every stored event.
	OnEvent func(e *store.GestureEvent)
}

// NewRecorder wraps next.
func NewRecorder(next gesture.Emitter, events EventStore, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{next: next, events: events, logger: logger}
}

// Emit implements gesture.Emitter. A storage failure is logged and does not
// stop delivery.
func (r *Recorder) Emit(ctx context.Context, ev gesture.Event) error {
	if ev.Name != gesture.EventCursor && r.events != nil {
		r.record(ev)
	}
	return r.next.Emit(ctx, ev)
}

func (r *Recorder) record(ev gesture.Event) {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		r.logger.Warn("encode event for store", zap.String("event", ev.Name), zap.Error(err))
		return
	}

	e := &store.GestureEvent{
		Name:   ev.Name,
		Data:   data,
		BodyID: ev.BodyID,
	}
	if err := r.events.Create(e); err != nil {
		r.logger.Warn("store event", zap.String("event", ev.Name), zap.Error(err))
		return
	}
	if r.OnEvent != nil {
		r.OnEvent(e)
	}
}
