package skeleton

import "sync/atomic"

// Cell holds the most recent Snapshot. It has a single writer (the acquirer)
// and any number of readers. A nil value means no body is currently tracked.
type Cell struct {
	current atomic.Pointer[Snapshot]
}

// NewCell creates an empty Cell.
func NewCell() *Cell {
	return &Cell{}
}

// Publish replaces the current snapshot. Passing nil publishes "no data".
// The caller must not modify s after publishing it.
func (c *Cell) Publish(s *Snapshot) {
	c.current.Store(s)
}

// Load returns the current snapshot, or nil when no body is tracked.
func (c *Cell) Load() *Snapshot {
	return c.current.Load()
}
