package gesture

// Edge remembers whether a predicate was true on the previous update.
type Edge struct {
	active bool
}

// Update records pred and reports whether it just went from false to true.
func (e *Edge) Update(pred bool) bool {
	rising := pred && !e.active
	e.active = pred
	return rising
}

// Active reports the last recorded predicate value.
func (e *Edge) Active() bool {
	return e.active
}
