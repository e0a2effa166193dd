package sim

import "fmt"

// InvalidTimeError reports an attempt to schedule or execute an event earlier
// than the current simulated time. This is always an engine bug, never a user
// error, and aborts the run: executing it would invalidate the determinism
// contract.
type InvalidTimeError struct {
	Op    string // "schedule" or "advance"
	At    int64  // offending event time
	Clock int64  // simulated time when detected
}

func (e *InvalidTimeError) Error() string {
	return fmt.Sprintf("invalid event time: %s at t=%d while clock is t=%d", e.Op, e.At, e.Clock)
}

// ResourceInvariantError reports a resource accounting violation (a release
// without a matching acquire, or a count driven negative). Always fatal.
type ResourceInvariantError struct {
	Time int64
	Node string
	Kind string
	Msg  string
}

func (e *ResourceInvariantError) Error() string {
	return fmt.Sprintf("resource invariant violated at t=%d (%s/%s): %s", e.Time, e.Node, e.Kind, e.Msg)
}
