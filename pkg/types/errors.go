package types

import "fmt"

// InvariantViolation marks a programmer error: a state transition or
// message that should be impossible given the scheduling protocol.
// These are never retried or recovered from mid-loop — the event loop
// lets them propagate and crash the process so an operator notices,
// rather than silently corrupting a table.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Reason)
}

// Violatef panics with an *InvariantViolation built from the given
// format string. Used by the Job/Task state machines and by the
// scheduler's message handlers whenever the protocol guarantees a
// condition that has just been observed to be false.
func Violatef(format string, args ...any) {
	panic(&InvariantViolation{Reason: fmt.Sprintf(format, args...)})
}
