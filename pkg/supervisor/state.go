package supervisor

import (
	"time"

	"github.com/app-tools/appwarden/pkg/probe"
)

// State is the lifecycle state of the supervised service.
//
// The machine is starting -> healthy <-> unhealthy, with terminated
// reachable from every state and terminal. starting never regresses: once
// the first probe succeeds the service is healthy and can only oscillate
// between healthy and unhealthy until termination.
type State string

const (
	// StateStarting means the process is launched but has not yet passed
	// its first liveness probe. Probe failures in this state carry no
	// weight against the unhealthy threshold.
	StateStarting State = "starting"

	// StateHealthy means the most recent probe succeeded, or fewer than
	// the threshold of consecutive failures have occurred since.
	StateHealthy State = "healthy"

	// StateUnhealthy means at least the threshold of consecutive probes
	// have failed. A single success returns the service to healthy.
	StateUnhealthy State = "unhealthy"

	// StateTerminated means the process is gone, by its own exit or by
	// Stop. Terminal.
	StateTerminated State = "terminated"
)

func (s State) String() string {
	return string(s)
}

// ValidTransition reports whether the state machine allows the edge.
// Staying in the same state is not a transition.
func ValidTransition(from, to State) bool {
	switch from {
	case StateStarting:
		return to == StateHealthy || to == StateTerminated
	case StateHealthy:
		return to == StateUnhealthy || to == StateTerminated
	case StateUnhealthy:
		return to == StateHealthy || to == StateTerminated
	case StateTerminated:
		return false
	default:
		return false
	}
}

// StateEvent is one entry on the supervision stream. An event is emitted
// when supervision begins, after every probe evaluation, and once when the
// service terminates, so the full probe-by-probe state sequence is
// observable, not just the edges.
type StateEvent struct {
	// State the service is in after this evaluation.
	State State

	Timestamp time.Time

	// Transition is true when this event changed the state.
	Transition bool

	// Probe carries the evaluation that produced this event. Nil for the
	// initial event and for termination events.
	Probe *probe.Result

	// ConsecutiveFailures counted against the unhealthy threshold at the
	// time of the event.
	ConsecutiveFailures int

	// Reason is a human-readable explanation, such as the probe message
	// or the exit status.
	Reason string
}
