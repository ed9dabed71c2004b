package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTransition(t *testing.T) {
	tests := []struct {
		name  string
		from  State
		to    State
		valid bool
	}{
		{"starting_to_healthy", StateStarting, StateHealthy, true},
		{"starting_to_terminated", StateStarting, StateTerminated, true},
		{"starting_never_goes_straight_to_unhealthy", StateStarting, StateUnhealthy, false},
		{"healthy_to_unhealthy", StateHealthy, StateUnhealthy, true},
		{"healthy_to_terminated", StateHealthy, StateTerminated, true},
		{"healthy_never_regresses_to_starting", StateHealthy, StateStarting, false},
		{"unhealthy_to_healthy", StateUnhealthy, StateHealthy, true},
		{"unhealthy_to_terminated", StateUnhealthy, StateTerminated, true},
		{"unhealthy_never_regresses_to_starting", StateUnhealthy, StateStarting, false},
		{"terminated_is_terminal", StateTerminated, StateStarting, false},
		{"terminated_never_becomes_healthy", StateTerminated, StateHealthy, false},
		{"same_state_is_not_a_transition", StateHealthy, StateHealthy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidTransition(tt.from, tt.to))
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "terminated", StateTerminated.String())
}
