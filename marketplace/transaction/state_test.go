package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStates = []State{
	StateFree, StatePending, StateAccepted, StateRejected, StatePaid, StateConfirmed, StateCanceled,
}

// ---------------------------------------------------------------------------
// CanTransitionTo -- exhaustive adjacency matrix
// ---------------------------------------------------------------------------

func TestStateCanTransitionTo(t *testing.T) {
	adjacency := map[State][]State{
		StateFree:      {StatePending},
		StatePending:   {StateAccepted, StateRejected},
		StateAccepted:  {StatePaid, StateConfirmed, StateCanceled},
		StatePaid:      {StateConfirmed, StateCanceled},
		StateRejected:  {},
		StateConfirmed: {},
		StateCanceled:  {},
	}

	legal := func(from, to State) bool {
		for _, next := range adjacency[from] {
			if next == to {
				return true
			}
		}

		return false
	}

	for _, from := range allStates {
		for _, to := range allStates {
			t.Run(from.String()+" to "+to.String(), func(t *testing.T) {
				t.Parallel()

				assert.Equal(t, legal(from, to), from.CanTransitionTo(to))
			})
		}
	}
}

func TestStateIsTerminal(t *testing.T) {
	terminal := map[State]bool{
		StateRejected:  true,
		StateConfirmed: true,
		StateCanceled:  true,
	}

	for _, state := range allStates {
		t.Run(state.String(), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, terminal[state], state.IsTerminal())

			if state.IsTerminal() {
				for _, next := range allStates {
					assert.False(t, state.CanTransitionTo(next), "terminal state %s must have no edge to %s", state, next)
				}
			}
		})
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected State
		wantErr  bool
	}{
		{name: "free", raw: "free", expected: StateFree},
		{name: "pending", raw: "pending", expected: StatePending},
		{name: "accepted", raw: "accepted", expected: StateAccepted},
		{name: "rejected", raw: "rejected", expected: StateRejected},
		{name: "paid", raw: "paid", expected: StatePaid},
		{name: "confirmed", raw: "confirmed", expected: StateConfirmed},
		{name: "canceled", raw: "canceled", expected: StateCanceled},
		{name: "unknown", raw: "shipped", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "case sensitive", raw: "Pending", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseState(tt.raw)

			if tt.wantErr {
				require.Error(t, err)

				var domainErr DomainError
				require.ErrorAs(t, err, &domainErr)
				assert.Equal(t, ErrorUnknownState, domainErr.Code)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
