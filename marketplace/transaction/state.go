package transaction

import "fmt"

// State represents the lifecycle state of a marketplace transaction.
//
// Semantics:
//   - free: created, no decision requested yet.
//   - pending: the starter has asked the listing author for a decision.
//   - accepted: the author accepted; payment, if required, is the next step.
//   - rejected: the author declined; terminal state.
//   - paid: payment has been resolved for a listing that required one.
//   - confirmed: the deal completed successfully; terminal state.
//   - canceled: the deal was called off after acceptance; terminal state.
//
// Transition graph:
//
//	free     → pending
//	pending  → accepted | rejected
//	accepted → paid | confirmed | canceled
//	paid     → confirmed | canceled
//	rejected, confirmed, canceled → (terminal)
//
// Legality is static graph adjacency. Whether confirmation must route through
// paid depends on the listing's payment policy and is answered by
// Transaction.WaitingPayment, not by the graph.
type State string

const (
	// StateFree is the initial state of every transaction (empty log).
	StateFree State = "free"
	// StatePending marks a transaction waiting for the author's decision.
	StatePending State = "pending"
	// StateAccepted marks a transaction accepted by the listing author.
	StateAccepted State = "accepted"
	// StateRejected marks a transaction declined by the listing author.
	StateRejected State = "rejected"
	// StatePaid marks a transaction whose required payment has been resolved.
	StatePaid State = "paid"
	// StateConfirmed marks a successfully completed transaction.
	StateConfirmed State = "confirmed"
	// StateCanceled marks a transaction called off after acceptance.
	StateCanceled State = "canceled"
)

// ParseState validates and converts a raw string state.
func ParseState(raw string) (State, error) {
	state := State(raw)

	if !state.IsValid() {
		return "", NewDomainError(ErrorUnknownState, "state", fmt.Sprintf("unknown state %q", raw))
	}

	return state, nil
}

// IsValid reports whether the state is part of the lifecycle graph.
func (s State) IsValid() bool {
	switch s {
	case StateFree, StatePending, StateAccepted, StateRejected, StatePaid, StateConfirmed, StateCanceled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the state has no outgoing transitions.
func (s State) IsTerminal() bool {
	switch s {
	case StateRejected, StateConfirmed, StateCanceled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a transition from s to next is legal.
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StateFree:
		return next == StatePending
	case StatePending:
		return next == StateAccepted || next == StateRejected
	case StateAccepted:
		return next == StatePaid || next == StateConfirmed || next == StateCanceled
	case StatePaid:
		return next == StateConfirmed || next == StateCanceled
	case StateRejected, StateConfirmed, StateCanceled:
		return false
	default:
		return false
	}
}

func (s State) String() string {
	return string(s)
}
