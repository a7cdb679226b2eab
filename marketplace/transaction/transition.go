package transaction

import "time"

// Transition is an immutable transition log entry recording one state change.
//
// Entries are ordered by SortKey within a transaction. They are created only
// by the StateMachine on a successful transition and are never mutated or
// deleted individually; they cascade with the transaction.
type Transition struct {
	ID            string
	TransactionID string
	To            State
	SortKey       int64
	CreatedAt     time.Time
}

// CurrentState returns the state recorded by the most recent log entry, or
// StateFree if the log is empty. The log is expected ordered by SortKey; out
// of caution the highest sort key wins regardless of slice order.
func CurrentState(log []Transition) State {
	latest, ok := latestTransition(log)
	if !ok {
		return StateFree
	}

	return latest.To
}

// LogVersion returns the optimistic concurrency token for a transition log:
// the highest sort key, or zero for an empty log. Persistence layers compare
// it on append to serialize concurrent transition attempts.
func LogVersion(log []Transition) int64 {
	latest, ok := latestTransition(log)
	if !ok {
		return 0
	}

	return latest.SortKey
}

func latestTransition(log []Transition) (Transition, bool) {
	if len(log) == 0 {
		return Transition{}, false
	}

	latest := log[0]

	for _, entry := range log[1:] {
		if entry.SortKey > latest.SortKey {
			latest = entry
		}
	}

	return latest, true
}
