package transaction

import (
	"time"

	"github.com/google/uuid"
)

// StateMachine owns the current state of one transaction and enforces that
// only legal transitions occur. Successful transitions are the only way the
// current state changes; each one appends exactly one log entry.
//
// A StateMachine is not safe for concurrent use. The surrounding system must
// serialize transition attempts per transaction; persistence layers enforce
// this at the call boundary by comparing Version on append.
type StateMachine struct {
	transactionID string
	log           []Transition
	now           func() time.Time
	newID         func() string
}

// MachineOption configures a StateMachine.
type MachineOption func(*StateMachine)

// WithClock overrides the timestamp source for appended log entries.
func WithClock(now func() time.Time) MachineOption {
	return func(m *StateMachine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides the log entry ID source.
func WithIDGenerator(newID func() string) MachineOption {
	return func(m *StateMachine) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// NewStateMachine creates a state machine for a transaction from its
// transition log. The log slice is copied; the caller's slice is never
// mutated.
func NewStateMachine(transactionID string, log []Transition, opts ...MachineOption) *StateMachine {
	machine := &StateMachine{
		transactionID: transactionID,
		log:           append([]Transition(nil), log...),
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(machine)
		}
	}

	return machine
}

// CurrentState returns the state recorded by the most recent log entry, or
// StateFree if no transition has occurred.
func (m *StateMachine) CurrentState() State {
	return CurrentState(m.log)
}

// CanTransitionTo reports whether target is reachable from the current state.
// It never mutates and may be called any number of times.
func (m *StateMachine) CanTransitionTo(target State) bool {
	return target.IsValid() && m.CurrentState().CanTransitionTo(target)
}

// TryTransitionTo attempts the transition and reports success. An illegal
// target leaves the log untouched and returns false.
func (m *StateMachine) TryTransitionTo(target State) bool {
	_, err := m.TransitionTo(target)

	return err == nil
}

// TransitionTo attempts the transition. On illegality it returns an
// IllegalTransitionError without mutation; on success it appends exactly one
// log entry carrying the current timestamp and returns it.
func (m *StateMachine) TransitionTo(target State) (Transition, error) {
	if !m.CanTransitionTo(target) {
		return Transition{}, IllegalTransitionError{
			TransactionID: m.transactionID,
			From:          m.CurrentState(),
			To:            target,
		}
	}

	entry := Transition{
		ID:            m.newID(),
		TransactionID: m.transactionID,
		To:            target,
		SortKey:       LogVersion(m.log) + 1,
		CreatedAt:     m.now(),
	}

	m.log = append(m.log, entry)

	return entry, nil
}

// Log returns a copy of the transition log in sort key order.
func (m *StateMachine) Log() []Transition {
	return append([]Transition(nil), m.log...)
}

// Version returns the optimistic concurrency token for the log: the sort key
// of the most recent entry, or zero before the first transition.
func (m *StateMachine) Version() int64 {
	return LogVersion(m.log)
}
