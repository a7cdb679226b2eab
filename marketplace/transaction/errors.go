package transaction

import "fmt"

// ErrorCode is a domain error code used by transaction lifecycle validations.
type ErrorCode string

const (
	// ErrorInvalidInput indicates request payload validation failed.
	ErrorInvalidInput ErrorCode = "1001"
	// ErrorIllegalTransition indicates an illegal lifecycle state transition was requested.
	ErrorIllegalTransition ErrorCode = "1002"
	// ErrorUnknownState indicates a state outside the lifecycle graph.
	ErrorUnknownState ErrorCode = "1003"
	// ErrorTransitionConflict indicates a concurrent transition won the version race.
	ErrorTransitionConflict ErrorCode = "1004"
)

// DomainError represents a structured transaction domain validation error.
type DomainError struct {
	Code    ErrorCode
	Field   string
	Message string
}

// Error returns the formatted domain error string.
func (e DomainError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
}

// NewDomainError creates a domain error with code, field, and message.
func NewDomainError(code ErrorCode, field, message string) error {
	return DomainError{Code: code, Field: field, Message: message}
}

// IllegalTransitionError reports a rejected transition with the attempted
// target and the state the transaction was in, so callers can render an
// actionable message.
type IllegalTransitionError struct {
	TransactionID string
	From          State
	To            State
}

// Error returns the formatted illegal transition string.
func (e IllegalTransitionError) Error() string {
	return fmt.Sprintf("%s: illegal transition %s -> %s (transaction %s)", ErrorIllegalTransition, e.From, e.To, e.TransactionID)
}

// Unwrap exposes the generic domain error so callers can match on the code.
func (e IllegalTransitionError) Unwrap() error {
	return DomainError{Code: ErrorIllegalTransition, Field: "state", Message: "transition is not legal from the current state"}
}
