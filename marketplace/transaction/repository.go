package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/siegfried/sharetribe/marketplace/payment"
)

var (
	// ErrNotFound reports that no transaction exists for the given id.
	ErrNotFound = errors.New("transaction not found")
	// ErrTransitionConflict reports that a concurrent transition appended
	// first; the caller must reload and retry against fresh state.
	ErrTransitionConflict = errors.New("transition log version conflict")
	// ErrPaymentExists reports that the transaction already has its payment.
	ErrPaymentExists = errors.New("transaction already has a payment")
)

// ParticipantRole names one of the two fixed roles in a transaction.
type ParticipantRole string

const (
	// RoleStarter is the participant who initiated the transaction.
	RoleStarter ParticipantRole = "starter"
	// RoleAuthor is the participant who owns the listing.
	RoleAuthor ParticipantRole = "author"
)

// Record is the persisted shape of a transaction aggregate: plain references
// where the in-memory aggregate holds collaborator interfaces. The caller
// resolves listing, community, and conversation from their own stores when
// rebuilding a Transaction.
type Record struct {
	ID                             string
	StarterID                      string
	ListingID                      string
	ConversationID                 string
	CommunityID                    string
	AutomaticConfirmationAfterDays int
	StarterSkippedFeedback         bool
	AuthorSkippedFeedback          bool
	CreatedAt                      time.Time
	UpdatedAt                      time.Time
	Transitions                    []Transition
	Payment                        *payment.Payment
	Booking                        *Booking
	Testimonials                   []Testimonial
}

// Version returns the record's optimistic concurrency token.
func (r *Record) Version() int64 {
	return LogVersion(r.Transitions)
}

// Repository defines persistence operations for transactions. I/O failures
// wrap and propagate; nothing is retried at this layer.
type Repository interface {
	// Create stores a new transaction with its booking, if any.
	Create(ctx context.Context, record *Record) (*Record, error)
	// GetByID loads a transaction with transitions (in sort key order),
	// payment, booking, and testimonials. Returns ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*Record, error)
	// Delete removes a transaction; transitions, payment, and booking
	// cascade with it.
	Delete(ctx context.Context, id string) error
	// AppendTransition durably appends one log entry iff the stored log is
	// still at expectedVersion; otherwise ErrTransitionConflict.
	AppendTransition(ctx context.Context, entry Transition, expectedVersion int64) error
	// SavePayment stores a payment and its rows full-or-nothing. Returns
	// ErrPaymentExists when the transaction already has one.
	SavePayment(ctx context.Context, p *payment.Payment) error
	// SetFeedbackSkipped flips the skip flag of one participant role.
	SetFeedbackSkipped(ctx context.Context, transactionID string, role ParticipantRole, skipped bool) error
	// ListTestimonials reads the testimonials of a transaction.
	ListTestimonials(ctx context.Context, transactionID string) ([]Testimonial, error)
}
