package transaction

import (
	"time"

	"github.com/siegfried/sharetribe/marketplace/payment"
)

// Community is the collaborator interface for the community a transaction
// happens in. Only the gateway selector is consumed here.
type Community interface {
	ID() string
	PaymentGateway() string
}

// Listing is the collaborator interface for the listing being transacted.
type Listing interface {
	// Author returns the identity of the listing owner.
	Author() string
	// PaymentRequiredAt reports whether completing a transaction on this
	// listing requires a payment in the given community.
	PaymentRequiredAt(community Community) bool
	// IsRequest reports whether the listing is a request (as opposed to an
	// offer).
	IsRequest() bool
}

// Message is one timestamped message of the linked conversation.
type Message struct {
	ID      string
	SentAt  time.Time
	SortKey int64
}

// Conversation is the collaborator interface for the discussion attached to
// a transaction. Only the ordered message sequence is consumed here.
type Conversation interface {
	Messages() []Message
}

// Booking is the date window owned 1:1 by a transaction. Its end date caps
// preauthorization expiry.
type Booking struct {
	TransactionID string
	StartOn       time.Time
	EndOn         time.Time
}

// DiscussionType labels how a transaction is displayed relative to its
// listing: a transaction on a request listing is shown as an offer, and vice
// versa.
type DiscussionType string

const (
	DiscussionOffer   DiscussionType = "offer"
	DiscussionRequest DiscussionType = "request"
)

// Transaction is the aggregate root of one marketplace deal between a
// starter and a listing author. External callers mutate state only through
// it: transition requests go to the owned state machine, payment setup to
// the payment initializer, feedback queries to the testimonial set.
type Transaction struct {
	ID                             string
	StarterID                      string
	Listing                        Listing
	Community                      Community
	Conversation                   Conversation
	Booking                        *Booking
	Payment                        *payment.Payment
	Transitions                    []Transition
	Testimonials                   []Testimonial
	AutomaticConfirmationAfterDays int
	StarterSkippedFeedback         bool
	AuthorSkippedFeedback          bool
	CreatedAt                      time.Time
	UpdatedAt                      time.Time

	machineOpts []MachineOption
	machine     *StateMachine
}

// UseMachineOptions sets options applied when the owned state machine is
// first constructed. Tests use it to pin the clock.
func (t *Transaction) UseMachineOptions(opts ...MachineOption) {
	t.machineOpts = opts
	t.machine = nil
}

// StateMachine returns the owned state machine, constructed on first use
// from the transaction's identity and transition log.
func (t *Transaction) StateMachine() *StateMachine {
	if t.machine == nil {
		t.machine = NewStateMachine(t.ID, t.Transitions, t.machineOpts...)
	}

	return t.machine
}

// CurrentState returns the lifecycle state derived from the transition log.
func (t *Transaction) CurrentState() State {
	return t.StateMachine().CurrentState()
}

// CanTransitionTo reports whether target is reachable from the current state.
func (t *Transaction) CanTransitionTo(target State) bool {
	return t.StateMachine().CanTransitionTo(target)
}

// TryTransitionTo attempts the transition and reports success without error
// detail. See StateMachine.TryTransitionTo.
func (t *Transaction) TryTransitionTo(target State) bool {
	ok := t.StateMachine().TryTransitionTo(target)
	if ok {
		t.Transitions = t.machine.Log()
	}

	return ok
}

// TransitionTo attempts the transition, returning the appended log entry or
// an IllegalTransitionError. See StateMachine.TransitionTo.
func (t *Transaction) TransitionTo(target State) (Transition, error) {
	entry, err := t.StateMachine().TransitionTo(target)
	if err != nil {
		return Transition{}, err
	}

	t.Transitions = t.machine.Log()

	return entry, nil
}

// AuthorID returns the listing author's identity.
func (t *Transaction) AuthorID() string {
	return t.Listing.Author()
}

// Participants returns the two participant identities, starter first.
func (t *Transaction) Participants() [2]string {
	return [2]string{t.StarterID, t.AuthorID()}
}

// OtherParty returns the counterpart of the given participant: the author
// for the starter and the starter for the author. The second return is false
// for any other identity.
func (t *Transaction) OtherParty(personID string) (string, bool) {
	switch personID {
	case t.StarterID:
		return t.AuthorID(), true
	case t.AuthorID():
		return t.StarterID, true
	default:
		return "", false
	}
}

// PayerID returns the paying participant. The starter always pays.
func (t *Transaction) PayerID() string {
	return t.StarterID
}

// PaymentReceiverID returns the paid participant. The author always receives.
func (t *Transaction) PaymentReceiverID() string {
	return t.AuthorID()
}

// RequiresPayment reports whether a payment is required to complete this
// transaction in the given community, whether or not it has been conducted
// yet.
func (t *Transaction) RequiresPayment(community Community) bool {
	return t.Listing.PaymentRequiredAt(community)
}

// WaitingPayment reports whether the next required action is the payment:
// payment is required and the transaction sits in the accepted state.
func (t *Transaction) WaitingPayment(community Community) bool {
	return t.RequiresPayment(community) && t.CurrentState() == StateAccepted
}

// CanBeConfirmed reports whether the transaction can reach confirmed from
// its current state.
func (t *Transaction) CanBeConfirmed() bool {
	return t.CanTransitionTo(StateConfirmed)
}

// CanBeCanceled reports whether the transaction can reach canceled from its
// current state.
func (t *Transaction) CanBeCanceled() bool {
	return t.CanTransitionTo(StateCanceled)
}

// DiscussionType returns the UI label of this transaction relative to the
// listing: the inversion of the listing's request/offer classification.
func (t *Transaction) DiscussionType() DiscussionType {
	if t.Listing.IsRequest() {
		return DiscussionOffer
	}

	return DiscussionRequest
}

// PreauthorizationExpireAt returns the date the payment hold expires: the
// payment's preauthorization window in days from now, capped to the booking
// end date when that falls earlier. The second return is false when the
// transaction has no payment.
func (t *Transaction) PreauthorizationExpireAt(now time.Time) (time.Time, bool) {
	if t.Payment == nil {
		return time.Time{}, false
	}

	expires := dateOf(now.AddDate(0, 0, t.Payment.PreauthorizationDays))

	if t.Booking != nil {
		endOn := dateOf(t.Booking.EndOn)
		if endOn.Before(expires) {
			return endOn, true
		}
	}

	return expires, true
}

// dateOf truncates a timestamp to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	year, month, day := t.UTC().Date()

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
