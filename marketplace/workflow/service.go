package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/siegfried/sharetribe/marketplace/payment"
	"github.com/siegfried/sharetribe/marketplace/transaction"
)

var (
	ErrRepositoryRequired        = errors.New("transaction repository is required")
	ErrListingResolverRequired   = errors.New("listing resolver is required")
	ErrCommunityResolverRequired = errors.New("community resolver is required")
	ErrUnknownParticipant        = errors.New("person is not a participant of the transaction")
)

// ListingResolver loads listing collaborators from their own store.
type ListingResolver interface {
	ListingByID(ctx context.Context, id string) (transaction.Listing, error)
}

// CommunityResolver loads community collaborators from their own store.
type CommunityResolver interface {
	CommunityByID(ctx context.Context, id string) (transaction.Community, error)
}

// ConversationResolver loads the discussion attached to a transaction.
type ConversationResolver interface {
	ConversationByID(ctx context.Context, id string) (transaction.Conversation, error)
}

// Service orchestrates transaction lifecycle mutations against the
// repository. It is safe for concurrent use; per-transaction serialization
// comes from the version token on every append.
type Service struct {
	repo          transaction.Repository
	listings      ListingResolver
	communities   CommunityResolver
	conversations ConversationResolver
	logger        *zap.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger overrides the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConversationResolver enables latest-activity over conversation
// messages.
func WithConversationResolver(resolver ConversationResolver) Option {
	return func(s *Service) {
		s.conversations = resolver
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a workflow service.
func New(repo transaction.Repository, listings ListingResolver, communities CommunityResolver, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}

	if listings == nil {
		return nil, ErrListingResolverRequired
	}

	if communities == nil {
		return nil, ErrCommunityResolverRequired
	}

	s := &Service{
		repo:        repo,
		listings:    listings,
		communities: communities,
		logger:      zap.NewNop(),
		tracer:      otel.Tracer("marketplace/workflow"),
		now:         func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s, nil
}

// Load rebuilds the full aggregate: the persisted record joined with its
// listing, community, and conversation collaborators.
func (s *Service) Load(ctx context.Context, id string) (*transaction.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.load_transaction")
	defer span.End()

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.assemble(ctx, record)
}

func (s *Service) assemble(ctx context.Context, record *transaction.Record) (*transaction.Transaction, error) {
	listing, err := s.listings.ListingByID(ctx, record.ListingID)
	if err != nil {
		return nil, fmt.Errorf("resolving listing %s: %w", record.ListingID, err)
	}

	community, err := s.communities.CommunityByID(ctx, record.CommunityID)
	if err != nil {
		return nil, fmt.Errorf("resolving community %s: %w", record.CommunityID, err)
	}

	result := &transaction.Transaction{
		ID:                             record.ID,
		StarterID:                      record.StarterID,
		Listing:                        listing,
		Community:                      community,
		Booking:                        record.Booking,
		Payment:                        record.Payment,
		Transitions:                    record.Transitions,
		Testimonials:                   record.Testimonials,
		AutomaticConfirmationAfterDays: record.AutomaticConfirmationAfterDays,
		StarterSkippedFeedback:         record.StarterSkippedFeedback,
		AuthorSkippedFeedback:          record.AuthorSkippedFeedback,
		CreatedAt:                      record.CreatedAt,
		UpdatedAt:                      record.UpdatedAt,
	}

	if record.ConversationID != "" && s.conversations != nil {
		conversation, err := s.conversations.ConversationByID(ctx, record.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("resolving conversation %s: %w", record.ConversationID, err)
		}

		result.Conversation = conversation
	}

	return result, nil
}

// Transition executes one lifecycle transition: legality is checked against
// the loaded log, and the append carries the log's version token so a
// concurrent transition surfaces as transaction.ErrTransitionConflict
// instead of racing on a stale read.
func (s *Service) Transition(ctx context.Context, id string, target transaction.State) (transaction.Transition, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.transition")
	defer span.End()

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transaction.Transition{}, err
	}

	machine := transaction.NewStateMachine(record.ID, record.Transitions, transaction.WithClock(s.now))

	from := machine.CurrentState()

	entry, err := machine.TransitionTo(target)
	if err != nil {
		s.logger.Warn("transition rejected",
			zap.String("transaction_id", id),
			zap.String("from", from.String()),
			zap.String("to", target.String()),
		)

		return transaction.Transition{}, err
	}

	if err := s.repo.AppendTransition(ctx, entry, entry.SortKey-1); err != nil {
		return transaction.Transition{}, err
	}

	s.logger.Info("transition executed",
		zap.String("transaction_id", id),
		zap.String("from", from.String()),
		zap.String("to", target.String()),
		zap.Int64("sort_key", entry.SortKey),
	)

	return entry, nil
}

// InitializePayment builds and durably saves the single payment of a
// transaction. A transaction that already carries a payment rejects a second
// initialization with transaction.ErrPaymentExists.
func (s *Service) InitializePayment(ctx context.Context, id string, attrs payment.Attributes, preauthorizationDays int) (*payment.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.initialize_payment")
	defer span.End()

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if record.Payment != nil {
		return nil, transaction.ErrPaymentExists
	}

	listing, err := s.listings.ListingByID(ctx, record.ListingID)
	if err != nil {
		return nil, fmt.Errorf("resolving listing %s: %w", record.ListingID, err)
	}

	community, err := s.communities.CommunityByID(ctx, record.CommunityID)
	if err != nil {
		return nil, fmt.Errorf("resolving community %s: %w", record.CommunityID, err)
	}

	spec := payment.InitSpec{
		TransactionID:        record.ID,
		PayerID:              record.StarterID,
		RecipientID:          listing.Author(),
		CommunityID:          community.ID(),
		Gateway:              community.PaymentGateway(),
		PreauthorizationDays: preauthorizationDays,
	}

	result, err := payment.Initialize(spec, attrs, payment.WithClock(s.now))
	if err != nil {
		return nil, err
	}

	if err := s.repo.SavePayment(ctx, result); err != nil {
		return nil, err
	}

	s.logger.Info("payment initialized",
		zap.String("transaction_id", id),
		zap.String("payment_id", result.ID),
		zap.String("gateway", result.Gateway),
		zap.Int("rows", len(result.Rows)),
	)

	return result, nil
}

// SkipFeedback marks the given participant as having opted out of leaving
// feedback.
func (s *Service) SkipFeedback(ctx context.Context, id, personID string) error {
	ctx, span := s.tracer.Start(ctx, "workflow.skip_feedback")
	defer span.End()

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	listing, err := s.listings.ListingByID(ctx, record.ListingID)
	if err != nil {
		return fmt.Errorf("resolving listing %s: %w", record.ListingID, err)
	}

	var role transaction.ParticipantRole

	switch personID {
	case listing.Author():
		role = transaction.RoleAuthor
	case record.StarterID:
		role = transaction.RoleStarter
	default:
		return ErrUnknownParticipant
	}

	return s.repo.SetFeedbackSkipped(ctx, id, role, true)
}

// WaitingPayment reports whether the transaction's next required action is
// the payment.
func (s *Service) WaitingPayment(ctx context.Context, id string) (bool, error) {
	loaded, err := s.Load(ctx, id)
	if err != nil {
		return false, err
	}

	return loaded.WaitingPayment(loaded.Community), nil
}

// PreauthorizationExpireAt returns the payment hold expiry date for a
// transaction. The boolean is false when no payment exists.
func (s *Service) PreauthorizationExpireAt(ctx context.Context, id string) (time.Time, bool, error) {
	loaded, err := s.Load(ctx, id)
	if err != nil {
		return time.Time{}, false, err
	}

	expireAt, ok := loaded.PreauthorizationExpireAt(s.now())

	return expireAt, ok, nil
}
