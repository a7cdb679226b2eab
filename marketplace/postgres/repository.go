package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/siegfried/sharetribe/marketplace/payment"
	"github.com/siegfried/sharetribe/marketplace/transaction"
)

const (
	uniqueViolationCode = "23505"

	transactionColumns = "id, starter_id, listing_id, conversation_id, community_id, " +
		"automatic_confirmation_after_days, starter_skipped_feedback, author_skipped_feedback, created_at, updated_at"
	transitionColumns  = "id, transaction_id, to_state, sort_key, created_at"
	paymentColumns     = "id, transaction_id, status, payer_id, recipient_id, community_id, gateway, sum_cents, sum_currency, preauthorization_days, created_at, updated_at, paid_at"
	testimonialColumns = "id, transaction_id, author_id, grade, body, created_at"
)

var (
	ErrConnectionRequired = errors.New("postgres connection is required")
	ErrIDRequired         = errors.New("id is required")
	ErrRecordRequired     = errors.New("transaction record is required")
)

// Repository persists transactions in PostgreSQL. It implements
// transaction.Repository.
type Repository struct {
	conn   *Connection
	logger *zap.Logger
	tracer trace.Tracer
}

var _ transaction.Repository = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger overrides the repository logger.
func WithLogger(logger *zap.Logger) Option {
	return func(repo *Repository) {
		if logger != nil {
			repo.logger = logger
		}
	}
}

// NewRepository creates a PostgreSQL transaction repository.
func NewRepository(conn *Connection, opts ...Option) (*Repository, error) {
	if conn == nil {
		return nil, ErrConnectionRequired
	}

	repo := &Repository{
		conn:   conn,
		logger: zap.NewNop(),
		tracer: otel.Tracer("marketplace/postgres"),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}

	return repo, nil
}

// Create stores a new transaction with its booking, if any.
func (repo *Repository) Create(ctx context.Context, record *transaction.Record) (*transaction.Record, error) {
	if record == nil {
		return nil, ErrRecordRequired
	}

	ctx, span := repo.tracer.Start(ctx, "postgres.create_transaction")
	defer span.End()

	db, err := repo.conn.GetDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting database: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback()

	now := time.Now().UTC()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	record.UpdatedAt = now

	query := "INSERT INTO transactions (" + transactionColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"

	_, err = tx.ExecContext(ctx, query,
		record.ID,
		record.StarterID,
		record.ListingID,
		nullString(record.ConversationID),
		record.CommunityID,
		record.AutomaticConfirmationAfterDays,
		record.StarterSkippedFeedback,
		record.AuthorSkippedFeedback,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		repo.logger.Error("failed to insert transaction", zap.String("transaction_id", record.ID), zap.Error(err))

		return nil, fmt.Errorf("inserting transaction: %w", err)
	}

	if record.Booking != nil {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO bookings (transaction_id, start_on, end_on) VALUES ($1, $2, $3)",
			record.ID, record.Booking.StartOn, record.Booking.EndOn,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting booking: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction create: %w", err)
	}

	return record, nil
}

// GetByID loads a transaction with transitions, payment, booking, and
// testimonials.
func (repo *Repository) GetByID(ctx context.Context, id string) (*transaction.Record, error) {
	if id == "" {
		return nil, ErrIDRequired
	}

	ctx, span := repo.tracer.Start(ctx, "postgres.get_transaction_by_id")
	defer span.End()

	db, err := repo.conn.GetDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting database: %w", err)
	}

	record := &transaction.Record{}

	var conversationID sql.NullString

	row := db.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = $1", id)

	err = row.Scan(
		&record.ID,
		&record.StarterID,
		&record.ListingID,
		&conversationID,
		&record.CommunityID,
		&record.AutomaticConfirmationAfterDays,
		&record.StarterSkippedFeedback,
		&record.AuthorSkippedFeedback,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("scanning transaction: %w", err)
	}

	record.ConversationID = conversationID.String

	if record.Transitions, err = repo.listTransitions(ctx, db, id); err != nil {
		return nil, err
	}

	if record.Payment, err = repo.getPayment(ctx, db, id); err != nil {
		return nil, err
	}

	if record.Booking, err = repo.getBooking(ctx, db, id); err != nil {
		return nil, err
	}

	if record.Testimonials, err = repo.ListTestimonials(ctx, id); err != nil {
		return nil, err
	}

	return record, nil
}

// Delete removes a transaction. Transitions, payment rows, and booking
// cascade via foreign keys.
func (repo *Repository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}

	ctx, span := repo.tracer.Start(ctx, "postgres.delete_transaction")
	defer span.End()

	db, err := repo.conn.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("getting database: %w", err)
	}

	result, err := db.ExecContext(ctx, "DELETE FROM transactions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading delete result: %w", err)
	}

	if affected == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

// AppendTransition durably appends one log entry iff the stored log is still
// at expectedVersion. A lost race surfaces as ErrTransitionConflict, nothing
// inserted.
func (repo *Repository) AppendTransition(ctx context.Context, entry transaction.Transition, expectedVersion int64) error {
	if entry.TransactionID == "" {
		return ErrIDRequired
	}

	ctx, span := repo.tracer.Start(ctx, "postgres.append_transition")
	defer span.End()

	db, err := repo.conn.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("getting database: %w", err)
	}

	query := "INSERT INTO transaction_transitions (" + transitionColumns + ") " +
		"SELECT $1, $2, $3, $4, $5 " +
		"WHERE (SELECT COALESCE(MAX(sort_key), 0) FROM transaction_transitions WHERE transaction_id = $2) = $6"

	result, err := db.ExecContext(ctx, query,
		entry.ID, entry.TransactionID, entry.To.String(), entry.SortKey, entry.CreatedAt, expectedVersion,
	)
	if err != nil {
		// The (transaction_id, sort_key) unique index catches the race the
		// version predicate cannot see inside a concurrent insert.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return transaction.ErrTransitionConflict
		}

		repo.logger.Error("failed to append transition",
			zap.String("transaction_id", entry.TransactionID),
			zap.String("to_state", entry.To.String()),
			zap.Error(err),
		)

		return fmt.Errorf("appending transition: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading append result: %w", err)
	}

	if affected == 0 {
		return transaction.ErrTransitionConflict
	}

	return nil
}

// SavePayment stores a payment and its rows in one SQL transaction. Either
// the fully populated payment lands or none of it does.
func (repo *Repository) SavePayment(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return ErrRecordRequired
	}

	if err := p.Validate(); err != nil {
		return err
	}

	ctx, span := repo.tracer.Start(ctx, "postgres.save_payment")
	defer span.End()

	db, err := repo.conn.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("getting database: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback()

	var exists bool

	err = tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM payments WHERE transaction_id = $1)", p.TransactionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking existing payment: %w", err)
	}

	if exists {
		return transaction.ErrPaymentExists
	}

	var sumCents, sumCurrency any
	if p.Sum != nil {
		sumCents = p.Sum.Amount.String()
		sumCurrency = p.Sum.Currency
	}

	query := "INSERT INTO payments (" + paymentColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)"

	_, err = tx.ExecContext(ctx, query,
		p.ID, p.TransactionID, string(p.Status), p.PayerID, p.RecipientID, p.CommunityID, p.Gateway,
		sumCents, sumCurrency, p.PreauthorizationDays, p.CreatedAt, p.UpdatedAt, nullTime(p.PaidAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return transaction.ErrPaymentExists
		}

		repo.logger.Error("failed to insert payment", zap.String("transaction_id", p.TransactionID), zap.Error(err))

		return fmt.Errorf("inserting payment: %w", err)
	}

	for _, row := range p.Rows {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO payment_rows (payment_id, sort_key, title, amount_cents, currency) VALUES ($1, $2, $3, $4, $5)",
			p.ID, row.SortKey, row.Title, row.Amount.Amount.String(), row.Amount.Currency,
		)
		if err != nil {
			return fmt.Errorf("inserting payment row %d: %w", row.SortKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing payment save: %w", err)
	}

	return nil
}

// SetFeedbackSkipped flips the skip flag of one participant role.
func (repo *Repository) SetFeedbackSkipped(ctx context.Context, transactionID string, role transaction.ParticipantRole, skipped bool) error {
	if transactionID == "" {
		return ErrIDRequired
	}

	ctx, span := repo.tracer.Start(ctx, "postgres.set_feedback_skipped")
	defer span.End()

	db, err := repo.conn.GetDB(ctx)
	if err != nil {
		return fmt.Errorf("getting database: %w", err)
	}

	var column string

	switch role {
	case transaction.RoleAuthor:
		column = "author_skipped_feedback"
	case transaction.RoleStarter:
		column = "starter_skipped_feedback"
	default:
		return fmt.Errorf("unknown participant role: %q", role)
	}

	query := "UPDATE transactions SET " + column + " = $1, updated_at = $2 WHERE id = $3"

	result, err := db.ExecContext(ctx, query, skipped, time.Now().UTC(), transactionID)
	if err != nil {
		return fmt.Errorf("updating feedback skip flag: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading update result: %w", err)
	}

	if affected == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

// ListTestimonials reads the testimonials of a transaction.
func (repo *Repository) ListTestimonials(ctx context.Context, transactionID string) ([]transaction.Testimonial, error) {
	if transactionID == "" {
		return nil, ErrIDRequired
	}

	db, err := repo.conn.GetDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting database: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		"SELECT "+testimonialColumns+" FROM testimonials WHERE transaction_id = $1 ORDER BY created_at", transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying testimonials: %w", err)
	}

	defer rows.Close()

	var result []transaction.Testimonial

	for rows.Next() {
		var item transaction.Testimonial

		err = rows.Scan(&item.ID, &item.TransactionID, &item.AuthorID, &item.Grade, &item.Text, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning testimonial: %w", err)
		}

		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating testimonials: %w", err)
	}

	return result, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (repo *Repository) listTransitions(ctx context.Context, db queryer, transactionID string) ([]transaction.Transition, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+transitionColumns+" FROM transaction_transitions WHERE transaction_id = $1 ORDER BY sort_key", transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}

	defer rows.Close()

	var result []transaction.Transition

	for rows.Next() {
		var (
			entry   transaction.Transition
			toState string
		)

		if err := rows.Scan(&entry.ID, &entry.TransactionID, &toState, &entry.SortKey, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}

		entry.To, err = transaction.ParseState(toState)
		if err != nil {
			return nil, fmt.Errorf("parsing persisted state: %w", err)
		}

		result = append(result, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transitions: %w", err)
	}

	return result, nil
}

func (repo *Repository) getPayment(ctx context.Context, db queryer, transactionID string) (*payment.Payment, error) {
	row := db.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE transaction_id = $1", transactionID)

	var (
		p           payment.Payment
		status      string
		sumCents    sql.NullString
		sumCurrency sql.NullString
		paidAt      sql.NullTime
	)

	err := row.Scan(
		&p.ID, &p.TransactionID, &status, &p.PayerID, &p.RecipientID, &p.CommunityID, &p.Gateway,
		&sumCents, &sumCurrency, &p.PreauthorizationDays, &p.CreatedAt, &p.UpdatedAt, &paidAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("scanning payment: %w", err)
	}

	p.Status = payment.Status(status)

	if sumCents.Valid {
		amount, err := decimal.NewFromString(sumCents.String)
		if err != nil {
			return nil, fmt.Errorf("parsing persisted sum: %w", err)
		}

		p.Sum = &payment.Money{Amount: amount, Currency: sumCurrency.String}
	}

	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}

	rows, err := db.QueryContext(ctx,
		"SELECT sort_key, title, amount_cents, currency FROM payment_rows WHERE payment_id = $1 ORDER BY sort_key", p.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying payment rows: %w", err)
	}

	defer rows.Close()

	for rows.Next() {
		var (
			item   payment.Row
			amount string
		)

		if err := rows.Scan(&item.SortKey, &item.Title, &amount, &item.Amount.Currency); err != nil {
			return nil, fmt.Errorf("scanning payment row: %w", err)
		}

		item.Amount.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parsing persisted row amount: %w", err)
		}

		p.Rows = append(p.Rows, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payment rows: %w", err)
	}

	return &p, nil
}

func (repo *Repository) getBooking(ctx context.Context, db queryer, transactionID string) (*transaction.Booking, error) {
	row := db.QueryRowContext(ctx, "SELECT transaction_id, start_on, end_on FROM bookings WHERE transaction_id = $1", transactionID)

	var booking transaction.Booking

	err := row.Scan(&booking.TransactionID, &booking.StartOn, &booking.EndOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("scanning booking: %w", err)
	}

	return &booking, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}

	return value
}

func nullTime(value *time.Time) any {
	if value == nil {
		return nil
	}

	return *value
}
