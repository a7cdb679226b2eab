//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/siegfried/sharetribe/marketplace/payment"
	"github.com/siegfried/sharetribe/marketplace/transaction"
)

// setupPostgresContainer starts a disposable PostgreSQL container and returns
// the connection string plus a teardown function.
func setupPostgresContainer(t *testing.T) (string, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return connStr, func() {
		require.NoError(t, container.Terminate(ctx))
	}
}

// setupRepository connects against the container and applies the package
// migrations, so every test starts from the full schema.
func setupRepository(t *testing.T) *Repository {
	t.Helper()

	dsn, cleanup := setupPostgresContainer(t)
	t.Cleanup(cleanup)

	conn := &Connection{
		ConnectionStringPrimary: dsn,
		MigrationsPath:          "migrations",
	}

	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() { require.NoError(t, conn.Close()) })

	repo, err := NewRepository(conn)
	require.NoError(t, err)

	return repo
}

func seedRecord(t *testing.T, repo *Repository, booking *transaction.Booking) *transaction.Record {
	t.Helper()

	record := &transaction.Record{
		ID:          uuid.NewString(),
		StarterID:   "starter-1",
		ListingID:   "listing-1",
		CommunityID: "community-1",
		Booking:     booking,
	}

	_, err := repo.Create(context.Background(), record)
	require.NoError(t, err)

	return record
}

func appendTransition(t *testing.T, repo *Repository, transactionID string, to transaction.State, sortKey int64) {
	t.Helper()

	err := repo.AppendTransition(context.Background(), transaction.Transition{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		To:            to,
		SortKey:       sortKey,
		CreatedAt:     time.Now().UTC(),
	}, sortKey-1)
	require.NoError(t, err)
}

// ---------------------------------------------------------------------------
// TestIntegration_Repository_CreateAndGet
// ---------------------------------------------------------------------------

func TestIntegration_Repository_CreateAndGet(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	booking := &transaction.Booking{
		StartOn: time.Date(2014, 3, 11, 0, 0, 0, 0, time.UTC),
		EndOn:   time.Date(2014, 3, 12, 0, 0, 0, 0, time.UTC),
	}

	created := seedRecord(t, repo, booking)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "starter-1", got.StarterID)
	assert.Equal(t, "listing-1", got.ListingID)
	assert.Equal(t, "community-1", got.CommunityID)
	assert.Empty(t, got.Transitions, "fresh transaction carries no transitions")
	assert.Nil(t, got.Payment)

	require.NotNil(t, got.Booking)
	assert.True(t, booking.StartOn.Equal(got.Booking.StartOn.UTC()))
	assert.True(t, booking.EndOn.Equal(got.Booking.EndOn.UTC()))

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, transaction.ErrNotFound)
}

// ---------------------------------------------------------------------------
// TestIntegration_Repository_AppendTransition
// ---------------------------------------------------------------------------

func TestIntegration_Repository_AppendTransition(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	record := seedRecord(t, repo, nil)

	appendTransition(t, repo, record.ID, transaction.StatePending, 1)
	appendTransition(t, repo, record.ID, transaction.StateAccepted, 2)

	got, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, got.Transitions, 2)
	assert.Equal(t, transaction.StateAccepted, transaction.CurrentState(got.Transitions))
	assert.Equal(t, int64(2), got.Version())

	// A stale version token must lose without inserting anything.
	err = repo.AppendTransition(ctx, transaction.Transition{
		ID:            uuid.NewString(),
		TransactionID: record.ID,
		To:            transaction.StatePaid,
		SortKey:       2,
		CreatedAt:     time.Now().UTC(),
	}, 1)
	require.ErrorIs(t, err, transaction.ErrTransitionConflict)

	got, err = repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Len(t, got.Transitions, 2, "lost race must not append")
}

// ---------------------------------------------------------------------------
// TestIntegration_Repository_SavePayment
// ---------------------------------------------------------------------------

func TestIntegration_Repository_SavePayment(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	record := seedRecord(t, repo, nil)

	spec := payment.InitSpec{
		TransactionID:        record.ID,
		PayerID:              "starter-1",
		RecipientID:          "author-1",
		CommunityID:          "community-1",
		Gateway:              "braintree",
		PreauthorizationDays: 5,
	}

	first, err := payment.Initialize(spec, payment.ItemizedRows{Rows: []payment.RowInput{
		{Title: "Cleaning", Amount: decimal.NewFromInt(500)},
		{Title: "Supplies", Amount: decimal.NewFromInt(120)},
	}})
	require.NoError(t, err)

	require.NoError(t, repo.SavePayment(ctx, first))

	got, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Payment)
	require.Len(t, got.Payment.Rows, 2)
	assert.Equal(t, "Cleaning", got.Payment.Rows[0].Title)
	assert.Equal(t, "EUR", got.Payment.Rows[0].Amount.Currency)
	assert.True(t, decimal.NewFromInt(500).Equal(got.Payment.Rows[0].Amount.Amount))
	assert.Nil(t, got.Payment.Sum)

	second, err := payment.Initialize(spec, payment.FlatAmount{
		Sum:      decimal.NewFromInt(10),
		Currency: "USD",
	})
	require.NoError(t, err)

	err = repo.SavePayment(ctx, second)
	require.ErrorIs(t, err, transaction.ErrPaymentExists)
}

func TestIntegration_Repository_SavePaymentRejectsInvalid(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	record := seedRecord(t, repo, nil)

	sum := payment.NewMoneyFromSum(decimal.NewFromInt(10), "USD")
	invalid := &payment.Payment{
		ID:            uuid.NewString(),
		TransactionID: record.ID,
		Status:        payment.StatusPending,
		Sum:           &sum,
		Rows: []payment.Row{
			{Title: "Extra", Amount: payment.Money{Amount: decimal.NewFromInt(1), Currency: "EUR"}, SortKey: 1},
		},
	}

	err := repo.SavePayment(ctx, invalid)
	require.ErrorIs(t, err, payment.ErrShapeExclusive)

	got, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Payment, "rejected payment must not be persisted")
}

// ---------------------------------------------------------------------------
// TestIntegration_Repository_SetFeedbackSkipped
// ---------------------------------------------------------------------------

func TestIntegration_Repository_SetFeedbackSkipped(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	record := seedRecord(t, repo, nil)

	require.NoError(t, repo.SetFeedbackSkipped(ctx, record.ID, transaction.RoleAuthor, true))

	got, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, got.AuthorSkippedFeedback)
	assert.False(t, got.StarterSkippedFeedback)

	err = repo.SetFeedbackSkipped(ctx, uuid.NewString(), transaction.RoleStarter, true)
	assert.ErrorIs(t, err, transaction.ErrNotFound)
}

// ---------------------------------------------------------------------------
// TestIntegration_Repository_DeleteCascades
// ---------------------------------------------------------------------------

func TestIntegration_Repository_DeleteCascades(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	record := seedRecord(t, repo, &transaction.Booking{
		StartOn: time.Date(2014, 3, 11, 0, 0, 0, 0, time.UTC),
		EndOn:   time.Date(2014, 3, 12, 0, 0, 0, 0, time.UTC),
	})

	appendTransition(t, repo, record.ID, transaction.StatePending, 1)

	require.NoError(t, repo.Delete(ctx, record.ID))

	_, err := repo.GetByID(ctx, record.ID)
	require.ErrorIs(t, err, transaction.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, record.ID), transaction.ErrNotFound)
}
