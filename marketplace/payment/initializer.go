package payment

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// defaultRowCurrency is merged into every itemized row, overriding any
// row-supplied currency. This mirrors the checkout gateway contract, which
// only settles EUR rows.
const defaultRowCurrency = "EUR"

// Attributes is the tagged-union payment initialization input. Exactly two
// shapes exist: FlatAmount and ItemizedRows.
type Attributes interface {
	isAttributes()
}

// FlatAmount initializes a payment from a single major-unit sum.
type FlatAmount struct {
	Sum      decimal.Decimal
	Currency string
}

func (FlatAmount) isAttributes() {}

// RowInput is one row descriptor of an itemized initialization.
type RowInput struct {
	Title    string
	Amount   decimal.Decimal
	Currency string
}

// ItemizedRows initializes a payment from an ordered sequence of rows.
type ItemizedRows struct {
	Rows []RowInput
}

func (ItemizedRows) isAttributes() {}

// InitSpec carries the transaction-derived fields stamped onto every fresh
// payment: payer = starter, recipient = listing author, community and
// gateway from the transaction's community.
type InitSpec struct {
	PaymentID            string
	TransactionID        string
	PayerID              string
	RecipientID          string
	CommunityID          string
	Gateway              string
	PreauthorizationDays int
}

// InitOption configures Initialize.
type InitOption func(*initializer)

// WithClock overrides the timestamp source for the created payment.
func WithClock(now func() time.Time) InitOption {
	return func(init *initializer) {
		if now != nil {
			init.now = now
		}
	}
}

// WithIDGenerator overrides the payment ID source.
func WithIDGenerator(newID func() string) InitOption {
	return func(init *initializer) {
		if newID != nil {
			init.newID = newID
		}
	}
}

type initializer struct {
	now   func() time.Time
	newID func() string
}

// Initialize constructs the single Payment of a transaction with status
// pending. Exactly one attribute shape executes:
//
//   - FlatAmount: the sum is converted to minor units (multiplied by 100)
//     under the given currency; the currency is never defaulted.
//   - ItemizedRows: one line item per non-blank-title row, each with the
//     default row currency merged in over any row-supplied currency.
//
// Malformed rows are not dropped here; they surface from Validate at save
// time. Only blank-title rows are silently skipped.
func Initialize(spec InitSpec, attrs Attributes, opts ...InitOption) (*Payment, error) {
	init := &initializer{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(init)
		}
	}

	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	now := init.now()

	id := spec.PaymentID
	if id == "" {
		id = init.newID()
	}

	result := &Payment{
		ID:                   id,
		TransactionID:        spec.TransactionID,
		Status:               StatusPending,
		PayerID:              spec.PayerID,
		RecipientID:          spec.RecipientID,
		CommunityID:          spec.CommunityID,
		Gateway:              spec.Gateway,
		PreauthorizationDays: spec.PreauthorizationDays,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	switch shape := attrs.(type) {
	case FlatAmount:
		if strings.TrimSpace(shape.Currency) == "" {
			return nil, ErrCurrencyRequired
		}

		if !shape.Sum.IsPositive() {
			return nil, ErrSumNotPositive
		}

		sum := NewMoneyFromSum(shape.Sum, shape.Currency)
		result.Sum = &sum
	case ItemizedRows:
		if len(shape.Rows) == 0 {
			return nil, ErrRowsRequired
		}

		for _, row := range shape.Rows {
			if strings.TrimSpace(row.Title) == "" {
				continue
			}

			result.Rows = append(result.Rows, Row{
				Title:   row.Title,
				Amount:  Money{Amount: row.Amount, Currency: defaultRowCurrency},
				SortKey: int64(len(result.Rows) + 1),
			})
		}
	case nil:
		return nil, ErrAttributesRequired
	default:
		return nil, ErrAttributesUnknown
	}

	return result, nil
}

func validateSpec(spec InitSpec) error {
	if strings.TrimSpace(spec.TransactionID) == "" {
		return ErrTransactionRequired
	}

	if strings.TrimSpace(spec.PayerID) == "" {
		return ErrPayerRequired
	}

	if strings.TrimSpace(spec.RecipientID) == "" {
		return ErrRecipientRequired
	}

	if strings.TrimSpace(spec.CommunityID) == "" {
		return ErrCommunityRequired
	}

	if strings.TrimSpace(spec.Gateway) == "" {
		return ErrGatewayRequired
	}

	return nil
}
