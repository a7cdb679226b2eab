package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Status represents the gateway-driven lifecycle state of a payment.
type Status string

const (
	// StatusPending marks a freshly initialized, unsettled payment.
	StatusPending Status = "pending"
	// StatusPaid marks a payment settled by the gateway.
	StatusPaid Status = "paid"
	// StatusErrored marks a payment the gateway failed to settle.
	StatusErrored Status = "errored"
)

var (
	ErrAttributesRequired  = errors.New("payment attributes are required")
	ErrAttributesUnknown   = errors.New("payment attributes match neither recognized shape")
	ErrCurrencyRequired    = errors.New("currency is required for a flat amount")
	ErrSumNotPositive      = errors.New("sum must be greater than zero")
	ErrRowsRequired        = errors.New("at least one row is required")
	ErrTransactionRequired = errors.New("transaction id is required")
	ErrPayerRequired       = errors.New("payer id is required")
	ErrRecipientRequired   = errors.New("recipient id is required")
	ErrCommunityRequired   = errors.New("community id is required")
	ErrGatewayRequired     = errors.New("payment gateway is required")
	ErrShapeExclusive      = errors.New("payment must carry either a single sum or line rows, not both and not neither")
)

// Money is a monetary value in minor currency units (cents).
type Money struct {
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Currency string          `json:"currency" validate:"required,iso4217"`
}

var oneHundred = decimal.NewFromInt(100)

// NewMoneyFromSum converts a major-unit sum (e.g. "10.00") into minor units
// by multiplying by 100 under the given currency.
func NewMoneyFromSum(sum decimal.Decimal, currency string) Money {
	return Money{Amount: sum.Mul(oneHundred), Currency: currency}
}

// Row is one ordered line item of an itemized payment.
type Row struct {
	Title   string `json:"title" validate:"required"`
	Amount  Money  `json:"amount"`
	SortKey int64  `json:"sortKey"`
}

// Payment records the monetary obligation of one transaction. It carries
// either a single Sum or an ordered sequence of Rows; which shape was used is
// fixed at initialization.
type Payment struct {
	ID                   string     `json:"id" validate:"required"`
	TransactionID        string     `json:"transactionId" validate:"required"`
	Status               Status     `json:"status" validate:"required"`
	PayerID              string     `json:"payerId" validate:"required"`
	RecipientID          string     `json:"recipientId" validate:"required"`
	CommunityID          string     `json:"communityId" validate:"required"`
	Gateway              string     `json:"gateway" validate:"required"`
	Sum                  *Money     `json:"sum,omitempty"`
	Rows                 []Row      `json:"rows,omitempty" validate:"dive"`
	PreauthorizationDays int        `json:"preauthorizationDays" validate:"min=0"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	PaidAt               *time.Time `json:"paidAt,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs save-time validation: required fields on the payment and on
// every row, plus the one-shape invariant. Storage layers call it before
// persisting so a malformed payment is rejected rather than half-saved.
func (p *Payment) Validate() error {
	hasSum := p.Sum != nil
	hasRows := len(p.Rows) > 0

	if hasSum == hasRows {
		return ErrShapeExclusive
	}

	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("payment validation: %w", err)
	}

	if hasSum {
		if err := validate.Struct(p.Sum); err != nil {
			return fmt.Errorf("payment sum: %w", err)
		}
	}

	for i, row := range p.Rows {
		if err := validate.Struct(row.Amount); err != nil {
			return fmt.Errorf("payment row %d amount: %w", i, err)
		}
	}

	return nil
}
