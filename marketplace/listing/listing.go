package listing

import (
	"errors"
	"strings"
	"time"

	"github.com/siegfried/sharetribe/marketplace/transaction"
)

var (
	ErrAuthorRequired = errors.New("listing author is required")
	ErrTitleRequired  = errors.New("listing title is required")
	ErrUnknownKind    = errors.New("unknown listing kind")
)

// Config is the explicit construction input of a listing. Optional fields
// left nil fall back to the kind's defaults; nothing is read from process-
// wide state.
type Config struct {
	ID                  string
	AuthorID            string
	Kind                Kind
	Title               string
	PriceField          *bool
	PricePer            string
	QuantityPlaceholder *string
	PreauthorizePayment *bool
}

// Listing is a concrete marketplace listing. It satisfies the transaction
// package's Listing collaborator interface.
type Listing struct {
	ID                  string
	AuthorID            string
	Kind                Kind
	Title               string
	PriceField          bool
	PricePer            string
	QuantityPlaceholder string
	PreauthorizePayment bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

var _ transaction.Listing = (*Listing)(nil)

// New constructs a listing, merging the kind's defaults into unset optional
// fields.
func New(cfg Config) (*Listing, error) {
	if strings.TrimSpace(cfg.AuthorID) == "" {
		return nil, ErrAuthorRequired
	}

	if strings.TrimSpace(cfg.Title) == "" {
		return nil, ErrTitleRequired
	}

	if !cfg.Kind.IsValid() {
		return nil, ErrUnknownKind
	}

	defaults := DefaultsFor(cfg.Kind)

	result := &Listing{
		ID:                  cfg.ID,
		AuthorID:            cfg.AuthorID,
		Kind:                cfg.Kind,
		Title:               cfg.Title,
		PriceField:          defaults.PriceField,
		PricePer:            defaults.PricePer,
		QuantityPlaceholder: defaults.QuantityPlaceholder,
		PreauthorizePayment: defaults.PreauthorizePayment,
	}

	if cfg.PriceField != nil {
		result.PriceField = *cfg.PriceField
	}

	if cfg.PricePer != "" {
		result.PricePer = cfg.PricePer
	}

	if cfg.QuantityPlaceholder != nil {
		result.QuantityPlaceholder = *cfg.QuantityPlaceholder
	}

	if cfg.PreauthorizePayment != nil {
		result.PreauthorizePayment = *cfg.PreauthorizePayment
	}

	return result, nil
}

// Author returns the listing owner's identity.
func (l *Listing) Author() string {
	return l.AuthorID
}

// IsRequest reports whether the listing asks rather than offers.
func (l *Listing) IsRequest() bool {
	return l.Kind.IsRequest()
}

// PaymentRequiredAt reports whether transacting on this listing requires a
// payment in the given community: the listing carries a price and the
// community has a gateway configured.
func (l *Listing) PaymentRequiredAt(community transaction.Community) bool {
	if community == nil {
		return false
	}

	return l.PriceField && strings.TrimSpace(community.PaymentGateway()) != ""
}
