package listing

import "fmt"

// Kind classifies a listing. All kinds except KindRequest are offers.
type Kind string

const (
	// KindSell offers an item for sale.
	KindSell Kind = "sell"
	// KindGive offers an item for free.
	KindGive Kind = "give"
	// KindLend offers an item to borrow.
	KindLend Kind = "lend"
	// KindRent offers an item or space for rent.
	KindRent Kind = "rent"
	// KindSwap offers an exchange.
	KindSwap Kind = "swap"
	// KindService offers labor priced per time unit.
	KindService Kind = "service"
	// KindRequest asks for something instead of offering it.
	KindRequest Kind = "request"
)

// ParseKind validates and converts a raw string kind.
func ParseKind(raw string) (Kind, error) {
	kind := Kind(raw)

	if !kind.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}

	return kind, nil
}

// IsValid reports whether the kind is part of the closed set.
func (k Kind) IsValid() bool {
	switch k {
	case KindSell, KindGive, KindLend, KindRent, KindSwap, KindService, KindRequest:
		return true
	default:
		return false
	}
}

// IsRequest reports whether the kind asks rather than offers.
func (k Kind) IsRequest() bool {
	return k == KindRequest
}

func (k Kind) String() string {
	return string(k)
}

// Defaults carries the per-kind default field values merged into a listing
// at construction when the config leaves them unset.
type Defaults struct {
	PriceField          bool
	PricePer            string
	QuantityPlaceholder string
	PreauthorizePayment bool
}

// DefaultsFor returns the construction defaults of a kind. Kinds that move
// money default the price field on; services are priced per day.
func DefaultsFor(kind Kind) Defaults {
	switch kind {
	case KindSell:
		return Defaults{PriceField: true, PricePer: "piece"}
	case KindRent:
		return Defaults{PriceField: true, PricePer: "day", PreauthorizePayment: true}
	case KindService:
		return Defaults{PriceField: true, PricePer: "day"}
	case KindGive, KindLend, KindSwap, KindRequest:
		return Defaults{}
	default:
		return Defaults{}
	}
}
