package models

// ReceiptStatus tracks a receipt's parse lifecycle.
type ReceiptStatus string

const (
	// StatusDraft is a receipt created before an image has been submitted for parsing.
	StatusDraft ReceiptStatus = "draft"
	// StatusParsing is a receipt whose image is with the external parser.
	StatusParsing ReceiptStatus = "parsing"
	// StatusParsed is a receipt with structured data available.
	StatusParsed ReceiptStatus = "parsed"
	// StatusError is a receipt whose parse attempt failed. It may be re-parsed.
	StatusError ReceiptStatus = "error"
)

// DefaultCurrency is assumed when the parser reports no currency.
// Formatting is a presentation concern; the engine is currency-agnostic.
const DefaultCurrency = "USD"

// Receipt represents one uploaded bill with its parsed totals.
//
// TotalCents, TaxCents and TipCents come from the parser and may be zero when
// unknown. TotalCents is display metadata only: allocation always derives the
// subtotal from the items, since parser totals can be off by a few cents.
type Receipt struct {
	// ID is the unique identifier for the receipt (UUID format).
	ID string `json:"id"`

	// Status is the parse lifecycle state.
	Status ReceiptStatus `json:"status"`

	// MerchantName is the store name as read off the receipt, if any.
	MerchantName string `json:"merchant_name,omitempty"`

	// MerchantType is a free-text category ("restaurant", "grocery", ...).
	// Used only to decide whether tip confirmation should be solicited.
	MerchantType string `json:"merchant_type,omitempty"`

	// Date is the receipt date as transcribed by the parser, if any.
	Date string `json:"date,omitempty"`

	// Currency is an ISO-like code, defaulting to USD.
	Currency string `json:"currency"`

	TotalCents int64 `json:"total_cents"`
	TaxCents   int64 `json:"tax_cents"`
	TipCents   int64 `json:"tip_cents"`

	// TipConfirmed is the host-set flag marking the tip amount as final.
	TipConfirmed bool `json:"tip_confirmed"`

	// HostUserID is the participant who owns the receipt. The host holds
	// exclusive rights to delete, re-parse, and edit or confirm the tip.
	HostUserID string `json:"host_user_id"`

	// Participants is everyone attached to the receipt: host, authenticated
	// joiners, and guest entries.
	Participants []Participant `json:"participants,omitempty"`

	// CreatedAt is the Unix timestamp when the receipt was created.
	CreatedAt int64 `json:"created_at"`
}

// Participant is a user or guest associated with a receipt.
type Participant struct {
	// ID is the unique identifier for the participant (UUID format).
	ID string `json:"id"`

	// DisplayName is the name shown on shared views.
	DisplayName string `json:"display_name"`

	// IsHost marks the receipt owner.
	IsHost bool `json:"is_host"`

	// IsGuest marks a participant who joined without an account.
	IsGuest bool `json:"is_guest"`
}

// Modifier is a priced addition to a line item ("extra cheese", "oat milk").
type Modifier struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// ReceiptItem is a single line item on a receipt.
//
// Quantity is informational display metadata: the parser expresses PriceCents
// as the line total, so quantity is never multiplied into the arithmetic.
type ReceiptItem struct {
	// ID is the unique identifier for the item (UUID format).
	ID string `json:"id"`

	// ReceiptID is the owning receipt.
	ReceiptID string `json:"receipt_id"`

	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`

	// PriceCents is the line total for the item, zero when the parser could
	// not read a price.
	PriceCents int64 `json:"price_cents"`

	// Modifiers is the ordered list of priced additions; each adds to the
	// item's total.
	Modifiers []Modifier `json:"modifiers,omitempty"`

	// ClaimedBy is the set of participant IDs sharing responsibility for the
	// item. The split is always equal among current claimants.
	ClaimedBy []string `json:"claimed_by,omitempty"`
}

// ClaimedByContains reports whether the participant has claimed the item.
func (it *ReceiptItem) ClaimedByContains(participantID string) bool {
	for _, id := range it.ClaimedBy {
		if id == participantID {
			return true
		}
	}
	return false
}
