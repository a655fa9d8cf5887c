package models

// ParsedReceipt is the ingestion-boundary shape produced by the external
// vision parser. All monetary fields are already integer cents; optional
// fields arrive as zero values and are taken to mean "unknown, assume 0".
//
// The producer guarantees non-negative prices and quantity >= 1; this
// boundary does not re-validate them.
type ParsedReceipt struct {
	MerchantName string       `json:"merchant_name,omitempty"`
	MerchantType string       `json:"merchant_type,omitempty"`
	Date         string       `json:"date,omitempty"`
	Currency     string       `json:"currency,omitempty"`
	TotalCents   int64        `json:"total_cents"`
	TaxCents     int64        `json:"tax_cents"`
	TipCents     int64        `json:"tip_cents"`
	Items        []ParsedItem `json:"items"`
}

// ParsedItem is one line item as extracted by the parser. PriceCents is the
// line total; quantity is informational only.
type ParsedItem struct {
	Name       string     `json:"name"`
	Quantity   int64      `json:"quantity"`
	PriceCents int64      `json:"price_cents"`
	Modifiers  []Modifier `json:"modifiers,omitempty"`
}
