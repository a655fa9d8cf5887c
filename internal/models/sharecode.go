package models

// ShareCode is an ephemeral token mapping a short pronounceable code to a
// receipt, letting guests join a split out of band (spoken aloud or via QR).
//
// Expiry is purely time-based; there is no revoked state. A code whose
// ExpiresAt has passed is indistinguishable from a code that never existed.
// Multiple codes may exist historically for one receipt, but at most one
// active code should be handed out at a time.
type ShareCode struct {
	// Code is the upper-case short word drawn from the fixed vocabulary.
	Code string `json:"code"`

	// ReceiptID is the receipt the code resolves to.
	ReceiptID string `json:"receipt_id"`

	// ExpiresAt is the Unix timestamp after which the code is invalid.
	ExpiresAt int64 `json:"expires_at"`
}

// ActiveAt reports whether the code is still valid at the given Unix time.
func (c *ShareCode) ActiveAt(now int64) bool {
	return c.ExpiresAt > now
}
