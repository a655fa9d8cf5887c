// Package engine implements the bill allocation arithmetic: item totals,
// proportional tax/tip apportionment, multi-claimant equal splits, and
// claimed-amount aggregation.
//
// Every function is pure and stateless over an immutable Receipt+Items
// snapshot: no I/O, no shared state, safe to call concurrently. Callers
// recompute from the latest snapshot instead of caching derived values.
//
// Inputs are assumed well-formed (non-negative integer cents); validation
// belongs to the ingestion boundary. Degenerate states such as zero items,
// zero subtotal, or unclaimed items produce defined zero results, never
// errors.
package engine

import (
	"math"
	"strings"

	"github.com/tabsplit/tabsplit/internal/models"
)

// tipPromptMerchantTypes are the merchant categories where a tip is customary
// enough that confirmation is always solicited, regardless of the parsed tip
// amount.
var tipPromptMerchantTypes = map[string]bool{
	"restaurant":    true,
	"services":      true,
	"travel":        true,
	"entertainment": true,
}

// Breakdown is one participant's share of a receipt.
type Breakdown struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TipCents      int64 `json:"tip_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// ItemTotalCents returns the full cost of a line item: its price plus every
// modifier's price. Missing prices count as zero.
func ItemTotalCents(item models.ReceiptItem) int64 {
	total := item.PriceCents
	for _, mod := range item.Modifiers {
		total += mod.PriceCents
	}
	return total
}

// ReceiptSubtotalCents returns the sum of item totals across the receipt.
//
// This is the authoritative subtotal for apportionment. It is deliberately
// not back-derived from the receipt's parsed total minus tax and tip: parser
// totals can drift a few cents, and proportional shares must stay consistent
// with what participants actually claim.
func ReceiptSubtotalCents(items []models.ReceiptItem) int64 {
	var subtotal int64
	for _, item := range items {
		subtotal += ItemTotalCents(item)
	}
	return subtotal
}

// ParticipantShareOfItem returns the participant's equal share of an item,
// or 0 if they are not a claimant.
//
// The share is round-half-up of itemTotal / claimantCount. Remainder cents
// are not redistributed: a 3-way split of 100 yields 33+33+33, one cent of
// accepted drift against the item total.
func ParticipantShareOfItem(item models.ReceiptItem, participantID string) int64 {
	if !item.ClaimedByContains(participantID) {
		return 0
	}
	n := len(item.ClaimedBy)
	return int64(math.Round(float64(ItemTotalCents(item)) / float64(n)))
}

// ParticipantSubtotalCents returns the sum of the participant's item shares
// across the receipt.
func ParticipantSubtotalCents(items []models.ReceiptItem, participantID string) int64 {
	var subtotal int64
	for _, item := range items {
		subtotal += ParticipantShareOfItem(item, participantID)
	}
	return subtotal
}

// ParticipantProportion returns the participant's fraction of the receipt
// subtotal, in [0, 1]. A zero subtotal yields 0 rather than an error.
func ParticipantProportion(items []models.ReceiptItem, participantID string) float64 {
	subtotal := ReceiptSubtotalCents(items)
	if subtotal == 0 {
		return 0
	}
	return float64(ParticipantSubtotalCents(items, participantID)) / float64(subtotal)
}

// Apportion computes a participant's full breakdown: their claimed subtotal
// plus proportional shares of the receipt-level tax and tip.
//
// Tax and tip are allocated by claimed-subtotal proportion, so a participant
// who claimed nothing owes nothing and one who claimed everything owes the
// full tax and tip. Missing tax/tip amounts on the receipt count as zero.
func Apportion(receipt models.Receipt, items []models.ReceiptItem, participantID string) Breakdown {
	subtotal := ParticipantSubtotalCents(items, participantID)
	proportion := ParticipantProportion(items, participantID)
	tax := int64(math.Round(float64(receipt.TaxCents) * proportion))
	tip := int64(math.Round(float64(receipt.TipCents) * proportion))
	return Breakdown{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TipCents:      tip,
		TotalCents:    subtotal + tax + tip,
	}
}

// ClaimedAmountCents returns the sum of full item totals over items with at
// least one claimant. An item counts as fully claimed once anyone claims it:
// for progress tracking the question is "is it accounted for", not "who pays
// the rest".
func ClaimedAmountCents(items []models.ReceiptItem) int64 {
	var claimed int64
	for _, item := range items {
		if len(item.ClaimedBy) > 0 {
			claimed += ItemTotalCents(item)
		}
	}
	return claimed
}

// UnclaimedAmountCents returns the portion of the subtotal not yet covered by
// any claim. Non-negative by construction.
func UnclaimedAmountCents(items []models.ReceiptItem) int64 {
	return ReceiptSubtotalCents(items) - ClaimedAmountCents(items)
}

// ProgressPercentage returns claimed/total as a percentage in [0, 100].
// A non-positive total yields 0. Clamping guards against transient over-claim
// states during concurrent edits.
func ProgressPercentage(claimedCents, totalCents int64) float64 {
	if totalCents <= 0 {
		return 0
	}
	pct := float64(claimedCents) / float64(totalCents) * 100
	return math.Min(100, math.Max(0, pct))
}

// ShouldPromptTipConfirmation reports whether the host should be asked to
// confirm the tip amount before shares are treated as final.
//
// Once the host confirms, the prompt never reappears. Otherwise tip-customary
// merchant types always prompt, any parsed tip amount prompts, and an absent
// merchant type falls toward prompting. Over-asking beats silently skipping a
// tip check.
func ShouldPromptTipConfirmation(receipt models.Receipt) bool {
	if receipt.TipConfirmed {
		return false
	}
	merchantType := strings.ToLower(strings.TrimSpace(receipt.MerchantType))
	if tipPromptMerchantTypes[merchantType] {
		return true
	}
	if receipt.TipCents > 0 {
		return true
	}
	return merchantType == ""
}
