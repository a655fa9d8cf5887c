// Package service implements the in-process API the surrounding application
// calls: receipt ingestion and lifecycle, claim mutations, per-participant
// breakdowns, and share-code issuance. Services coordinate storage with the
// pure allocation arithmetic in the engine package; they hold no derived
// state of their own.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tabsplit/tabsplit/internal/engine"
	"github.com/tabsplit/tabsplit/internal/metrics"
	"github.com/tabsplit/tabsplit/internal/models"
	"github.com/tabsplit/tabsplit/internal/storage"
)

var (
	// ErrNotHost is returned when a host-only action (delete, re-parse, tip
	// edits) comes from anyone else.
	ErrNotHost = errors.New("only the host can perform this action")

	// ErrNotParticipant is returned when the acting participant does not
	// belong to the receipt.
	ErrNotParticipant = errors.New("participant does not belong to this receipt")
)

// ReceiptService owns receipt lifecycle, claims, and allocation queries.
type ReceiptService struct {
	store storage.Store
}

// NewReceiptService creates a ReceiptService with the given storage backend.
func NewReceiptService(store storage.Store) *ReceiptService {
	return &ReceiptService{store: store}
}

// isParticipant checks if the id belongs to one of the receipt's participants.
func isParticipant(receipt *models.Receipt, participantID string) bool {
	for _, p := range receipt.Participants {
		if p.ID == participantID {
			return true
		}
	}
	return false
}

// parsedToItems converts the parser's line items to stored items.
func parsedToItems(parsed models.ParsedReceipt) []models.ReceiptItem {
	items := make([]models.ReceiptItem, len(parsed.Items))
	for i, pi := range parsed.Items {
		items[i] = models.ReceiptItem{
			Name:       pi.Name,
			Quantity:   pi.Quantity,
			PriceCents: pi.PriceCents,
			Modifiers:  pi.Modifiers,
		}
	}
	return items
}

// Ingest records a freshly parsed receipt owned by the host. The receipt
// lands in parsed status with its items created and the host attached as the
// first participant.
func (s *ReceiptService) Ingest(ctx context.Context, host models.Participant, parsed models.ParsedReceipt) (*models.Receipt, error) {
	host.IsHost = true
	receipt := &models.Receipt{
		Status:       models.StatusParsed,
		MerchantName: parsed.MerchantName,
		MerchantType: parsed.MerchantType,
		Date:         parsed.Date,
		Currency:     parsed.Currency,
		TotalCents:   parsed.TotalCents,
		TaxCents:     parsed.TaxCents,
		TipCents:     parsed.TipCents,
		HostUserID:   host.ID,
		Participants: []models.Participant{host},
	}

	if err := s.store.CreateReceipt(ctx, receipt, parsedToItems(parsed)); err != nil {
		slog.Error("Ingest failed", "host_user_id", host.ID, "error", err)
		metrics.ReceiptsIngested.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to ingest receipt: %w", err)
	}

	metrics.ReceiptsIngested.WithLabelValues("created").Inc()
	slog.Info("Receipt ingested", "receipt_id", receipt.ID, "merchant", receipt.MerchantName, "items", len(parsed.Items))
	return receipt, nil
}

// Reparse replaces a receipt's parsed data wholesale. Host only. The receipt
// id survives so existing links and share codes keep working; prior items and
// every claim on them do not.
func (s *ReceiptService) Reparse(ctx context.Context, receiptID, requesterID string, parsed models.ParsedReceipt) (*models.Receipt, error) {
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.HostUserID != requesterID {
		return nil, ErrNotHost
	}

	receipt.Status = models.StatusParsed
	receipt.MerchantName = parsed.MerchantName
	receipt.MerchantType = parsed.MerchantType
	receipt.Date = parsed.Date
	if parsed.Currency != "" {
		receipt.Currency = parsed.Currency
	}
	receipt.TotalCents = parsed.TotalCents
	receipt.TaxCents = parsed.TaxCents
	receipt.TipCents = parsed.TipCents
	// A new parse means a new tip amount to confirm.
	receipt.TipConfirmed = false

	if err := s.store.ReplaceParsedData(ctx, receipt, parsedToItems(parsed)); err != nil {
		slog.Error("Reparse failed", "receipt_id", receiptID, "error", err)
		metrics.ReceiptsIngested.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to reparse receipt: %w", err)
	}

	metrics.ReceiptsIngested.WithLabelValues("reparsed").Inc()
	slog.Info("Receipt reparsed", "receipt_id", receiptID, "items", len(parsed.Items))
	return receipt, nil
}

// MarkParsing moves the receipt into parsing status while the external
// parser works on it. Host only, since re-parsing is a host right.
func (s *ReceiptService) MarkParsing(ctx context.Context, receiptID, requesterID string) error {
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return err
	}
	if receipt.HostUserID != requesterID {
		return ErrNotHost
	}
	return s.store.SetReceiptStatus(ctx, receiptID, models.StatusParsing)
}

// MarkParseError records a failed parse attempt. The receipt stays around
// and may be re-parsed.
func (s *ReceiptService) MarkParseError(ctx context.Context, receiptID string) error {
	metrics.ReceiptsIngested.WithLabelValues("error").Inc()
	return s.store.SetReceiptStatus(ctx, receiptID, models.StatusError)
}

// GetReceipt returns a receipt with its participants and items.
func (s *ReceiptService) GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, []models.ReceiptItem, error) {
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.store.GetItems(ctx, receiptID)
	if err != nil {
		return nil, nil, err
	}
	return receipt, items, nil
}

// Join attaches a participant (authenticated joiner or guest) to a receipt.
// Joining twice is a no-op.
func (s *ReceiptService) Join(ctx context.Context, receiptID string, p models.Participant) (*models.Receipt, error) {
	if _, err := s.store.GetReceipt(ctx, receiptID); err != nil {
		return nil, err
	}
	p.IsHost = false
	if err := s.store.AddParticipant(ctx, receiptID, p); err != nil {
		slog.Error("Join failed", "receipt_id", receiptID, "error", err)
		return nil, fmt.Errorf("failed to join receipt: %w", err)
	}
	slog.Info("Participant joined", "receipt_id", receiptID, "participant_id", p.ID, "guest", p.IsGuest)
	return s.store.GetReceipt(ctx, receiptID)
}

// Claim marks the participant as sharing responsibility for the item.
// Idempotent: claiming an already-claimed item changes nothing.
func (s *ReceiptService) Claim(ctx context.Context, itemID, participantID string) error {
	if err := s.checkItemParticipant(ctx, itemID, participantID); err != nil {
		return err
	}
	if err := s.store.AddClaim(ctx, itemID, participantID); err != nil {
		return err
	}
	metrics.ClaimToggles.WithLabelValues("claim").Inc()
	return nil
}

// Unclaim withdraws the participant's claim. Idempotent.
func (s *ReceiptService) Unclaim(ctx context.Context, itemID, participantID string) error {
	if err := s.checkItemParticipant(ctx, itemID, participantID); err != nil {
		return err
	}
	if err := s.store.RemoveClaim(ctx, itemID, participantID); err != nil {
		return err
	}
	metrics.ClaimToggles.WithLabelValues("unclaim").Inc()
	return nil
}

// Assign replaces the item's claimant set. Host only; every assignee must
// already be a participant of the receipt.
func (s *ReceiptService) Assign(ctx context.Context, itemID, requesterID string, participantIDs []string) error {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	receipt, err := s.store.GetReceipt(ctx, item.ReceiptID)
	if err != nil {
		return err
	}
	if receipt.HostUserID != requesterID {
		return ErrNotHost
	}
	for _, id := range participantIDs {
		if !isParticipant(receipt, id) {
			return fmt.Errorf("%w: %s", ErrNotParticipant, id)
		}
	}

	if err := s.store.SetClaims(ctx, itemID, participantIDs); err != nil {
		return err
	}
	metrics.ClaimToggles.WithLabelValues("assign").Inc()
	return nil
}

// checkItemParticipant verifies the participant belongs to the item's receipt.
func (s *ReceiptService) checkItemParticipant(ctx context.Context, itemID, participantID string) error {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	receipt, err := s.store.GetReceipt(ctx, item.ReceiptID)
	if err != nil {
		return err
	}
	if !isParticipant(receipt, participantID) {
		return fmt.Errorf("%w: %s", ErrNotParticipant, participantID)
	}
	return nil
}

// SetTip updates the tip amount. Host only. Editing the tip also confirms it.
func (s *ReceiptService) SetTip(ctx context.Context, receiptID, requesterID string, tipCents int64) error {
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return err
	}
	if receipt.HostUserID != requesterID {
		return ErrNotHost
	}
	return s.store.SetTip(ctx, receiptID, tipCents, true)
}

// ConfirmTip marks the parsed tip amount as final without changing it.
// Host only.
func (s *ReceiptService) ConfirmTip(ctx context.Context, receiptID, requesterID string) error {
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return err
	}
	if receipt.HostUserID != requesterID {
		return ErrNotHost
	}
	return s.store.SetTip(ctx, receiptID, receipt.TipCents, true)
}

// Delete removes the receipt and everything attached to it. Host only.
func (s *ReceiptService) Delete(ctx context.Context, receiptID, requesterID string) error {
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return err
	}
	if receipt.HostUserID != requesterID {
		return ErrNotHost
	}
	if err := s.store.DeleteReceipt(ctx, receiptID); err != nil {
		return err
	}
	slog.Info("Receipt deleted", "receipt_id", receiptID)
	return nil
}

// Breakdown computes one participant's share of the receipt. A participant
// with no claims owes nothing; an unknown id simply yields a zero breakdown.
func (s *ReceiptService) Breakdown(ctx context.Context, receiptID, participantID string) (engine.Breakdown, error) {
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return engine.Breakdown{}, err
	}
	items, err := s.store.GetItems(ctx, receiptID)
	if err != nil {
		return engine.Breakdown{}, err
	}
	return engine.Apportion(*receipt, items, participantID), nil
}

// ParticipantSummary pairs a participant with their computed share.
type ParticipantSummary struct {
	models.Participant
	Breakdown engine.Breakdown `json:"breakdown"`
}

// Summary is the aggregate view of a receipt: progress, claimed amounts, and
// every participant's share, recomputed from the current snapshot.
type Summary struct {
	Receipt               models.Receipt       `json:"receipt"`
	Items                 []models.ReceiptItem `json:"items"`
	SubtotalCents         int64                `json:"subtotal_cents"`
	ClaimedCents          int64                `json:"claimed_cents"`
	UnclaimedCents        int64                `json:"unclaimed_cents"`
	ProgressPercent       float64              `json:"progress_percent"`
	PromptTipConfirmation bool                 `json:"prompt_tip_confirmation"`
	Participants          []ParticipantSummary `json:"participants"`
}

// Summarize computes the aggregate view for a receipt.
func (s *ReceiptService) Summarize(ctx context.Context, receiptID string) (*Summary, error) {
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.GetItems(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	subtotal := engine.ReceiptSubtotalCents(items)
	claimed := engine.ClaimedAmountCents(items)

	summary := &Summary{
		Receipt:               *receipt,
		Items:                 items,
		SubtotalCents:         subtotal,
		ClaimedCents:          claimed,
		UnclaimedCents:        engine.UnclaimedAmountCents(items),
		ProgressPercent:       engine.ProgressPercentage(claimed, subtotal),
		PromptTipConfirmation: engine.ShouldPromptTipConfirmation(*receipt),
	}
	for _, p := range receipt.Participants {
		summary.Participants = append(summary.Participants, ParticipantSummary{
			Participant: p,
			Breakdown:   engine.Apportion(*receipt, items, p.ID),
		})
	}
	return summary, nil
}
