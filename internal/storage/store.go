// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/tabsplit/tabsplit/internal/models"
)

// Sentinel errors returned by Store implementations. Services map these to
// caller-facing not-found results; everything else is an internal failure.
var (
	ErrReceiptNotFound   = errors.New("receipt not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrShareCodeNotFound = errors.New("share code not found")
)

// Store defines the interface for receipt, claim, and share-code persistence.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateReceipt persists a new receipt with its participants and items.
	// Missing IDs and CreatedAt are populated by the store.
	CreateReceipt(ctx context.Context, receipt *models.Receipt, items []models.ReceiptItem) error

	// GetReceipt retrieves a receipt with its participants.
	GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error)

	// GetItems retrieves a receipt's items in receipt order, with modifiers
	// and claims attached.
	GetItems(ctx context.Context, receiptID string) ([]models.ReceiptItem, error)

	// ReplaceParsedData patches the receipt's parsed fields and replaces all
	// of its items in one transaction. The receipt row and its id survive a
	// re-parse; prior items and their claims do not.
	ReplaceParsedData(ctx context.Context, receipt *models.Receipt, items []models.ReceiptItem) error

	// SetReceiptStatus updates only the lifecycle status.
	SetReceiptStatus(ctx context.Context, receiptID string, status models.ReceiptStatus) error

	// SetTip updates the tip amount and its confirmation flag.
	SetTip(ctx context.Context, receiptID string, tipCents int64, confirmed bool) error

	// DeleteReceipt removes the receipt and everything owned by it.
	DeleteReceipt(ctx context.Context, receiptID string) error

	// AddParticipant attaches a participant to a receipt. Adding the same
	// participant twice is a no-op.
	AddParticipant(ctx context.Context, receiptID string, p models.Participant) error

	// GetItem retrieves a single item with modifiers and claims.
	GetItem(ctx context.Context, itemID string) (*models.ReceiptItem, error)

	// AddClaim records a participant's claim on an item. Idempotent.
	AddClaim(ctx context.Context, itemID, participantID string) error

	// RemoveClaim withdraws a participant's claim on an item. Removing a
	// claim that does not exist is a no-op.
	RemoveClaim(ctx context.Context, itemID, participantID string) error

	// SetClaims replaces an item's claimant set wholesale (host assignment).
	SetClaims(ctx context.Context, itemID string, participantIDs []string) error

	// GetActiveShareCodeForReceipt returns the receipt's unexpired code, if any.
	GetActiveShareCodeForReceipt(ctx context.Context, receiptID string, now int64) (*models.ShareCode, error)

	// GetActiveShareCode returns the unexpired code record matching code exactly.
	GetActiveShareCode(ctx context.Context, code string, now int64) (*models.ShareCode, error)

	// CreateShareCode persists a new code record.
	CreateShareCode(ctx context.Context, sc *models.ShareCode) error

	// DeleteExpiredShareCodes removes code rows whose expiry has passed,
	// returning how many were deleted. Cleanup only: reads already filter on
	// expiry, so correctness never depends on this running.
	DeleteExpiredShareCodes(ctx context.Context, now int64) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}
