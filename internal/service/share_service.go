package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/tabsplit/tabsplit/internal/sharecode"
	"github.com/tabsplit/tabsplit/internal/storage"
)

// ShareService issues and resolves join codes for receipts.
type ShareService struct {
	store storage.Store
	gen   *sharecode.Generator

	// now is overridable in tests.
	now func() time.Time
}

// NewShareService creates a ShareService with the given storage backend and
// code lifetime. A ttl of 0 uses the generator's default.
func NewShareService(store storage.Store, ttl time.Duration) *ShareService {
	return &ShareService{
		store: store,
		gen:   sharecode.NewGenerator(store, ttl),
		now:   time.Now,
	}
}

// GetOrCreateCode returns the receipt's active share code, creating one if
// needed. The requester must be a participant of the receipt.
func (s *ShareService) GetOrCreateCode(ctx context.Context, receiptID, requesterID string) (string, error) {
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return "", err
	}
	if !isParticipant(receipt, requesterID) {
		return "", ErrNotParticipant
	}

	code, err := s.gen.GetOrCreate(ctx, receiptID, s.now())
	if err != nil {
		slog.Error("GetOrCreateCode failed", "receipt_id", receiptID, "error", err)
		return "", err
	}
	return code, nil
}

// ResolveCode returns the receipt id for an active code. Expired codes are
// indistinguishable from codes that never existed.
func (s *ShareService) ResolveCode(ctx context.Context, code string) (string, error) {
	return s.gen.Resolve(ctx, code, s.now())
}

// SweepExpired removes expired code rows. Pure cleanup: lookups already
// filter on expiry, so skipping a sweep never affects correctness.
func (s *ShareService) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := s.store.DeleteExpiredShareCodes(ctx, s.now().Unix())
	if err != nil {
		slog.Error("SweepExpired failed", "error", err)
		return 0, err
	}
	if deleted > 0 {
		slog.Debug("Swept expired share codes", "deleted", deleted)
	}
	return deleted, nil
}
