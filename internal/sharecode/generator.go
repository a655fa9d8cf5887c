// Package sharecode issues short, human-speakable, time-boxed codes that
// resolve to receipt ids, for out-of-band sharing (spoken aloud or via QR).
package sharecode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/tabsplit/tabsplit/internal/metrics"
	"github.com/tabsplit/tabsplit/internal/models"
	"github.com/tabsplit/tabsplit/internal/storage"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 30 * time.Minute

// maxAttempts bounds collision redraws so issuance can never hang. After the
// budget is spent the last draw is accepted even if it collides: within a
// 30-minute window and a 50-word vocabulary the ambiguity is rare and
// low-stakes, so the system tolerates it rather than failing the share.
const maxAttempts = 5

// vocabulary is the fixed set of pronounceable 4-letter words codes are
// drawn from.
var vocabulary = []string{
	"TACO", "CAKE", "TOFU", "PEAR", "BEAN", "RICE", "MEAT", "FISH", "SOUP", "KALE",
	"CORN", "OKRA", "MINT", "LIME", "SALT", "DILL", "SAGE", "BEER", "WINE", "MILK",
	"EGGS", "PORK", "BEEF", "LAMB", "VEAL", "DUCK", "GOAT", "CRAB", "CLAM", "TUNA",
	"SOLE", "BASS", "KIWI", "PLUM", "DATE", "GOJI", "CHIA", "HEMP", "FLAX", "OATS",
	"BRAN", "SODA", "TEAS", "PEAS", "LEEK", "BEET", "PATE", "BAKE", "STEW", "BOIL",
}

// ErrNotFound is returned by Resolve when no active code matches. Expired
// codes are indistinguishable from codes that never existed.
var ErrNotFound = errors.New("share code not found")

// Store is the persistence surface the generator needs. Satisfied by
// storage.Store.
type Store interface {
	GetActiveShareCodeForReceipt(ctx context.Context, receiptID string, now int64) (*models.ShareCode, error)
	GetActiveShareCode(ctx context.Context, code string, now int64) (*models.ShareCode, error)
	CreateShareCode(ctx context.Context, sc *models.ShareCode) error
}

// Generator issues and resolves share codes against a backing store.
//
// GetOrCreate is check-then-act against shared storage, so two concurrent
// calls for the same receipt can each insert a code. Both remain valid and
// resolve correctly; this is an accepted non-invariant, not worth a
// transactional lock.
type Generator struct {
	store Store
	ttl   time.Duration

	// intN draws a random index; overridable in tests for determinism.
	intN func(n int) int
}

// NewGenerator creates a Generator with the given code lifetime. A ttl of 0
// falls back to DefaultTTL.
func NewGenerator(store Store, ttl time.Duration) *Generator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Generator{
		store: store,
		ttl:   ttl,
		intN:  rand.IntN,
	}
}

// GetOrCreate returns the receipt's active code, drawing and persisting a new
// one if none exists. Idempotent while active: callers sharing the same
// receipt within the window always see the same code.
func (g *Generator) GetOrCreate(ctx context.Context, receiptID string, now time.Time) (string, error) {
	nowUnix := now.Unix()

	existing, err := g.store.GetActiveShareCodeForReceipt(ctx, receiptID, nowUnix)
	if err == nil {
		metrics.ShareCodesIssued.WithLabelValues("reused").Inc()
		return existing.Code, nil
	}
	if !errors.Is(err, storage.ErrShareCodeNotFound) {
		return "", fmt.Errorf("failed to look up existing code: %w", err)
	}

	code := vocabulary[g.intN(len(vocabulary))]
	collided := false
	for attempt := 0; attempt < maxAttempts; attempt++ {
		_, err := g.store.GetActiveShareCode(ctx, code, nowUnix)
		if errors.Is(err, storage.ErrShareCodeNotFound) {
			collided = false
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to check code collision: %w", err)
		}
		collided = true
		metrics.ShareCodeCollisions.Inc()
		code = vocabulary[g.intN(len(vocabulary))]
	}
	if collided {
		// Retry budget spent; keep the last draw anyway.
		metrics.ShareCodeCollisionAccepts.Inc()
		slog.Warn("Accepting share code that may collide with an active one",
			"code", code, "receipt_id", receiptID)
	}

	sc := &models.ShareCode{
		Code:      code,
		ReceiptID: receiptID,
		ExpiresAt: now.Add(g.ttl).Unix(),
	}
	if err := g.store.CreateShareCode(ctx, sc); err != nil {
		return "", fmt.Errorf("failed to persist share code: %w", err)
	}

	metrics.ShareCodesIssued.WithLabelValues("new").Inc()
	return code, nil
}

// Resolve returns the receipt id for an active code, or ErrNotFound. Input is
// case-normalized before lookup.
func (g *Generator) Resolve(ctx context.Context, code string, now time.Time) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	sc, err := g.store.GetActiveShareCode(ctx, normalized, now.Unix())
	if errors.Is(err, storage.ErrShareCodeNotFound) {
		metrics.ShareCodeResolves.WithLabelValues("miss").Inc()
		return "", fmt.Errorf("%w: %s", ErrNotFound, normalized)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve code: %w", err)
	}

	metrics.ShareCodeResolves.WithLabelValues("hit").Inc()
	return sc.ReceiptID, nil
}
