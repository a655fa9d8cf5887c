package sharecode

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tabsplit/tabsplit/internal/models"
	"github.com/tabsplit/tabsplit/internal/storage"
)

// fakeStore is an in-memory Store for exercising the generator without a
// database.
type fakeStore struct {
	codes []models.ShareCode

	lookupsByReceipt int
	lookupsByCode    int
}

func (f *fakeStore) GetActiveShareCodeForReceipt(_ context.Context, receiptID string, now int64) (*models.ShareCode, error) {
	f.lookupsByReceipt++
	for i := range f.codes {
		sc := &f.codes[i]
		if sc.ReceiptID == receiptID && sc.ActiveAt(now) {
			return sc, nil
		}
	}
	return nil, fmt.Errorf("%w: receipt %s", storage.ErrShareCodeNotFound, receiptID)
}

func (f *fakeStore) GetActiveShareCode(_ context.Context, code string, now int64) (*models.ShareCode, error) {
	f.lookupsByCode++
	for i := range f.codes {
		sc := &f.codes[i]
		if sc.Code == code && sc.ActiveAt(now) {
			return sc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", storage.ErrShareCodeNotFound, code)
}

func (f *fakeStore) CreateShareCode(_ context.Context, sc *models.ShareCode) error {
	f.codes = append(f.codes, *sc)
	return nil
}

// sequencedIntN returns the given draws in order, then zeros.
func sequencedIntN(draws ...int) func(int) int {
	i := 0
	return func(n int) int {
		if i >= len(draws) {
			return 0
		}
		d := draws[i]
		i++
		return d % n
	}
}

func TestGetOrCreateRoundTrip(t *testing.T) {
	store := &fakeStore{}
	gen := NewGenerator(store, DefaultTTL)
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	code, err := gen.GetOrCreate(ctx, "receipt-1", t0)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if len(code) != 4 {
		t.Errorf("code %q is not a 4-letter word", code)
	}

	// Resolves just before expiry.
	receiptID, err := gen.Resolve(ctx, code, t0.Add(time.Second))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if receiptID != "receipt-1" {
		t.Errorf("Resolve = %s, want receipt-1", receiptID)
	}
}

func TestGetOrCreateIsIdempotentWhileActive(t *testing.T) {
	store := &fakeStore{}
	gen := NewGenerator(store, DefaultTTL)
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	first, err := gen.GetOrCreate(ctx, "receipt-1", t0)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	second, err := gen.GetOrCreate(ctx, "receipt-1", t0.Add(time.Second))
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if first != second {
		t.Errorf("codes differ within the active window: %s vs %s", first, second)
	}
	if len(store.codes) != 1 {
		t.Errorf("expected 1 persisted code, got %d", len(store.codes))
	}
}

func TestGetOrCreateAfterExpiryDrawsFresh(t *testing.T) {
	store := &fakeStore{}
	gen := NewGenerator(store, DefaultTTL)
	// Force distinct draws so the fresh code is observably different.
	gen.intN = sequencedIntN(3, 7)
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	first, err := gen.GetOrCreate(ctx, "receipt-1", t0)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	after := t0.Add(DefaultTTL + time.Second)
	second, err := gen.GetOrCreate(ctx, "receipt-1", after)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if first == second {
		t.Errorf("expected a fresh code after expiry, got %s twice", first)
	}
	if len(store.codes) != 2 {
		t.Errorf("expected 2 persisted codes, got %d", len(store.codes))
	}
}

func TestResolveExpiredBehavesLikeMissing(t *testing.T) {
	store := &fakeStore{}
	gen := NewGenerator(store, DefaultTTL)
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	code, err := gen.GetOrCreate(ctx, "receipt-1", t0)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	_, err = gen.Resolve(ctx, code, t0.Add(DefaultTTL+time.Second))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired code, got %v", err)
	}
	_, err = gen.Resolve(ctx, "ZZZZ", t0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown code, got %v", err)
	}
}

func TestResolveNormalizesCase(t *testing.T) {
	store := &fakeStore{}
	gen := NewGenerator(store, DefaultTTL)
	gen.intN = sequencedIntN(0) // "TACO"
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	if _, err := gen.GetOrCreate(ctx, "receipt-1", t0); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	for _, input := range []string{"taco", "Taco", " TACO "} {
		receiptID, err := gen.Resolve(ctx, input, t0.Add(time.Second))
		if err != nil {
			t.Errorf("Resolve(%q) failed: %v", input, err)
			continue
		}
		if receiptID != "receipt-1" {
			t.Errorf("Resolve(%q) = %s, want receipt-1", input, receiptID)
		}
	}
}

func TestCollisionRedraw(t *testing.T) {
	store := &fakeStore{}
	gen := NewGenerator(store, DefaultTTL)
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	// Another receipt holds "TACO" (index 0); the generator must redraw.
	store.codes = append(store.codes, models.ShareCode{
		Code: "TACO", ReceiptID: "other", ExpiresAt: t0.Add(DefaultTTL).Unix(),
	})
	gen.intN = sequencedIntN(0, 1) // TACO collides, CAKE is free

	code, err := gen.GetOrCreate(ctx, "receipt-1", t0)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if code != "CAKE" {
		t.Errorf("expected redraw to CAKE, got %s", code)
	}
}

func TestCollisionExhaustionAcceptsLastDraw(t *testing.T) {
	store := &fakeStore{}
	gen := NewGenerator(store, DefaultTTL)
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	// Every word is held by other receipts: redraws can never find a free
	// code, but issuance must still terminate and succeed.
	for i, word := range vocabulary {
		store.codes = append(store.codes, models.ShareCode{
			Code: word, ReceiptID: fmt.Sprintf("other-%d", i), ExpiresAt: t0.Add(DefaultTTL).Unix(),
		})
	}
	before := store.lookupsByCode

	code, err := gen.GetOrCreate(ctx, "receipt-1", t0)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if code == "" {
		t.Fatal("expected a code despite exhausted retries")
	}
	if got := store.lookupsByCode - before; got != maxAttempts {
		t.Errorf("collision checks = %d, want %d (bounded retry)", got, maxAttempts)
	}

	// The accepted code still resolves, to the earlier holder: ambiguity is
	// tolerated, resolution stays deterministic.
	if _, err := gen.Resolve(ctx, code, t0.Add(time.Second)); err != nil {
		t.Errorf("Resolve failed: %v", err)
	}
}
