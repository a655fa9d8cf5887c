package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tabsplit/tabsplit/internal/models"
	"github.com/tabsplit/tabsplit/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tabsplit-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedReceipt(t *testing.T, store *SQLiteStore) (*models.Receipt, []models.ReceiptItem) {
	t.Helper()
	ctx := context.Background()

	receipt := &models.Receipt{
		Status:       models.StatusParsed,
		MerchantName: "Taqueria Azul",
		MerchantType: "restaurant",
		TotalCents:   1545,
		TaxCents:     125,
		HostUserID:   "host-1",
		Participants: []models.Participant{
			{ID: "host-1", DisplayName: "Alice", IsHost: true},
			{ID: "guest-1", DisplayName: "Bob", IsGuest: true},
		},
	}
	items := []models.ReceiptItem{
		{Name: "Burrito", Quantity: 1, PriceCents: 650, Modifiers: []models.Modifier{{Name: "Guac", PriceCents: 50}}},
		{Name: "Tacos", Quantity: 2, PriceCents: 720},
	}

	if err := store.CreateReceipt(ctx, receipt, items); err != nil {
		t.Fatalf("CreateReceipt failed: %v", err)
	}
	return receipt, items
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateReceipt generates IDs and defaults", func(t *testing.T) {
		receipt, items := seedReceipt(t, store)

		if receipt.ID == "" {
			t.Error("Expected receipt ID to be generated")
		}
		if receipt.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
		if receipt.Currency != "USD" {
			t.Errorf("Expected default currency USD, got %s", receipt.Currency)
		}
		for i, item := range items {
			if item.ID == "" {
				t.Errorf("Expected item %d ID to be generated", i)
			}
		}
	})

	t.Run("GetReceipt retrieves participants", func(t *testing.T) {
		original, _ := seedReceipt(t, store)

		retrieved, err := store.GetReceipt(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		if retrieved.MerchantName != "Taqueria Azul" {
			t.Errorf("MerchantName = %s, want Taqueria Azul", retrieved.MerchantName)
		}
		if retrieved.TaxCents != 125 {
			t.Errorf("TaxCents = %d, want 125", retrieved.TaxCents)
		}
		if len(retrieved.Participants) != 2 {
			t.Fatalf("Expected 2 participants, got %d", len(retrieved.Participants))
		}
		// Host sorts first.
		if !retrieved.Participants[0].IsHost {
			t.Error("Expected host participant first")
		}
	})

	t.Run("GetReceipt returns ErrReceiptNotFound", func(t *testing.T) {
		_, err := store.GetReceipt(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrReceiptNotFound) {
			t.Errorf("Expected ErrReceiptNotFound, got %v", err)
		}
	})

	t.Run("GetItems preserves order and modifiers", func(t *testing.T) {
		receipt, _ := seedReceipt(t, store)

		items, err := store.GetItems(ctx, receipt.ID)
		if err != nil {
			t.Fatalf("GetItems failed: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("Expected 2 items, got %d", len(items))
		}
		if items[0].Name != "Burrito" || items[1].Name != "Tacos" {
			t.Errorf("Items out of order: %s, %s", items[0].Name, items[1].Name)
		}
		if len(items[0].Modifiers) != 1 || items[0].Modifiers[0].PriceCents != 50 {
			t.Errorf("Modifiers not round-tripped: %+v", items[0].Modifiers)
		}
		if items[1].Quantity != 2 {
			t.Errorf("Quantity = %d, want 2", items[1].Quantity)
		}
	})

	t.Run("Claims add, remove, and set", func(t *testing.T) {
		receipt, _ := seedReceipt(t, store)
		items, _ := store.GetItems(ctx, receipt.ID)
		itemID := items[0].ID

		if err := store.AddClaim(ctx, itemID, "host-1"); err != nil {
			t.Fatalf("AddClaim failed: %v", err)
		}
		// Idempotent.
		if err := store.AddClaim(ctx, itemID, "host-1"); err != nil {
			t.Fatalf("Repeat AddClaim failed: %v", err)
		}
		if err := store.AddClaim(ctx, itemID, "guest-1"); err != nil {
			t.Fatalf("AddClaim failed: %v", err)
		}

		item, err := store.GetItem(ctx, itemID)
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
		if len(item.ClaimedBy) != 2 {
			t.Errorf("Expected 2 claimants, got %d", len(item.ClaimedBy))
		}

		if err := store.RemoveClaim(ctx, itemID, "guest-1"); err != nil {
			t.Fatalf("RemoveClaim failed: %v", err)
		}
		// Removing a missing claim is a no-op.
		if err := store.RemoveClaim(ctx, itemID, "guest-1"); err != nil {
			t.Fatalf("Repeat RemoveClaim failed: %v", err)
		}

		if err := store.SetClaims(ctx, itemID, []string{"guest-1"}); err != nil {
			t.Fatalf("SetClaims failed: %v", err)
		}
		item, _ = store.GetItem(ctx, itemID)
		if len(item.ClaimedBy) != 1 || item.ClaimedBy[0] != "guest-1" {
			t.Errorf("SetClaims result = %v, want [guest-1]", item.ClaimedBy)
		}
	})

	t.Run("ReplaceParsedData swaps items and drops claims", func(t *testing.T) {
		receipt, _ := seedReceipt(t, store)
		oldItems, _ := store.GetItems(ctx, receipt.ID)
		store.AddClaim(ctx, oldItems[0].ID, "host-1")

		receipt.Status = models.StatusParsed
		receipt.MerchantName = "Taqueria Azul (reparsed)"
		receipt.TaxCents = 130
		newItems := []models.ReceiptItem{
			{Name: "Enchiladas", Quantity: 1, PriceCents: 1100},
		}
		if err := store.ReplaceParsedData(ctx, receipt, newItems); err != nil {
			t.Fatalf("ReplaceParsedData failed: %v", err)
		}

		items, err := store.GetItems(ctx, receipt.ID)
		if err != nil {
			t.Fatalf("GetItems failed: %v", err)
		}
		if len(items) != 1 || items[0].Name != "Enchiladas" {
			t.Errorf("Items not replaced: %+v", items)
		}
		if len(items[0].ClaimedBy) != 0 {
			t.Errorf("Claims should not survive a re-parse: %v", items[0].ClaimedBy)
		}

		retrieved, _ := store.GetReceipt(ctx, receipt.ID)
		if retrieved.ID != receipt.ID {
			t.Error("Receipt id must survive a re-parse")
		}
		if retrieved.TaxCents != 130 {
			t.Errorf("TaxCents = %d, want 130", retrieved.TaxCents)
		}

		// Old items are gone entirely.
		if _, err := store.GetItem(ctx, oldItems[0].ID); !errors.Is(err, storage.ErrItemNotFound) {
			t.Errorf("Expected ErrItemNotFound for replaced item, got %v", err)
		}
	})

	t.Run("SetTip and SetReceiptStatus", func(t *testing.T) {
		receipt, _ := seedReceipt(t, store)

		if err := store.SetTip(ctx, receipt.ID, 300, true); err != nil {
			t.Fatalf("SetTip failed: %v", err)
		}
		if err := store.SetReceiptStatus(ctx, receipt.ID, models.StatusParsing); err != nil {
			t.Fatalf("SetReceiptStatus failed: %v", err)
		}

		retrieved, _ := store.GetReceipt(ctx, receipt.ID)
		if retrieved.TipCents != 300 || !retrieved.TipConfirmed {
			t.Errorf("Tip not updated: cents=%d confirmed=%v", retrieved.TipCents, retrieved.TipConfirmed)
		}
		if retrieved.Status != models.StatusParsing {
			t.Errorf("Status = %s, want parsing", retrieved.Status)
		}

		if err := store.SetTip(ctx, "nonexistent", 100, false); !errors.Is(err, storage.ErrReceiptNotFound) {
			t.Errorf("Expected ErrReceiptNotFound, got %v", err)
		}
	})

	t.Run("AddParticipant is idempotent", func(t *testing.T) {
		receipt, _ := seedReceipt(t, store)

		p := models.Participant{ID: "guest-2", DisplayName: "Carol", IsGuest: true}
		if err := store.AddParticipant(ctx, receipt.ID, p); err != nil {
			t.Fatalf("AddParticipant failed: %v", err)
		}
		if err := store.AddParticipant(ctx, receipt.ID, p); err != nil {
			t.Fatalf("Repeat AddParticipant failed: %v", err)
		}

		retrieved, _ := store.GetReceipt(ctx, receipt.ID)
		if len(retrieved.Participants) != 3 {
			t.Errorf("Expected 3 participants, got %d", len(retrieved.Participants))
		}
	})

	t.Run("DeleteReceipt cascades", func(t *testing.T) {
		receipt, _ := seedReceipt(t, store)
		items, _ := store.GetItems(ctx, receipt.ID)

		if err := store.DeleteReceipt(ctx, receipt.ID); err != nil {
			t.Fatalf("DeleteReceipt failed: %v", err)
		}
		if _, err := store.GetReceipt(ctx, receipt.ID); !errors.Is(err, storage.ErrReceiptNotFound) {
			t.Errorf("Expected ErrReceiptNotFound, got %v", err)
		}
		if _, err := store.GetItem(ctx, items[0].ID); !errors.Is(err, storage.ErrItemNotFound) {
			t.Errorf("Expected ErrItemNotFound after cascade, got %v", err)
		}
	})
}

func TestShareCodeStorage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := int64(1_700_000_000)

	receipt, _ := seedReceipt(t, store)

	t.Run("active code round trip", func(t *testing.T) {
		sc := &models.ShareCode{Code: "TACO", ReceiptID: receipt.ID, ExpiresAt: now + 1800}
		if err := store.CreateShareCode(ctx, sc); err != nil {
			t.Fatalf("CreateShareCode failed: %v", err)
		}

		byCode, err := store.GetActiveShareCode(ctx, "TACO", now)
		if err != nil {
			t.Fatalf("GetActiveShareCode failed: %v", err)
		}
		if byCode.ReceiptID != receipt.ID {
			t.Errorf("ReceiptID = %s, want %s", byCode.ReceiptID, receipt.ID)
		}

		byReceipt, err := store.GetActiveShareCodeForReceipt(ctx, receipt.ID, now)
		if err != nil {
			t.Fatalf("GetActiveShareCodeForReceipt failed: %v", err)
		}
		if byReceipt.Code != "TACO" {
			t.Errorf("Code = %s, want TACO", byReceipt.Code)
		}
	})

	t.Run("expired code behaves like a missing one", func(t *testing.T) {
		sc := &models.ShareCode{Code: "KALE", ReceiptID: receipt.ID, ExpiresAt: now - 1}
		if err := store.CreateShareCode(ctx, sc); err != nil {
			t.Fatalf("CreateShareCode failed: %v", err)
		}

		_, err := store.GetActiveShareCode(ctx, "KALE", now)
		if !errors.Is(err, storage.ErrShareCodeNotFound) {
			t.Errorf("Expected ErrShareCodeNotFound for expired code, got %v", err)
		}
		_, err = store.GetActiveShareCode(ctx, "NOPE", now)
		if !errors.Is(err, storage.ErrShareCodeNotFound) {
			t.Errorf("Expected ErrShareCodeNotFound for unknown code, got %v", err)
		}
	})

	t.Run("sweep deletes only expired rows", func(t *testing.T) {
		deleted, err := store.DeleteExpiredShareCodes(ctx, now)
		if err != nil {
			t.Fatalf("DeleteExpiredShareCodes failed: %v", err)
		}
		if deleted != 1 {
			t.Errorf("deleted = %d, want 1", deleted)
		}

		// Active code survives the sweep.
		if _, err := store.GetActiveShareCode(ctx, "TACO", now); err != nil {
			t.Errorf("Active code should survive sweep: %v", err)
		}
	})
}
