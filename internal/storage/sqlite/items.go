package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tabsplit/tabsplit/internal/models"
	"github.com/tabsplit/tabsplit/internal/storage"
)

// insertItems writes items with their modifiers inside an open transaction.
// Position preserves receipt order across reads.
func insertItems(ctx context.Context, tx *sql.Tx, receiptID string, items []models.ReceiptItem) error {
	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.ReceiptID = receiptID

		_, err := tx.ExecContext(ctx,
			`INSERT INTO receipt_items (id, receipt_id, position, name, quantity, price_cents)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			item.ID, receiptID, i, item.Name, item.Quantity, item.PriceCents,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}

		for j, mod := range item.Modifiers {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO item_modifiers (item_id, position, name, price_cents) VALUES (?, ?, ?, ?)",
				item.ID, j, mod.Name, mod.PriceCents,
			)
			if err != nil {
				return fmt.Errorf("failed to insert modifier: %w", err)
			}
		}

		for _, participantID := range item.ClaimedBy {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO item_claims (item_id, participant_id) VALUES (?, ?)",
				item.ID, participantID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert claim: %w", err)
			}
		}
	}
	return nil
}

// GetItems retrieves a receipt's items in receipt order, with modifiers and
// claims attached.
func (s *SQLiteStore) GetItems(ctx context.Context, receiptID string) ([]models.ReceiptItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, receipt_id, name, quantity, price_cents FROM receipt_items
		 WHERE receipt_id = ? ORDER BY position`,
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var items []models.ReceiptItem
	for rows.Next() {
		var item models.ReceiptItem
		if err := rows.Scan(&item.ID, &item.ReceiptID, &item.Name, &item.Quantity, &item.PriceCents); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	for i := range items {
		if err := s.attachItemDetails(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// GetItem retrieves a single item with modifiers and claims.
func (s *SQLiteStore) GetItem(ctx context.Context, itemID string) (*models.ReceiptItem, error) {
	item := &models.ReceiptItem{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, receipt_id, name, quantity, price_cents FROM receipt_items WHERE id = ?",
		itemID,
	).Scan(&item.ID, &item.ReceiptID, &item.Name, &item.Quantity, &item.PriceCents)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", storage.ErrItemNotFound, itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	if err := s.attachItemDetails(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *SQLiteStore) attachItemDetails(ctx context.Context, item *models.ReceiptItem) error {
	modRows, err := s.db.QueryContext(ctx,
		"SELECT name, price_cents FROM item_modifiers WHERE item_id = ? ORDER BY position",
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get modifiers: %w", err)
	}
	defer modRows.Close()

	for modRows.Next() {
		var mod models.Modifier
		if err := modRows.Scan(&mod.Name, &mod.PriceCents); err != nil {
			return fmt.Errorf("failed to scan modifier: %w", err)
		}
		item.Modifiers = append(item.Modifiers, mod)
	}
	if err := modRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate modifiers: %w", err)
	}

	claimRows, err := s.db.QueryContext(ctx,
		"SELECT participant_id FROM item_claims WHERE item_id = ? ORDER BY participant_id",
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get claims: %w", err)
	}
	defer claimRows.Close()

	for claimRows.Next() {
		var participantID string
		if err := claimRows.Scan(&participantID); err != nil {
			return fmt.Errorf("failed to scan claim: %w", err)
		}
		item.ClaimedBy = append(item.ClaimedBy, participantID)
	}
	if err := claimRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate claims: %w", err)
	}
	return nil
}

// AddClaim records a participant's claim on an item. Idempotent.
func (s *SQLiteStore) AddClaim(ctx context.Context, itemID, participantID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO item_claims (item_id, participant_id) VALUES (?, ?)
		 ON CONFLICT (item_id, participant_id) DO NOTHING`,
		itemID, participantID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert claim: %w", err)
	}
	return nil
}

// RemoveClaim withdraws a participant's claim on an item. Idempotent.
func (s *SQLiteStore) RemoveClaim(ctx context.Context, itemID, participantID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM item_claims WHERE item_id = ? AND participant_id = ?",
		itemID, participantID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete claim: %w", err)
	}
	return nil
}

// SetClaims replaces an item's claimant set wholesale.
func (s *SQLiteStore) SetClaims(ctx context.Context, itemID string, participantIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM item_claims WHERE item_id = ?", itemID); err != nil {
		return fmt.Errorf("failed to clear claims: %w", err)
	}
	for _, participantID := range participantIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO item_claims (item_id, participant_id) VALUES (?, ?)",
			itemID, participantID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert claim: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
