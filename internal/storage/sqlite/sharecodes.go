package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tabsplit/tabsplit/internal/models"
	"github.com/tabsplit/tabsplit/internal/storage"
)

// GetActiveShareCodeForReceipt returns the receipt's unexpired code, if any.
// Expired rows are invisible here regardless of whether the sweep has
// removed them yet.
func (s *SQLiteStore) GetActiveShareCodeForReceipt(ctx context.Context, receiptID string, now int64) (*models.ShareCode, error) {
	sc := &models.ShareCode{}
	err := s.db.QueryRowContext(ctx,
		`SELECT code, receipt_id, expires_at FROM share_codes
		 WHERE receipt_id = ? AND expires_at > ?
		 ORDER BY expires_at DESC LIMIT 1`,
		receiptID, now,
	).Scan(&sc.Code, &sc.ReceiptID, &sc.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: receipt %s", storage.ErrShareCodeNotFound, receiptID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get share code: %w", err)
	}
	return sc, nil
}

// GetActiveShareCode returns the unexpired record matching code exactly.
func (s *SQLiteStore) GetActiveShareCode(ctx context.Context, code string, now int64) (*models.ShareCode, error) {
	sc := &models.ShareCode{}
	err := s.db.QueryRowContext(ctx,
		`SELECT code, receipt_id, expires_at FROM share_codes
		 WHERE code = ? AND expires_at > ?
		 ORDER BY expires_at DESC LIMIT 1`,
		code, now,
	).Scan(&sc.Code, &sc.ReceiptID, &sc.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", storage.ErrShareCodeNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get share code: %w", err)
	}
	return sc, nil
}

// CreateShareCode persists a new code record.
func (s *SQLiteStore) CreateShareCode(ctx context.Context, sc *models.ShareCode) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO share_codes (code, receipt_id, expires_at) VALUES (?, ?, ?)",
		sc.Code, sc.ReceiptID, sc.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert share code: %w", err)
	}
	return nil
}

// DeleteExpiredShareCodes removes expired rows and reports how many went.
func (s *SQLiteStore) DeleteExpiredShareCodes(ctx context.Context, now int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM share_codes WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired share codes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted share codes: %w", err)
	}
	return n, nil
}
