// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/tabsplit/tabsplit/internal/models"
	"github.com/tabsplit/tabsplit/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateReceipt persists a new receipt with its participants and items.
func (s *SQLiteStore) CreateReceipt(ctx context.Context, receipt *models.Receipt, items []models.ReceiptItem) error {
	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	if receipt.CreatedAt == 0 {
		receipt.CreatedAt = time.Now().Unix()
	}
	if receipt.Currency == "" {
		receipt.Currency = models.DefaultCurrency
	}
	if receipt.Status == "" {
		receipt.Status = models.StatusDraft
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO receipts (id, status, merchant_name, merchant_type, date, currency,
		    total_cents, tax_cents, tip_cents, tip_confirmed, host_user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		receipt.ID, receipt.Status, receipt.MerchantName, receipt.MerchantType,
		receipt.Date, receipt.Currency, receipt.TotalCents, receipt.TaxCents,
		receipt.TipCents, receipt.TipConfirmed, receipt.HostUserID, receipt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}

	for i := range receipt.Participants {
		p := &receipt.Participants[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if err := insertParticipant(ctx, tx, receipt.ID, *p); err != nil {
			return err
		}
	}

	if err := insertItems(ctx, tx, receipt.ID, items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetReceipt retrieves a receipt with its participants.
func (s *SQLiteStore) GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error) {
	receipt := &models.Receipt{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, merchant_name, merchant_type, date, currency,
		    total_cents, tax_cents, tip_cents, tip_confirmed, host_user_id, created_at
		 FROM receipts WHERE id = ?`,
		receiptID,
	).Scan(&receipt.ID, &receipt.Status, &receipt.MerchantName, &receipt.MerchantType,
		&receipt.Date, &receipt.Currency, &receipt.TotalCents, &receipt.TaxCents,
		&receipt.TipCents, &receipt.TipConfirmed, &receipt.HostUserID, &receipt.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", storage.ErrReceiptNotFound, receiptID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_name, is_host, is_guest FROM participants
		 WHERE receipt_id = ? ORDER BY is_host DESC, display_name`,
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.IsHost, &p.IsGuest); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		receipt.Participants = append(receipt.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return receipt, nil
}

// ReplaceParsedData patches the receipt's parsed fields and swaps out its
// items in one transaction. Claims on the old items are dropped with them.
func (s *SQLiteStore) ReplaceParsedData(ctx context.Context, receipt *models.Receipt, items []models.ReceiptItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE receipts SET status = ?, merchant_name = ?, merchant_type = ?, date = ?,
		    currency = ?, total_cents = ?, tax_cents = ?, tip_cents = ?, tip_confirmed = ?
		 WHERE id = ?`,
		receipt.Status, receipt.MerchantName, receipt.MerchantType, receipt.Date,
		receipt.Currency, receipt.TotalCents, receipt.TaxCents, receipt.TipCents,
		receipt.TipConfirmed, receipt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update receipt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrReceiptNotFound, receipt.ID)
	}

	// Cascades to modifiers and claims.
	if _, err := tx.ExecContext(ctx, "DELETE FROM receipt_items WHERE receipt_id = ?", receipt.ID); err != nil {
		return fmt.Errorf("failed to delete old items: %w", err)
	}

	if err := insertItems(ctx, tx, receipt.ID, items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetReceiptStatus updates only the lifecycle status.
func (s *SQLiteStore) SetReceiptStatus(ctx context.Context, receiptID string, status models.ReceiptStatus) error {
	res, err := s.db.ExecContext(ctx, "UPDATE receipts SET status = ? WHERE id = ?", status, receiptID)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrReceiptNotFound, receiptID)
	}
	return nil
}

// SetTip updates the tip amount and its confirmation flag.
func (s *SQLiteStore) SetTip(ctx context.Context, receiptID string, tipCents int64, confirmed bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE receipts SET tip_cents = ?, tip_confirmed = ? WHERE id = ?",
		tipCents, confirmed, receiptID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tip: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrReceiptNotFound, receiptID)
	}
	return nil
}

// DeleteReceipt removes the receipt; items, claims, participants, and share
// codes cascade.
func (s *SQLiteStore) DeleteReceipt(ctx context.Context, receiptID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM receipts WHERE id = ?", receiptID)
	if err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrReceiptNotFound, receiptID)
	}
	return nil
}

// AddParticipant attaches a participant to a receipt. Re-adding is a no-op.
func (s *SQLiteStore) AddParticipant(ctx context.Context, receiptID string, p models.Participant) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (receipt_id, id, display_name, is_host, is_guest)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (receipt_id, id) DO NOTHING`,
		receiptID, p.ID, p.DisplayName, p.IsHost, p.IsGuest,
	)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

func insertParticipant(ctx context.Context, tx *sql.Tx, receiptID string, p models.Participant) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO participants (receipt_id, id, display_name, is_host, is_guest)
		 VALUES (?, ?, ?, ?, ?)`,
		receiptID, p.ID, p.DisplayName, p.IsHost, p.IsGuest,
	)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}
