package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS receipts (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    merchant_name TEXT NOT NULL DEFAULT '',
    merchant_type TEXT NOT NULL DEFAULT '',
    date TEXT NOT NULL DEFAULT '',
    currency TEXT NOT NULL DEFAULT 'USD',
    total_cents INTEGER NOT NULL DEFAULT 0,
    tax_cents INTEGER NOT NULL DEFAULT 0,
    tip_cents INTEGER NOT NULL DEFAULT 0,
    tip_confirmed INTEGER NOT NULL DEFAULT 0,
    host_user_id TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
    receipt_id TEXT NOT NULL,
    id TEXT NOT NULL,
    display_name TEXT NOT NULL,
    is_host INTEGER NOT NULL DEFAULT 0,
    is_guest INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (receipt_id, id),
    FOREIGN KEY (receipt_id) REFERENCES receipts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS receipt_items (
    id TEXT PRIMARY KEY,
    receipt_id TEXT NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,
    name TEXT NOT NULL,
    quantity INTEGER NOT NULL DEFAULT 1,
    price_cents INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (receipt_id) REFERENCES receipts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS item_modifiers (
    item_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    price_cents INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (item_id, position),
    FOREIGN KEY (item_id) REFERENCES receipt_items(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS item_claims (
    item_id TEXT NOT NULL,
    participant_id TEXT NOT NULL,
    PRIMARY KEY (item_id, participant_id),
    FOREIGN KEY (item_id) REFERENCES receipt_items(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS share_codes (
    code TEXT NOT NULL,
    receipt_id TEXT NOT NULL,
    expires_at INTEGER NOT NULL,
    FOREIGN KEY (receipt_id) REFERENCES receipts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_participants_receipt_id ON participants(receipt_id);
CREATE INDEX IF NOT EXISTS idx_receipt_items_receipt_id ON receipt_items(receipt_id);
CREATE INDEX IF NOT EXISTS idx_item_modifiers_item_id ON item_modifiers(item_id);
CREATE INDEX IF NOT EXISTS idx_item_claims_item_id ON item_claims(item_id);
CREATE INDEX IF NOT EXISTS idx_share_codes_code ON share_codes(code);
CREATE INDEX IF NOT EXISTS idx_share_codes_receipt_id ON share_codes(receipt_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
