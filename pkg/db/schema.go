// Package db provides SQLite database management for the ledger.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Currency table
-- The numeric id doubles as the currency's base layer.
CREATE TABLE IF NOT EXISTS currency (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

-- Account table
-- Composite accounts (final = 0) aggregate children; final accounts
-- are postable and carry a currency.
CREATE TABLE IF NOT EXISTS acct (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '',
    type INTEGER NOT NULL DEFAULT 0,   -- 0 undefined, 1 debit, 2 credit
    currency TEXT,
    final INTEGER NOT NULL DEFAULT 0,
    parent INTEGER REFERENCES acct(id),
    root INTEGER REFERENCES acct(id)
);

CREATE INDEX IF NOT EXISTS idx_acct_root ON acct(root);

-- Journal table: one journal per chart root.
CREATE TABLE IF NOT EXISTS journal (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    chart INTEGER NOT NULL REFERENCES acct(id)
);

-- Transaction table
-- detail holds the external reference; tags the flattened state and
-- metadata encoding.
CREATE TABLE IF NOT EXISTS transacc (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    detail TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '',
    timestamp TIMESTAMP NOT NULL,
    postdate TIMESTAMP NOT NULL,
    journal INTEGER NOT NULL REFERENCES journal(id)
);

CREATE INDEX IF NOT EXISTS idx_transacc_detail ON transacc(detail);

-- Entry table
-- Amounts are stored as exact decimal strings.
CREATE TABLE IF NOT EXISTS entry (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    transacc INTEGER NOT NULL REFERENCES transacc(id),
    posn INTEGER NOT NULL,
    acct INTEGER NOT NULL REFERENCES acct(id),
    amount TEXT NOT NULL,
    credit INTEGER NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '',
    layer INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_entry_transacc ON entry(transacc);
CREATE INDEX IF NOT EXISTS idx_entry_acct_layer ON entry(acct, layer);

-- Transaction groups: multi-leg transfers reversed atomically, and
-- (original, completion) pairs.
CREATE TABLE IF NOT EXISTS txngroup (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS txngroup_member (
    grp INTEGER NOT NULL REFERENCES txngroup(id),
    transacc INTEGER NOT NULL REFERENCES transacc(id),
    UNIQUE(grp, transacc)
);

-- Materialized latest balance per account and layer.
CREATE TABLE IF NOT EXISTS balance_snapshot (
    acct INTEGER NOT NULL REFERENCES acct(id),
    layer INTEGER NOT NULL,
    balance TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(acct, layer)
);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
