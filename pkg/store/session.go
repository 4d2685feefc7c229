// Package store implements the engine's persistence contracts on
// SQLite: accounts, currencies, journals, transactions, groups and
// balance snapshots.
package store

import (
	"database/sql"
	"sync"

	"github.com/greenkode/miniledger/pkg/db"
)

// querier is satisfied by both *db.Connection and *sql.Tx so store
// methods run unchanged inside and outside an atomic block.
type querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Session shares one database connection and at most one open SQL
// transaction between the ledger stores. Atomically provides the
// lifecycle's atomic transactional boundary: every store call made
// inside the function joins the same SQL transaction, and concurrent
// atomic blocks are serialized.
type Session struct {
	conn *db.Connection

	mu sync.Mutex
	tx *sql.Tx
}

// NewSession creates a Session over an open connection.
func NewSession(conn *db.Connection) *Session {
	return &Session{conn: conn}
}

// q returns the active transaction when inside an atomic block, the
// plain connection otherwise.
func (s *Session) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.conn
}

// Atomically runs fn inside a single SQL transaction. Either every
// write fn performs is committed, or none are.
func (s *Session) Atomically(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.Transaction(func(tx *sql.Tx) error {
		s.tx = tx
		defer func() { s.tx = nil }()
		return fn()
	})
}
