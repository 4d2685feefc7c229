package store

import (
	"database/sql"
	"fmt"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// JournalStore resolves the journal owned by a chart root.
type JournalStore struct {
	session *Session
}

// NewJournalStore creates a JournalStore over a session.
func NewJournalStore(session *Session) *JournalStore {
	return &JournalStore{session: session}
}

// JournalForChart returns the journal whose chart is the given root
// account.
func (s *JournalStore) JournalForChart(chart *ledger.Account) (*ledger.Journal, error) {
	j := &ledger.Journal{Chart: chart}
	err := s.session.q().QueryRow(
		`SELECT id, name FROM journal WHERE chart = ?`, chart.ID,
	).Scan(&j.ID, &j.Name)
	if err == sql.ErrNoRows {
		return nil, ledger.NewNotFound("journal", chart.Code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load journal for chart %s: %w", chart.Code, err)
	}
	return j, nil
}
