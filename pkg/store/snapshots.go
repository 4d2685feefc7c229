package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// SnapshotStore maintains the materialized latest balance per
// (account, layer). Snapshots are a derived cache over the entry
// table: a refresh recomputes from entries, so a lost update is
// repaired by the next refresh.
type SnapshotStore struct {
	session *Session
}

// NewSnapshotStore creates a SnapshotStore over a session.
func NewSnapshotStore(session *Session) *SnapshotStore {
	return &SnapshotStore{session: session}
}

// UpdateSnapshotsAfterTransaction refreshes the snapshot of every
// (account, layer) pair the transaction touches. Transient failures
// are retried with exponential backoff.
func (s *SnapshotStore) UpdateSnapshotsAfterTransaction(tx *ledger.Transaction) error {
	type pair struct {
		acct  int64
		layer ledger.Layer
	}
	seen := map[pair]struct{}{}
	for _, e := range tx.Entries {
		p := pair{acct: e.Account.ID, layer: e.Layer}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		acct := e.Account
		op := func() error {
			return s.refresh(acct, e.Layer)
		}
		if err := backoff.Retry(op, snapshotBackoff()); err != nil {
			return fmt.Errorf("failed to refresh snapshot for %s layer %d: %w", acct.Code, e.Layer, err)
		}
	}
	return nil
}

// RebuildAccount recomputes snapshots for every layer an account has
// entries on.
func (s *SnapshotStore) RebuildAccount(acct *ledger.Account) error {
	rows, err := s.session.q().Query(
		`SELECT DISTINCT layer FROM entry WHERE acct = ?`, acct.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to rebuild snapshots for %s: %w", acct.Code, err)
	}
	var layers []ledger.Layer
	for rows.Next() {
		var l int
		if err := rows.Scan(&l); err != nil {
			rows.Close()
			return fmt.Errorf("failed to rebuild snapshots for %s: %w", acct.Code, err)
		}
		layers = append(layers, ledger.Layer(l))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to rebuild snapshots for %s: %w", acct.Code, err)
	}
	rows.Close()

	for _, l := range layers {
		if err := s.refresh(acct, l); err != nil {
			return err
		}
	}
	return nil
}

// Balance returns the latest snapshot balance for an account on a
// layer. Accounts with no entries on the layer balance to zero.
func (s *SnapshotStore) Balance(acct *ledger.Account, layer ledger.Layer) (decimal.Decimal, error) {
	var stored string
	err := s.session.q().QueryRow(
		`SELECT balance FROM balance_snapshot WHERE acct = ? AND layer = ?`,
		acct.ID, int(layer),
	).Scan(&stored)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read snapshot for %s layer %d: %w", acct.Code, layer, err)
	}
	balance, err := decimal.NewFromString(stored)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse snapshot for %s layer %d: %w", acct.Code, layer, err)
	}
	return balance, nil
}

// Balances returns every snapshotted (layer, balance) pair for an
// account, ordered by layer.
func (s *SnapshotStore) Balances(acct *ledger.Account) (map[ledger.Layer]decimal.Decimal, error) {
	rows, err := s.session.q().Query(
		`SELECT layer, balance FROM balance_snapshot WHERE acct = ? ORDER BY layer`, acct.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots for %s: %w", acct.Code, err)
	}
	defer rows.Close()

	out := map[ledger.Layer]decimal.Decimal{}
	for rows.Next() {
		var (
			layer  int
			stored string
		)
		if err := rows.Scan(&layer, &stored); err != nil {
			return nil, fmt.Errorf("failed to read snapshots for %s: %w", acct.Code, err)
		}
		balance, err := decimal.NewFromString(stored)
		if err != nil {
			return nil, fmt.Errorf("failed to parse snapshot for %s layer %d: %w", acct.Code, layer, err)
		}
		out[ledger.Layer(layer)] = balance
	}
	return out, rows.Err()
}

// refresh recomputes the natural balance of (acct, layer) from the
// entry table and upserts the snapshot row. Natural balance means
// debits minus credits on debit accounts and credits minus debits on
// credit accounts.
func (s *SnapshotStore) refresh(acct *ledger.Account, layer ledger.Layer) error {
	rows, err := s.session.q().Query(
		`SELECT amount, credit FROM entry WHERE acct = ? AND layer = ?`,
		acct.ID, int(layer),
	)
	if err != nil {
		return fmt.Errorf("failed to recompute balance for %s layer %d: %w", acct.Code, layer, err)
	}

	balance := decimal.Zero
	for rows.Next() {
		var (
			stored string
			credit int
		)
		if err := rows.Scan(&stored, &credit); err != nil {
			rows.Close()
			return fmt.Errorf("failed to recompute balance for %s layer %d: %w", acct.Code, layer, err)
		}
		amount, err := decimal.NewFromString(stored)
		if err != nil {
			rows.Close()
			return fmt.Errorf("failed to parse entry amount for %s layer %d: %w", acct.Code, layer, err)
		}
		increase := (credit == 0 && acct.IsDebit()) || (credit == 1 && acct.IsCredit())
		if increase {
			balance = balance.Add(amount)
		} else {
			balance = balance.Sub(amount)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to recompute balance for %s layer %d: %w", acct.Code, layer, err)
	}
	rows.Close()

	_, err = s.session.q().Exec(
		`INSERT INTO balance_snapshot (acct, layer, balance, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(acct, layer) DO UPDATE SET
		   balance = excluded.balance,
		   updated_at = CURRENT_TIMESTAMP`,
		acct.ID, int(layer), balance.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to write snapshot for %s layer %d: %w", acct.Code, layer, err)
	}
	return nil
}

func snapshotBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return backoff.WithMaxRetries(b, 3)
}
