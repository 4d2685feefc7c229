package engine

import (
	"github.com/greenkode/miniledger/pkg/ledger"
)

// JournalLookup resolves the journal owned by a chart root.
type JournalLookup interface {
	JournalForChart(chart *ledger.Account) (*ledger.Journal, error)
}

// TransactionStore is the persistence contract the lifecycle consumes.
// Find methods return (nil, nil) when nothing matches; lifecycle code
// turns that into a not-found failure where appropriate.
type TransactionStore interface {
	// Post durably persists a balanced transaction.
	Post(tx *ledger.Transaction) error

	// FindByReference resolves a transaction by its detail reference.
	FindByReference(ref string) (*ledger.Transaction, error)

	// FindGroup resolves a transaction group by reference.
	FindGroup(ref string) (*ledger.TransactionGroup, error)

	// Reverse posts the counter transaction under reversalRef and
	// marks the original reversed. Returns the counter reference.
	Reverse(tx *ledger.Transaction, reversalRef string) (string, error)

	// Complete posts the completion transaction, groups it with the
	// original under the original's reference and marks the original
	// completed.
	Complete(original, completion *ledger.Transaction) error
}

// SnapshotStore maintains the materialized latest-balance-per-account
// view.
type SnapshotStore interface {
	// UpdateSnapshotsAfterTransaction refreshes the balances of every
	// account the transaction touches.
	UpdateSnapshotsAfterTransaction(tx *ledger.Transaction) error
}

// Atomic runs a function inside a single atomic transactional
// boundary: either everything the function persists is committed, or
// nothing is.
type Atomic interface {
	Atomically(fn func() error) error
}

// noopAtomic runs the function directly. Used when the backing store
// provides no transactional boundary of its own (tests, in-memory).
type noopAtomic struct{}

func (noopAtomic) Atomically(fn func() error) error { return fn() }
