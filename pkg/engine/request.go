// Package engine implements the layered double-entry transaction
// engine: context building, bridge resolution, entry strategies, spec
// execution and the create/reverse/complete lifecycle.
package engine

import (
	"github.com/shopspring/decimal"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// EntryRequest names one logical transfer leg: debit account, credit
// account and an amount in a single currency.
type EntryRequest struct {
	DebitAccount  string
	CreditAccount string
	Amount        decimal.Decimal
	Currency      string
	Detail        string
	Kind          ledger.EntryKind
	SkipLimits    bool
}

// Limit bounds the debit amount of a single transaction.
type Limit struct {
	MinTransactionDebit decimal.Decimal
	MaxTransactionDebit decimal.Decimal
}

// CreateRequest is a transaction creation request. Reference is the
// external transaction reference; Metadata is flattened onto the
// transaction's tags.
type CreateRequest struct {
	Reference string
	Type      string
	Group     string
	Pending   bool
	Metadata  map[string]string
	Limit     *Limit
	Entries   []EntryRequest
}

// AccountCodes returns the union of account codes referenced by the
// request's entries.
func (r *CreateRequest) AccountCodes() []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, e := range r.Entries {
		for _, c := range []string{e.CreditAccount, e.DebitAccount} {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			codes = append(codes, c)
		}
	}
	return codes
}

// TransactionDetail is the result shape returned to lifecycle callers.
// Metadata always includes "account_ids" (comma-joined distinct account
// codes touched) and "transactions" (references involved); idempotent
// short-circuits add a "status" of already_reversed or
// already_completed.
type TransactionDetail struct {
	Reference string
	Metadata  map[string]string
}

// Idempotent status markers.
const (
	StatusAlreadyReversed  = "already_reversed"
	StatusAlreadyCompleted = "already_completed"
)
