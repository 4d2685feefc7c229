package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// SpecExecutor materializes entry specs onto a transaction. A batch of
// specs whose aggregate layer balances are violated is rejected before
// anything is attached; the executor never adjusts amounts.
type SpecExecutor struct{}

// NewSpecExecutor creates a SpecExecutor.
func NewSpecExecutor() *SpecExecutor {
	return &SpecExecutor{}
}

// Execute verifies and attaches the specs as entries on the
// transaction.
func (x *SpecExecutor) Execute(tx *ledger.Transaction, specs []EntrySpec) error {
	if err := x.verify(tx.Detail, specs); err != nil {
		return err
	}
	for _, s := range specs {
		e := tx.CreateEntry(s.Account, s.Amount, s.Detail, s.Credit, s.Layer)
		e.Completion = s.Completion
	}
	return nil
}

// verify checks that every spec targets a final account and that the
// batch balances per layer on its own.
func (x *SpecExecutor) verify(detail string, specs []EntrySpec) error {
	debits := make(map[ledger.Layer]decimal.Decimal)
	credits := make(map[ledger.Layer]decimal.Decimal)
	zero := decimal.Zero

	for _, s := range specs {
		if s.Account == nil {
			return fmt.Errorf("entry spec without account (detail %q)", s.Detail)
		}
		if !s.Account.IsFinal() {
			return ledger.NewValidation("account %s is not postable", s.Account.Code)
		}
		if s.Credit {
			credits[s.Layer] = credits[s.Layer].Add(s.Amount)
		} else {
			debits[s.Layer] = debits[s.Layer].Add(s.Amount)
		}
	}

	for layer, d := range debits {
		c, ok := credits[layer]
		if !ok {
			c = zero
		}
		if !d.Equal(c) {
			return &ledger.BalanceError{Detail: detail, Layer: layer, Debits: d.String(), Credits: c.String()}
		}
	}
	for layer, c := range credits {
		if _, ok := debits[layer]; !ok && !c.Equal(zero) {
			return &ledger.BalanceError{Detail: detail, Layer: layer, Debits: zero.String(), Credits: c.String()}
		}
	}
	return nil
}
