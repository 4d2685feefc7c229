package engine

import (
	"github.com/shopspring/decimal"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// EntrySpec is an intermediate, not-yet-persisted entry produced by a
// strategy. The executor converts specs into entries attached to a
// transaction, enforcing the per-layer balance law.
type EntrySpec struct {
	Account    *ledger.Account
	Amount     decimal.Decimal
	Credit     bool
	Layer      ledger.Layer
	Detail     string
	Completion *ledger.CompletionMark
}

// DebitSpec builds a debit spec.
func DebitSpec(acct *ledger.Account, amount decimal.Decimal, layer ledger.Layer, detail string) EntrySpec {
	return EntrySpec{Account: acct, Amount: amount, Layer: layer, Detail: detail}
}

// CreditSpec builds a credit spec.
func CreditSpec(acct *ledger.Account, amount decimal.Decimal, layer ledger.Layer, detail string) EntrySpec {
	return EntrySpec{Account: acct, Amount: amount, Credit: true, Layer: layer, Detail: detail}
}

// WithCompletion attaches a completion mark routing this entry's amount
// to a final account when the transaction completes.
func (s EntrySpec) WithCompletion(credit bool, account string, kind ledger.EntryKind) EntrySpec {
	s.Completion = &ledger.CompletionMark{Credit: credit, Account: account, Kind: kind}
	return s
}

// Payload carries everything a strategy needs to emit specs for one
// entry request.
type Payload struct {
	Transaction     *ledger.Transaction
	Entry           EntryRequest
	Currency        ledger.Currency
	DebitAccount    *ledger.Account
	CreditAccount   *ledger.Account
	BridgeAsset     *ledger.Account
	BridgeLiability *ledger.Account
}

func (p *Payload) baseLayer() ledger.Layer {
	return ledger.LayerFor(p.Currency, ledger.LayerBase)
}

func (p *Payload) pendingLayer() ledger.Layer {
	return ledger.LayerFor(p.Currency, ledger.LayerPending)
}

func (p *Payload) dailyLimitLayer() ledger.Layer {
	return ledger.LayerFor(p.Currency, ledger.LayerDailyLimit)
}

func (p *Payload) cumulativeLimitLayer() ledger.Layer {
	return ledger.LayerFor(p.Currency, ledger.LayerCumulativeLimit)
}
