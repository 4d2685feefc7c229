package engine

import (
	"github.com/greenkode/miniledger/pkg/ledger"
)

const limitDetail = "transaction_limit"

// DirectStrategy handles non-pending transfers: a plain base-layer
// debit/credit pair, plus daily and cumulative limit tracking entries
// routed through the asset bridge for amount entries.
type DirectStrategy struct{}

// NewDirectStrategy creates a DirectStrategy.
func NewDirectStrategy() *DirectStrategy {
	return &DirectStrategy{}
}

// Name implements Strategy.
func (s *DirectStrategy) Name() string { return "direct" }

// CanHandle implements Strategy: every non-pending context.
func (s *DirectStrategy) CanHandle(ctx *TransactionContext) bool {
	return !ctx.Pending
}

// CreateEntries implements Strategy.
func (s *DirectStrategy) CreateEntries(p *Payload) ([]EntrySpec, error) {
	layer := p.baseLayer()
	specs := []EntrySpec{
		DebitSpec(p.DebitAccount, p.Entry.Amount, layer, p.Entry.Detail),
		CreditSpec(p.CreditAccount, p.Entry.Amount, layer, p.Entry.Detail),
	}
	specs = append(specs, s.limitEntries(p)...)
	return specs, nil
}

// limitEntries tracks the debit against the daily and cumulative limit
// layers. Bridge account debits and entries opting out via SkipLimits
// are exempt.
func (s *DirectStrategy) limitEntries(p *Payload) []EntrySpec {
	if p.Entry.Kind != ledger.KindAmount || p.Entry.SkipLimits {
		return nil
	}
	if p.DebitAccount.IsBridge() {
		return nil
	}
	if p.BridgeAsset == nil {
		return nil
	}
	return []EntrySpec{
		DebitSpec(p.BridgeAsset, p.Entry.Amount, p.dailyLimitLayer(), limitDetail),
		CreditSpec(p.DebitAccount, p.Entry.Amount, p.dailyLimitLayer(), limitDetail),

		DebitSpec(p.BridgeAsset, p.Entry.Amount, p.cumulativeLimitLayer(), limitDetail),
		CreditSpec(p.DebitAccount, p.Entry.Amount, p.cumulativeLimitLayer(), limitDetail),
	}
}

// Complete implements Strategy. Direct transactions settle on the base
// layer at creation; there is nothing to complete.
func (s *DirectStrategy) Complete(original, completion *ledger.Transaction, currencies map[string]ledger.Currency) error {
	return ledger.NewInconsistentState(
		"transaction %s has no pending entries to complete", original.Detail,
	)
}
