package engine

import (
	"fmt"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// PendingInboundStrategy handles pending inbound transfers. The funds
// arrive on the base layer into the liability bridge, marked with the
// final recipient; a matching chain on the pending layer exposes the
// amount as a pending balance on the recipient. Completion unwinds the
// pending layer and moves the held amount from the bridge to the
// recipient on the base layer.
type PendingInboundStrategy struct{}

// NewPendingInboundStrategy creates a PendingInboundStrategy.
func NewPendingInboundStrategy() *PendingInboundStrategy {
	return &PendingInboundStrategy{}
}

// Name implements Strategy.
func (s *PendingInboundStrategy) Name() string { return "pending-inbound" }

// CanHandle implements Strategy: pending transfers in the INBOUND
// group.
func (s *PendingInboundStrategy) CanHandle(ctx *TransactionContext) bool {
	return ctx.Pending && ctx.Group == GroupInbound
}

// CreateEntries implements Strategy.
func (s *PendingInboundStrategy) CreateEntries(p *Payload) ([]EntrySpec, error) {
	if p.BridgeAsset == nil || p.BridgeLiability == nil {
		return nil, ledger.NewNotFound("account", "bridge accounts for "+p.Entry.Currency)
	}

	base := p.baseLayer()
	specs := []EntrySpec{
		DebitSpec(p.DebitAccount, p.Entry.Amount, base, p.Entry.Detail),
		CreditSpec(p.BridgeLiability, p.Entry.Amount, base, p.Entry.Detail).
			WithCompletion(true, p.Entry.CreditAccount, ""),
	}

	pending, err := s.pendingEntries(p)
	if err != nil {
		return nil, err
	}
	return append(specs, pending...), nil
}

// pendingEntries mirrors the transfer on the pending layer so the
// recipient sees the amount as pending. Credit-typed recipients need
// the full bridge chain; debit-typed recipients (like cash) are debited
// directly.
func (s *PendingInboundStrategy) pendingEntries(p *Payload) ([]EntrySpec, error) {
	pending := p.pendingLayer()
	amount := p.Entry.Amount
	detail := p.Entry.Detail

	switch {
	case p.CreditAccount.IsCredit():
		return []EntrySpec{
			// Bridge the asset and liability sides.
			DebitSpec(p.BridgeAsset, amount, pending, detail),
			CreditSpec(p.BridgeLiability, amount, pending, detail),

			// Complete the flow to the final credit account.
			DebitSpec(p.BridgeLiability, amount, pending, detail),
			CreditSpec(p.CreditAccount, amount, pending, detail),
		}, nil
	case p.CreditAccount.IsDebit():
		return []EntrySpec{
			DebitSpec(p.CreditAccount, amount, pending, detail),
			CreditSpec(p.BridgeLiability, amount, pending, detail),
		}, nil
	default:
		return nil, fmt.Errorf("unknown account type for account %s", p.CreditAccount.Code)
	}
}

// Complete implements Strategy: unwind every offset layer, then land
// each marked amount on the base layer against its final recipient.
func (s *PendingInboundStrategy) Complete(original, completion *ledger.Transaction, currencies map[string]ledger.Currency) error {
	reverseOffsetLayers(original, completion, currencies)
	if err := s.completeCreditMarks(original, completion, currencies); err != nil {
		return err
	}
	return s.completeDebitMarks(original, completion, currencies)
}

func (s *PendingInboundStrategy) completeCreditMarks(original, completion *ledger.Transaction, currencies map[string]ledger.Currency) error {
	for _, held := range markedEntries(original, true) {
		layer, err := baseLayerOf(held, currencies)
		if err != nil {
			return err
		}
		recipient := findRecipient(original, held.Completion.Account)
		if recipient == nil {
			return ledger.NewInconsistentState(
				"completion recipient %s not present in transaction %s",
				held.Completion.Account, original.Detail,
			)
		}

		credit := completion.CreateCredit(
			recipient.Account, held.Amount,
			"Completion credit for "+held.Detail, layer,
		)
		credit.Tags = completion.Meta.Clone()

		debit := completion.CreateDebit(
			held.Account, held.Amount,
			"Bridge debit for completion", layer,
		)
		debit.Tags = completion.Meta.Clone()
	}
	return nil
}

func (s *PendingInboundStrategy) completeDebitMarks(original, completion *ledger.Transaction, currencies map[string]ledger.Currency) error {
	for _, held := range markedEntries(original, false) {
		layer, err := baseLayerOf(held, currencies)
		if err != nil {
			return err
		}
		recipient := findRecipient(original, held.Completion.Account)
		if recipient == nil {
			return ledger.NewInconsistentState(
				"completion recipient %s not present in transaction %s",
				held.Completion.Account, original.Detail,
			)
		}

		debit := completion.CreateDebit(
			recipient.Account, held.Amount,
			"Completion credit for "+held.Detail, layer,
		)
		debit.Tags = completion.Meta.Clone()

		if bridge := findLiabilityBridge(original, held.Account.CurrencyCode); bridge != nil {
			credit := completion.CreateCredit(
				bridge, held.Amount,
				"Bridge debit for completion", layer,
			)
			credit.Tags = completion.Meta.Clone()
		}
	}
	return nil
}
