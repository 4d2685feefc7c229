package engine

import (
	"fmt"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// PendingBillPaymentStrategy handles pending bill payments. A bill
// payment carries an AMOUNT leg plus optional REBATE and COMMISSION
// legs; the principal is held in the liability bridge on the base
// layer while the pending layer mirrors each leg. Completion unwinds
// the pending layer and settles each marked leg on the base layer.
type PendingBillPaymentStrategy struct{}

// NewPendingBillPaymentStrategy creates a PendingBillPaymentStrategy.
func NewPendingBillPaymentStrategy() *PendingBillPaymentStrategy {
	return &PendingBillPaymentStrategy{}
}

// Name implements Strategy.
func (s *PendingBillPaymentStrategy) Name() string { return "pending-bill-payment" }

// CanHandle implements Strategy: pending transfers in the BILL_PAYMENT
// group.
func (s *PendingBillPaymentStrategy) CanHandle(ctx *TransactionContext) bool {
	return ctx.Pending && ctx.Group == GroupBillPayment
}

// CreateEntries implements Strategy.
func (s *PendingBillPaymentStrategy) CreateEntries(p *Payload) ([]EntrySpec, error) {
	var specs []EntrySpec

	if p.Entry.Kind == ledger.KindAmount {
		if p.BridgeLiability == nil {
			return nil, ledger.NewNotFound("account", "bridge-liabilities-"+p.Entry.Currency)
		}
		base := p.baseLayer()
		specs = append(specs,
			DebitSpec(p.DebitAccount, p.Entry.Amount, base, p.Entry.Detail),
			CreditSpec(p.BridgeLiability, p.Entry.Amount, base, p.Entry.Detail).
				WithCompletion(true, p.Entry.CreditAccount, ledger.KindAmount),
		)
	}

	pending, err := s.pendingEntries(p)
	if err != nil {
		return nil, err
	}
	return append(specs, pending...), nil
}

func (s *PendingBillPaymentStrategy) pendingEntries(p *Payload) ([]EntrySpec, error) {
	switch p.Entry.Kind {
	case ledger.KindAmount, ledger.KindRebate:
		if p.BridgeAsset == nil || p.BridgeLiability == nil {
			return nil, ledger.NewNotFound("account", "bridge accounts for "+p.Entry.Currency)
		}
		return s.pendingLeg(p, p.BridgeAsset, p.BridgeLiability,
			&ledger.CompletionMark{Account: p.Entry.DebitAccount, Kind: ledger.KindRebate})
	case ledger.KindCommission:
		// Commissions are funded from an expense account, which takes
		// the asset bridge's place in the pending chain.
		if p.DebitAccount.Tags.Value("type") != "EXPENSE" {
			return nil, ledger.NewValidation("expense account not found for commission entry %s", p.Entry.Detail)
		}
		if p.BridgeLiability == nil {
			return nil, ledger.NewNotFound("account", "bridge-liabilities-"+p.Entry.Currency)
		}
		return s.pendingLeg(p, p.DebitAccount, p.BridgeLiability,
			&ledger.CompletionMark{Account: p.DebitAccount.Code, Kind: ledger.KindCommission})
	default:
		return nil, nil
	}
}

// pendingLeg mirrors one leg on the pending layer. Credit-typed
// recipients need the full chain through source and liability bridge;
// debit-typed recipients are debited directly against the source.
func (s *PendingBillPaymentStrategy) pendingLeg(p *Payload, source, liability *ledger.Account, mark *ledger.CompletionMark) ([]EntrySpec, error) {
	pending := p.pendingLayer()
	amount := p.Entry.Amount
	detail := p.Entry.Detail

	switch {
	case p.CreditAccount.IsCredit():
		final := CreditSpec(p.CreditAccount, amount, pending, detail)
		final.Completion = mark
		return []EntrySpec{
			DebitSpec(source, amount, pending, detail),
			CreditSpec(liability, amount, pending, detail),

			DebitSpec(liability, amount, pending, detail),
			final,
		}, nil
	case p.CreditAccount.IsDebit():
		// Debit-typed recipients (like cash) are debited directly; the
		// pending amount settles at creation, so no mark is needed.
		return []EntrySpec{
			DebitSpec(p.CreditAccount, amount, pending, detail),
			CreditSpec(liability, amount, pending, detail),
		}, nil
	default:
		return nil, fmt.Errorf("unknown account type for account %s", p.CreditAccount.Code)
	}
}

// Complete implements Strategy: unwind every offset layer, then settle
// each marked leg on the base layer according to its kind.
func (s *PendingBillPaymentStrategy) Complete(original, completion *ledger.Transaction, currencies map[string]ledger.Currency) error {
	reverseOffsetLayers(original, completion, currencies)

	for _, held := range original.Entries {
		if held.Completion == nil {
			continue
		}
		if held.Completion.Kind == "" {
			return ledger.NewInconsistentState(
				"unable to complete bill payment %s: entry for %s has no kind",
				original.Detail, held.Account.Code,
			)
		}
		recipient := findRecipient(original, held.Completion.Account)
		if recipient == nil {
			continue
		}
		layer, err := baseLayerOf(held, currencies)
		if err != nil {
			return err
		}

		switch held.Completion.Kind {
		case ledger.KindRebate, ledger.KindCommission:
			debit := completion.CreateDebit(
				recipient.Account, held.Amount,
				"Bill payment completion: "+held.Detail, layer,
			)
			debit.Tags = completion.Meta.Clone()

			credit := completion.CreateCredit(
				held.Account, held.Amount,
				"Bridge debit for bill payment", layer,
			)
			credit.Tags = completion.Meta.Clone()
		case ledger.KindAmount:
			debit := completion.CreateDebit(
				held.Account, held.Amount,
				"Bridge debit for bill payment", layer,
			)
			debit.Tags = completion.Meta.Clone()

			credit := completion.CreateCredit(
				recipient.Account, held.Amount,
				"Bill payment completion: "+held.Detail, layer,
			)
			credit.Tags = completion.Meta.Clone()
		}
	}
	return nil
}
