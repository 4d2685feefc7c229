package engine

import (
	"github.com/greenkode/miniledger/pkg/ledger"
)

// offsetLayersFor expands every non-base layer for the given
// currencies: the layers a completion unwinds.
func offsetLayersFor(currencies map[string]ledger.Currency) []ledger.Layer {
	var layers []ledger.Layer
	for _, c := range currencies {
		for _, kind := range ledger.OffsetLayerKinds() {
			layers = append(layers, ledger.LayerFor(c, kind))
		}
	}
	return layers
}

// reverseOffsetLayers copies negated counterparts of every offset-layer
// entry of the original onto the completion transaction, clearing the
// pending/hold/limit buckets.
func reverseOffsetLayers(original, completion *ledger.Transaction, currencies map[string]ledger.Currency) {
	layers := offsetLayersFor(currencies)
	rev := original.Reverse(false, layers...)
	for _, e := range rev.Entries {
		ne := completion.CreateEntry(e.Account, e.Amount, e.Detail, e.Credit, e.Layer)
		ne.Tags = completion.Meta.Clone()
	}
}

// findRecipient looks up the original entry posted against the marked
// account code.
func findRecipient(original *ledger.Transaction, code string) *ledger.Entry {
	for _, e := range original.Entries {
		if e.Account.Code == code {
			return e
		}
	}
	return nil
}

// findLiabilityBridge finds the liability bridge account used by the
// original transaction in the given currency.
func findLiabilityBridge(original *ledger.Transaction, currencyCode string) *ledger.Account {
	for _, e := range original.Entries {
		if e.Account.IsLiabilityBridge() && e.Account.CurrencyCode == currencyCode {
			return e.Account
		}
	}
	return nil
}

// baseLayerOf returns the base layer for the entry's account currency.
func baseLayerOf(e *ledger.Entry, currencies map[string]ledger.Currency) (ledger.Layer, error) {
	c, ok := currencies[e.Account.CurrencyCode]
	if !ok {
		return 0, ledger.NewNotFound("currency", e.Account.CurrencyCode)
	}
	return ledger.LayerFor(c, ledger.LayerBase), nil
}

// markedEntries returns the original's entries carrying a completion
// mark, filtered by mark side.
func markedEntries(original *ledger.Transaction, credit bool) []*ledger.Entry {
	var out []*ledger.Entry
	for _, e := range original.Entries {
		if e.Completion != nil && e.Completion.Credit == credit {
			out = append(out, e)
		}
	}
	return out
}
