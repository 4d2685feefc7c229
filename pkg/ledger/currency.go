package ledger

import "fmt"

// Currency is a configured ledger currency. The numeric id doubles as
// the base layer for that currency: every layer an account in this
// currency can touch lies in [ID, ID+6999]. Real-world ISO numeric
// codes keep the ranges disjoint; ValidateCurrencyLayers enforces it.
type Currency struct {
	ID   int16
	Name string
}

// BaseLayer returns the base layer id for the currency.
func (c Currency) BaseLayer() int16 {
	return c.ID
}

// ValidateCurrencyLayers rejects a configuration in which two
// currencies' computed layer ranges overlap. The base-layer-per-currency
// scheme is load bearing: a collision would let entries from one
// currency satisfy another currency's balance check.
func ValidateCurrencyLayers(currencies []Currency) error {
	for i, a := range currencies {
		for _, b := range currencies[i+1:] {
			if a.ID == b.ID {
				return fmt.Errorf("currencies %s and %s share base layer %d", a.Name, b.Name, a.ID)
			}
			lo, hi := a, b
			if b.ID < a.ID {
				lo, hi = b, a
			}
			if hi.ID <= lo.ID+maxLayerOffset {
				return fmt.Errorf(
					"currency layer ranges overlap: %s [%d..%d] and %s [%d..%d]",
					lo.Name, lo.ID, lo.ID+maxLayerOffset,
					hi.Name, hi.ID, hi.ID+maxLayerOffset,
				)
			}
		}
	}
	return nil
}
