package ledger

import "fmt"

// Layer identifies a ledger bucket within an account's currency.
// A layer is the currency's base layer plus a kind offset; the base
// layer values (currency numeric ids) are chosen so that no two
// currencies' computed layer ranges overlap.
type Layer int16

// LayerKind is the closed set of layer offsets. The offset space is
// currency-agnostic: the same offsets apply on top of every currency's
// base layer.
type LayerKind int

const (
	LayerBase LayerKind = iota
	LayerPending
	LayerCreditAllowances
	LayerOnHold
	LayerDailyLimit
	LayerCumulativeLimit
	LayerFee
)

// layerOffsets is the explicit offset table for the closed LayerKind
// enumeration. Layer computation goes through this table rather than
// ambient constants.
var layerOffsets = map[LayerKind]int16{
	LayerBase:             0,
	LayerPending:          1000,
	LayerCreditAllowances: 2000,
	LayerOnHold:           3000,
	LayerDailyLimit:       4000,
	LayerCumulativeLimit:  5000,
	LayerFee:              6000,
}

// maxLayerOffset bounds a currency's layer range: a currency with base
// layer b owns layers [b, b+maxLayerOffset].
const maxLayerOffset int16 = 6999

// Offset returns the layer offset for the kind.
func (k LayerKind) Offset() int16 {
	return layerOffsets[k]
}

// String returns a human readable layer kind name.
func (k LayerKind) String() string {
	switch k {
	case LayerBase:
		return "Base"
	case LayerPending:
		return "Pending"
	case LayerCreditAllowances:
		return "Credit Allowances"
	case LayerOnHold:
		return "On Hold"
	case LayerDailyLimit:
		return "Daily Limit"
	case LayerCumulativeLimit:
		return "Cumulative Limit"
	case LayerFee:
		return "Fee"
	}
	return fmt.Sprintf("LayerKind(%d)", int(k))
}

// LayerKinds returns every kind in offset order.
func LayerKinds() []LayerKind {
	return []LayerKind{
		LayerBase, LayerPending, LayerCreditAllowances, LayerOnHold,
		LayerDailyLimit, LayerCumulativeLimit, LayerFee,
	}
}

// OffsetLayerKinds returns every non-base kind, the layers a completion
// unwinds.
func OffsetLayerKinds() []LayerKind {
	return LayerKinds()[1:]
}

// LayerFor computes the layer id for a currency and kind.
func LayerFor(c Currency, kind LayerKind) Layer {
	return Layer(c.BaseLayer() + kind.Offset())
}

// KindOf resolves the layer back to its kind within the currency's
// range. Returns false if the layer does not belong to the currency.
func KindOf(layer Layer, c Currency) (LayerKind, bool) {
	diff := int16(layer) - c.BaseLayer()
	for _, k := range LayerKinds() {
		if diff == k.Offset() {
			return k, true
		}
	}
	return 0, false
}
