package engine

import (
	"sync"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// BridgePair is the asset/liability clearing pair used to keep a
// cross-hierarchy transfer balanced without directly crediting or
// debiting unrelated hierarchies.
type BridgePair struct {
	Asset     *ledger.Account
	Liability *ledger.Account
}

// BridgeResolver resolves the bridge accounts for an account against a
// chart. Resolution is a pure function of (account, chart): the chart
// subtree is searched in a fixed order for the final bridge accounts
// carrying the account's currency, so creation and completion land on
// the same bridge pair. Results are memoized per (chart, currency).
type BridgeResolver struct {
	mu    sync.Mutex
	cache map[bridgeKey]BridgePair
}

type bridgeKey struct {
	chart    string
	currency string
}

// NewBridgeResolver creates a BridgeResolver.
func NewBridgeResolver() *BridgeResolver {
	return &BridgeResolver{cache: make(map[bridgeKey]BridgePair)}
}

// Resolve returns the asset and liability bridge accounts for the
// account's currency within the chart.
func (r *BridgeResolver) Resolve(acct *ledger.Account, chart *ledger.Account) (BridgePair, error) {
	key := bridgeKey{chart: chart.Code, currency: acct.CurrencyCode}

	r.mu.Lock()
	pair, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return pair, nil
	}

	pair = BridgePair{}
	chart.Walk(func(a *ledger.Account) bool {
		if !a.IsFinal() || a.CurrencyCode != acct.CurrencyCode {
			return true
		}
		if pair.Asset == nil && a.IsAssetBridge() {
			pair.Asset = a
		}
		if pair.Liability == nil && a.IsLiabilityBridge() {
			pair.Liability = a
		}
		return pair.Asset == nil || pair.Liability == nil
	})

	if pair.Asset == nil {
		return BridgePair{}, ledger.NewNotFound("account", "bridge-assets-"+acct.CurrencyCode)
	}
	if pair.Liability == nil {
		return BridgePair{}, ledger.NewNotFound("account", "bridge-liabilities-"+acct.CurrencyCode)
	}

	r.mu.Lock()
	r.cache[key] = pair
	r.mu.Unlock()
	return pair, nil
}

// ResolveAsset returns only the asset-side bridge.
func (r *BridgeResolver) ResolveAsset(acct *ledger.Account, chart *ledger.Account) (*ledger.Account, error) {
	pair, err := r.Resolve(acct, chart)
	if err != nil {
		return nil, err
	}
	return pair.Asset, nil
}

// ResolveLiability returns only the liability-side bridge.
func (r *BridgeResolver) ResolveLiability(acct *ledger.Account, chart *ledger.Account) (*ledger.Account, error) {
	pair, err := r.Resolve(acct, chart)
	if err != nil {
		return nil, err
	}
	return pair.Liability, nil
}
