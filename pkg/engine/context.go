package engine

import (
	"fmt"
	"sort"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// AccountLookup resolves final accounts for a set of codes.
type AccountLookup interface {
	FinalAccountsByCodes(codes []string) (map[string]*ledger.Account, error)
}

// CurrencyLookup resolves configured currencies by ISO name.
type CurrencyLookup interface {
	CurrenciesByNames(names []string) (map[string]ledger.Currency, error)
}

// TransactionContext is the immutable context consumed by strategies:
// resolved accounts, currencies and bridge accounts plus the request's
// type/group/pending discriminators.
type TransactionContext struct {
	Pending    bool
	Chart      *ledger.Account
	Currencies map[string]ledger.Currency
	Accounts   map[string]*ledger.Account
	Bridges    map[string]BridgePair
	Type       string
	Group      string
}

// ContextBuilder assembles TransactionContexts from creation requests.
type ContextBuilder struct {
	accounts   AccountLookup
	currencies CurrencyLookup
	bridges    *BridgeResolver
}

// NewContextBuilder creates a ContextBuilder.
func NewContextBuilder(accounts AccountLookup, currencies CurrencyLookup, bridges *BridgeResolver) *ContextBuilder {
	return &ContextBuilder{accounts: accounts, currencies: currencies, bridges: bridges}
}

// Build resolves every account code and currency the request references
// and the bridge accounts for each account against the chart. Any code
// that cannot be resolved aborts the whole operation with a not-found
// error naming the missing code.
func (b *ContextBuilder) Build(req *CreateRequest, chart *ledger.Account) (*TransactionContext, error) {
	codes := req.AccountCodes()
	accounts, err := b.accounts.FinalAccountsByCodes(codes)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve accounts: %w", err)
	}
	for _, code := range codes {
		if _, ok := accounts[code]; !ok {
			return nil, ledger.NewNotFound("account", code)
		}
	}

	currencyNames := make(map[string]struct{})
	for _, acct := range accounts {
		currencyNames[acct.CurrencyCode] = struct{}{}
	}
	names := make([]string, 0, len(currencyNames))
	for n := range currencyNames {
		names = append(names, n)
	}
	sort.Strings(names)

	currencies, err := b.currencies.CurrenciesByNames(names)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve currencies: %w", err)
	}
	for _, n := range names {
		if _, ok := currencies[n]; !ok {
			return nil, ledger.NewNotFound("currency", n)
		}
	}

	bridges := make(map[string]BridgePair, len(accounts))
	for code, acct := range accounts {
		pair, err := b.bridges.Resolve(acct, chart)
		if err != nil {
			return nil, err
		}
		bridges[code] = pair
	}

	return &TransactionContext{
		Pending:    req.Pending,
		Chart:      chart,
		Currencies: currencies,
		Accounts:   accounts,
		Bridges:    bridges,
		Type:       req.Type,
		Group:      req.Group,
	}, nil
}
