package ledger

import "strings"

// AccountType classifies how balances move on an account.
type AccountType int

const (
	AccountUndefined AccountType = 0
	AccountDebit     AccountType = 1
	AccountCredit    AccountType = 2
)

// Account is a node in a chart of accounts. Final accounts are
// postable; composite accounts aggregate children and represent chart
// roots. Every posting entry references a final account.
type Account struct {
	ID           int64
	Code         string
	Description  string
	Type         AccountType
	CurrencyCode string
	Tags         *Tags
	Final        bool
	Parent       *Account
	Root         *Account
	Children     []*Account
}

// IsDebit reports whether the account is debit-typed (assets, expenses).
func (a *Account) IsDebit() bool {
	return a.Type == AccountDebit
}

// IsCredit reports whether the account is credit-typed (liabilities,
// income, equity).
func (a *Account) IsCredit() bool {
	return a.Type == AccountCredit
}

// IsFinal reports whether entries may be posted against the account.
func (a *Account) IsFinal() bool {
	return a.Final
}

// IsChart reports whether the account is an untyped composite root.
func (a *Account) IsChart() bool {
	return !a.Final && a.Type == AccountUndefined
}

const (
	bridgeAssetPrefix     = "bridge-assets"
	bridgeLiabilityPrefix = "bridge-liabilities"
)

// IsBridge reports whether the account is a bridge (clearing) account,
// recognized by its description prefix.
func (a *Account) IsBridge() bool {
	return strings.HasPrefix(a.Description, bridgeAssetPrefix) ||
		strings.HasPrefix(a.Description, bridgeLiabilityPrefix)
}

// IsAssetBridge reports whether the account is the asset-side bridge.
func (a *Account) IsAssetBridge() bool {
	return strings.HasPrefix(a.Description, bridgeAssetPrefix)
}

// IsLiabilityBridge reports whether the account is the liability-side
// bridge.
func (a *Account) IsLiabilityBridge() bool {
	return strings.HasPrefix(a.Description, bridgeLiabilityPrefix)
}

// Walk visits the account and every descendant depth-first.
func (a *Account) Walk(visit func(*Account) bool) {
	if a == nil || !visit(a) {
		return
	}
	for _, c := range a.Children {
		c.Walk(visit)
	}
}

// FindByCode searches the subtree rooted at a for an account code.
func (a *Account) FindByCode(code string) *Account {
	var found *Account
	a.Walk(func(acct *Account) bool {
		if acct.Code == code {
			found = acct
			return false
		}
		return true
	})
	return found
}

// AddChild attaches a child account, wiring parent and root pointers.
func (a *Account) AddChild(child *Account) {
	child.Parent = a
	if a.Root != nil {
		child.Root = a.Root
	} else {
		child.Root = a
	}
	a.Children = append(a.Children, child)
}
