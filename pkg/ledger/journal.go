package ledger

// Journal is the grouping construct transactions are posted to. Each
// chart root owns one journal.
type Journal struct {
	ID    int64
	Name  string
	Chart *Account
}

// TransactionGroup is a set of transactions sharing a common external
// reference. Multi-leg transfers that must be reversed atomically are
// grouped, as are (original, completion) pairs.
type TransactionGroup struct {
	ID           int64
	Name         string
	Transactions []*Transaction
}

// AllReversed reports whether every member transaction is reversed.
func (g *TransactionGroup) AllReversed() bool {
	for _, t := range g.Transactions {
		if !t.State.Reversed {
			return false
		}
	}
	return true
}

// AnyReversed reports whether at least one member transaction is
// reversed.
func (g *TransactionGroup) AnyReversed() bool {
	for _, t := range g.Transactions {
		if t.State.Reversed {
			return true
		}
	}
	return false
}
