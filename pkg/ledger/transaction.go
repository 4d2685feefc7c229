package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a GL transaction: an ordered collection of entries
// posted atomically to a journal. The double-entry balance law holds
// per layer: for every layer present among the entries, credits equal
// debits.
type Transaction struct {
	ID        int64
	Detail    string
	Timestamp time.Time
	PostDate  time.Time
	Journal   *Journal
	State     State
	Meta      *Tags
	Entries   []*Entry
}

// NewTransaction creates a transaction shell with the given detail
// (the external reference string).
func NewTransaction(detail string) *Transaction {
	now := time.Now()
	return &Transaction{
		Detail:    detail,
		Timestamp: now,
		PostDate:  now,
		Meta:      NewTags(),
	}
}

// CreateEntry appends an entry to the transaction.
func (t *Transaction) CreateEntry(acct *Account, amount decimal.Decimal, detail string, credit bool, layer Layer) *Entry {
	e := &Entry{
		Account: acct,
		Amount:  amount,
		Credit:  credit,
		Detail:  detail,
		Layer:   layer,
		Tags:    NewTags(),
	}
	t.Entries = append(t.Entries, e)
	return e
}

// CreateDebit appends a debit entry on the given layer.
func (t *Transaction) CreateDebit(acct *Account, amount decimal.Decimal, detail string, layer Layer) *Entry {
	return t.CreateEntry(acct, amount, detail, false, layer)
}

// CreateCredit appends a credit entry on the given layer.
func (t *Transaction) CreateCredit(acct *Account, amount decimal.Decimal, detail string, layer Layer) *Entry {
	return t.CreateEntry(acct, amount, detail, true, layer)
}

// Reverse builds the counter transaction: every entry negated, same
// side and layer, detail wrapped in parentheses. When layers are given
// only entries on those layers are carried over. keepEntryTags copies
// entry tags and completion marks onto the counter entries.
func (t *Transaction) Reverse(keepEntryTags bool, layers ...Layer) *Transaction {
	rev := NewTransaction("(" + t.Detail + ")")
	rev.Journal = t.Journal
	for _, e := range t.Entries {
		if len(layers) > 0 && !e.HasLayer(layers...) {
			continue
		}
		re := rev.CreateEntry(e.Account, e.Amount.Neg(), e.Detail, e.Credit, e.Layer)
		if keepEntryTags {
			re.Tags = e.Tags.Clone()
			re.Completion = e.Completion
		}
	}
	return rev
}

// Debits sums debit amounts on the given layers (all layers when none
// are given).
func (t *Transaction) Debits(layers ...Layer) decimal.Decimal {
	return t.sum(false, layers)
}

// Credits sums credit amounts on the given layers (all layers when
// none are given).
func (t *Transaction) Credits(layers ...Layer) decimal.Decimal {
	return t.sum(true, layers)
}

func (t *Transaction) sum(credit bool, layers []Layer) decimal.Decimal {
	total := decimal.Zero
	for _, e := range t.Entries {
		if e.Credit != credit {
			continue
		}
		if len(layers) > 0 && !e.HasLayer(layers...) {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total
}

// Impact returns the signed effect of the transaction on an account's
// natural balance across the given layers.
func (t *Transaction) Impact(acct *Account, layers ...Layer) decimal.Decimal {
	total := decimal.Zero
	for _, e := range t.Entries {
		if e.Account.Code != acct.Code {
			continue
		}
		if len(layers) > 0 && !e.HasLayer(layers...) {
			continue
		}
		total = total.Add(e.Impact())
	}
	return total
}

// AffectedLayers returns the distinct layers touched by the entries.
func (t *Transaction) AffectedLayers() []Layer {
	seen := make(map[Layer]struct{})
	var out []Layer
	for _, e := range t.Entries {
		if _, ok := seen[e.Layer]; ok {
			continue
		}
		seen[e.Layer] = struct{}{}
		out = append(out, e.Layer)
	}
	return out
}

// HasLayer reports whether any entry sits on any of the given layers.
func (t *Transaction) HasLayer(layers ...Layer) bool {
	for _, e := range t.Entries {
		if e.HasLayer(layers...) {
			return true
		}
	}
	return false
}

// AccountCodes returns the distinct account codes touched, in entry
// order.
func (t *Transaction) AccountCodes() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range t.Entries {
		if _, ok := seen[e.Account.Code]; ok {
			continue
		}
		seen[e.Account.Code] = struct{}{}
		out = append(out, e.Account.Code)
	}
	return out
}

// CheckBalance verifies the per-layer double-entry balance law and
// returns a BalanceError for the first violating layer.
func (t *Transaction) CheckBalance() error {
	for _, layer := range t.AffectedLayers() {
		debits := t.Debits(layer)
		credits := t.Credits(layer)
		if !debits.Equal(credits) {
			return &BalanceError{
				Detail:  t.Detail,
				Layer:   layer,
				Debits:  debits.String(),
				Credits: credits.String(),
			}
		}
	}
	return nil
}

// EncodeTags flattens metadata plus lifecycle state into the storage
// tag encoding.
func (t *Transaction) EncodeTags() string {
	tags := t.Meta.Clone()
	t.State.EncodeInto(tags)
	return tags.String()
}

// DecodeTransactionTags parses a stored tag string into lifecycle
// state and residual metadata.
func DecodeTransactionTags(encoded string) (State, *Tags) {
	return StateFromTags(ParseTags(encoded))
}
