package ledger

import "github.com/shopspring/decimal"

// EntryKind classifies what a requested entry represents. The kind
// steers strategy behavior (limits, completion routing) and survives on
// completion marks.
type EntryKind string

const (
	KindAmount     EntryKind = "AMOUNT"
	KindFee        EntryKind = "FEE"
	KindCommission EntryKind = "COMMISSION"
	KindRebate     EntryKind = "REBATE"
)

// CompletionMark routes a pending-layer entry to its final recipient
// when the transaction is completed. It replaces the old
// "credit:<code>,type:<kind>" entry tag convention; the tag form is
// only produced when encoding for storage.
type CompletionMark struct {
	// Credit is true when the completion should credit the target
	// account on the base layer, false when it should debit it.
	Credit  bool
	Account string
	Kind    EntryKind
}

// Entry is a single posting line. Entries are immutable once posted
// except for tag mutation during completion and reversal marking.
type Entry struct {
	ID      int64
	Account *Account
	Amount  decimal.Decimal
	Credit  bool
	Detail  string
	Layer   Layer
	Tags    *Tags

	// Completion is set on pending-layer entries that a completion
	// must land on a final account, nil otherwise.
	Completion *CompletionMark
}

// IsCredit reports whether the entry is a credit.
func (e *Entry) IsCredit() bool { return e.Credit }

// IsDebit reports whether the entry is a debit.
func (e *Entry) IsDebit() bool { return !e.Credit }

// IsIncrease reports whether the entry increases its account's natural
// balance (debit on a debit account or credit on a credit account).
func (e *Entry) IsIncrease() bool {
	return (e.IsDebit() && e.Account.IsDebit()) || (e.IsCredit() && e.Account.IsCredit())
}

// Impact returns the signed effect on the account's natural balance.
func (e *Entry) Impact() decimal.Decimal {
	if e.IsIncrease() {
		return e.Amount
	}
	return e.Amount.Neg()
}

// HasLayer reports whether the entry sits on any of the given layers.
func (e *Entry) HasLayer(layers ...Layer) bool {
	for _, l := range layers {
		if e.Layer == l {
			return true
		}
	}
	return false
}

// EncodeTags flattens the entry's tags plus its completion mark into
// the storage encoding.
func (e *Entry) EncodeTags() string {
	t := e.Tags.Clone()
	if e.Completion != nil {
		side := "debit"
		if e.Completion.Credit {
			side = "credit"
		}
		t.Set(side, e.Completion.Account)
		if e.Completion.Kind != "" {
			t.Set("type", string(e.Completion.Kind))
		}
	}
	return t.String()
}

// DecodeEntryTags parses a stored entry tag string back into residual
// tags and an optional completion mark.
func DecodeEntryTags(encoded string) (*Tags, *CompletionMark) {
	t := ParseTags(encoded)
	var mark *CompletionMark
	if code := t.Value("credit"); code != "" {
		mark = &CompletionMark{Credit: true, Account: code}
	} else if code := t.Value("debit"); code != "" {
		mark = &CompletionMark{Credit: false, Account: code}
	}
	if mark != nil {
		mark.Kind = EntryKind(t.Value("type"))
		t.Remove("credit:" + mark.Account)
		t.Remove("debit:" + mark.Account)
		if mark.Kind != "" {
			t.Remove("type:" + string(mark.Kind))
		}
	}
	return t, mark
}
