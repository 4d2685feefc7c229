package ledger

// BuildReversal constructs the counter transaction for a full
// reversal: every entry negated with tags kept, carrying the
// original's metadata and group/type, linked back via Reverses. The
// original is not mutated; callers mark it with MarkReversed once the
// counter transaction is posted.
func (t *Transaction) BuildReversal(reversalRef string) *Transaction {
	rev := t.Reverse(true)
	rev.Detail = reversalRef
	rev.Meta = t.Meta.Clone()
	rev.State = State{
		Group:    t.State.Group,
		Type:     t.State.Type,
		Reverses: t.Detail,
	}
	return rev
}

// MarkReversed records that the transaction has been reversed by the
// given counter transaction reference.
func (t *Transaction) MarkReversed(reversalRef string) {
	t.State.Reversed = true
	t.State.ReversalRef = reversalRef
}

// MarkCompleted records that the transaction has been completed by the
// given completion transaction reference.
func (t *Transaction) MarkCompleted(completionRef string) {
	t.State.Completed = true
	t.State.CompletionRef = completionRef
}
