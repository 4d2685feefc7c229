package ledger

// Tag keys the lifecycle state is flattened to at the storage and API
// boundary. Inside the engine state is carried by the State struct;
// nothing greps tag strings.
const (
	tagGroup         = "group"
	tagType          = "type"
	tagReversed      = "reversed"
	tagReversalRef   = "reversal_reference"
	tagReverses      = "reverses"
	tagCompleted     = "completed"
	tagCompletionRef = "completion_reference"
	tagCompletes     = "completes"
)

// State is the explicit lifecycle state of a transaction. Reversed and
// Completed are orthogonal; Reverses/Completes link a counter or
// completion transaction back to its original.
type State struct {
	Group string
	Type  string

	Reversed    bool
	ReversalRef string
	Reverses    string

	Completed     bool
	CompletionRef string
	Completes     string
}

// EncodeInto flattens the state into a tag bag, preserving the
// original tag-encoded audit contract.
func (s State) EncodeInto(t *Tags) {
	if s.Group != "" {
		t.Set(tagGroup, s.Group)
	}
	if s.Type != "" {
		t.Set(tagType, s.Type)
	}
	if s.Reversed {
		t.Set(tagReversed, "true")
	}
	if s.ReversalRef != "" {
		t.Set(tagReversalRef, s.ReversalRef)
	}
	if s.Reverses != "" {
		t.Set(tagReverses, s.Reverses)
	}
	if s.Completed {
		t.Set(tagCompleted, "true")
	}
	if s.CompletionRef != "" {
		t.Set(tagCompletionRef, s.CompletionRef)
	}
	if s.Completes != "" {
		t.Set(tagCompletes, s.Completes)
	}
}

// StateFromTags parses the lifecycle state out of a tag bag and
// returns the residual metadata tags alongside it.
func StateFromTags(t *Tags) (State, *Tags) {
	s := State{
		Group:         t.Value(tagGroup),
		Type:          t.Value(tagType),
		Reversed:      t.Value(tagReversed) == "true",
		ReversalRef:   t.Value(tagReversalRef),
		Reverses:      t.Value(tagReverses),
		Completed:     t.Value(tagCompleted) == "true",
		CompletionRef: t.Value(tagCompletionRef),
		Completes:     t.Value(tagCompletes),
	}
	meta := NewTags()
	for _, raw := range t.Slice() {
		if isStateTag(raw) {
			continue
		}
		meta.Add(raw)
	}
	return s, meta
}

func isStateTag(raw string) bool {
	for _, key := range []string{
		tagGroup, tagType, tagReversed, tagReversalRef, tagReverses,
		tagCompleted, tagCompletionRef, tagCompletes,
	} {
		if len(raw) > len(key) && raw[:len(key)+1] == key+":" {
			return true
		}
	}
	return false
}
