package ledger

import (
	"sort"
	"strings"
)

// Tags is a sorted, comma-encoded bag of free-form markers attached to
// accounts, entries and transactions. A tag is either a bare word
// ("settled") or a key:value pair ("group:INBOUND"). Commas and
// backslashes inside a tag are escaped in the encoded form.
//
// Tags are an audit-facing encoding: lifecycle state is kept in the
// structured State type and only flattened to tags at the storage and
// API boundary.
type Tags struct {
	set map[string]struct{}
}

// NewTags creates a Tags bag from individual tag strings.
func NewTags(tags ...string) *Tags {
	t := &Tags{set: make(map[string]struct{})}
	for _, s := range tags {
		t.Add(s)
	}
	return t
}

// ParseTags decodes a comma-encoded tag string.
func ParseTags(encoded string) *Tags {
	t := NewTags()
	if encoded == "" {
		return t
	}
	var cur strings.Builder
	escaped := false
	for _, c := range encoded {
		switch {
		case escaped:
			cur.WriteRune(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == ',':
			t.Add(cur.String())
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	t.Add(cur.String())
	return t
}

// Add inserts a tag. Leading/trailing whitespace is trimmed and empty
// tags are ignored. Returns true if the tag was not already present.
func (t *Tags) Add(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	if _, ok := t.set[tag]; ok {
		return false
	}
	t.set[tag] = struct{}{}
	return true
}

// Remove deletes a tag. Returns true if it was present.
func (t *Tags) Remove(tag string) bool {
	tag = strings.TrimSpace(tag)
	if _, ok := t.set[tag]; !ok {
		return false
	}
	delete(t.set, tag)
	return true
}

// Contains reports whether the exact tag is present.
func (t *Tags) Contains(tag string) bool {
	if t == nil {
		return false
	}
	_, ok := t.set[strings.TrimSpace(tag)]
	return ok
}

// Value returns the value part of a "key:value" tag, or "" if no tag
// with that key exists. The first colon splits key from value, so
// values may themselves contain colons.
func (t *Tags) Value(key string) string {
	if t == nil {
		return ""
	}
	prefix := key + ":"
	for _, s := range t.Slice() {
		if strings.HasPrefix(s, prefix) {
			return s[len(prefix):]
		}
	}
	return ""
}

// Set replaces any existing "key:*" tag with "key:value".
func (t *Tags) Set(key, value string) {
	prefix := key + ":"
	for s := range t.set {
		if strings.HasPrefix(s, prefix) {
			delete(t.set, s)
		}
	}
	t.Add(prefix + value)
}

// Size returns the number of tags.
func (t *Tags) Size() int {
	if t == nil {
		return 0
	}
	return len(t.set)
}

// Slice returns the tags in sorted order.
func (t *Tags) Slice() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.set))
	for s := range t.set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (t *Tags) Clone() *Tags {
	if t == nil {
		return NewTags()
	}
	return NewTags(t.Slice()...)
}

// String encodes the tags in sorted order, escaping commas and
// backslashes inside individual tags.
func (t *Tags) String() string {
	if t == nil {
		return ""
	}
	var sb strings.Builder
	for i, s := range t.Slice() {
		if i > 0 {
			sb.WriteByte(',')
		}
		for _, c := range s {
			if c == '\\' || c == ',' {
				sb.WriteByte('\\')
			}
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
