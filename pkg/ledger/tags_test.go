package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagsEncodeSorted(t *testing.T) {
	tags := NewTags("group:INBOUND", "approved", "type:DEPOSIT")

	assert.Equal(t, "approved,group:INBOUND,type:DEPOSIT", tags.String())
}

func TestTagsParseRoundTrip(t *testing.T) {
	tags := ParseTags("approved,group:INBOUND,type:DEPOSIT")

	assert.Equal(t, 3, tags.Size())
	assert.True(t, tags.Contains("approved"))
	assert.Equal(t, "INBOUND", tags.Value("group"))
	assert.Equal(t, "approved,group:INBOUND,type:DEPOSIT", tags.String())
}

func TestTagsEscaping(t *testing.T) {
	tags := NewTags(`note:amount, in cents`, `path:a\b`)

	encoded := tags.String()
	decoded := ParseTags(encoded)

	assert.Equal(t, `note:amount\, in cents,path:a\\b`, encoded)
	assert.True(t, decoded.Contains(`note:amount, in cents`))
	assert.True(t, decoded.Contains(`path:a\b`))
}

func TestTagsSetReplacesKey(t *testing.T) {
	tags := NewTags("group:INBOUND")
	tags.Set("group", "BILL_PAYMENT")

	assert.Equal(t, 1, tags.Size())
	assert.Equal(t, "BILL_PAYMENT", tags.Value("group"))
}

func TestTagsValueKeepsColonsInValue(t *testing.T) {
	tags := NewTags("reverses:txn:legacy:1")

	assert.Equal(t, "txn:legacy:1", tags.Value("reverses"))
}

func TestTagsIgnoresEmptyAndWhitespace(t *testing.T) {
	tags := NewTags("  ", "", " settled ")

	assert.Equal(t, 1, tags.Size())
	assert.True(t, tags.Contains("settled"))
}

func TestTagsCloneIsIndependent(t *testing.T) {
	tags := NewTags("a", "b")
	clone := tags.Clone()
	clone.Add("c")

	assert.Equal(t, 2, tags.Size())
	assert.Equal(t, 3, clone.Size())
}
