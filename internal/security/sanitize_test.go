package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		kind FieldKind
		in   string
		want string
	}{
		{KindString, "  <b>Hi</b> & 'you' ", "&lt;b&gt;Hi&lt;/b&gt; &amp; &#39;you&#39;"},
		{KindEmail, " ada (at)@example.com ", "adaat@example.com"},
		{KindURL, "https://example.com/a b", "https://example.com/ab"},
		{KindInt, "12a-3", "12-3"},
		{KindFloat, "1,5.25x", "15.25"},
		{FieldKind(99), "<i>", "&lt;i&gt;"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.kind, tt.in))
	}
}

func TestValidURL(t *testing.T) {
	assert.True(t, ValidURL("https://example.com"))
	assert.True(t, ValidURL("http://example.com/path?q=1"))
	assert.False(t, ValidURL("javascript:alert(1)"))
	assert.False(t, ValidURL("example.com"))
	assert.False(t, ValidURL(""))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("ada@example.com"))
	assert.False(t, ValidEmail("ada@"))
	assert.False(t, ValidEmail(""))
}

func TestParseID(t *testing.T) {
	id, ok := ParseID(" 42 ")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	for _, s := range []string{"", "0", "-3", "4x"} {
		_, ok := ParseID(s)
		assert.False(t, ok, s)
	}
}
