package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"national mobile gets country code", "333 123 4567", "393331234567"},
		{"national mobile with dashes", "333-123-4567", "393331234567"},
		{"plus prefixed international", "+39 333 1234567", "393331234567"},
		{"landline with country code untouched", "+39 02 1234567", "39021234567"},
		{"already normalized", "393331234567", "393331234567"},
		{"parentheses stripped", "(333) 1234567", "393331234567"},
		{"foreign number untouched", "+44 7911 123456", "447911123456"},
		{"nine digit mobile", "333 123 456", "39333123456"},
		{"eleven digits no prefix", "33312345678", "33312345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"3331234567", "393331234567", "39021234567", "447911123456"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "normalize must be idempotent for %q", in)
	}
}

func TestChatID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"national mobile", "333 123 4567", "393331234567@c.us"},
		{"international", "+39 333 1234567", "393331234567@c.us"},
		{"already qualified", "393331234567@c.us", "393331234567@c.us"},
		{"group id passes through", "1234567890-987654321@g.us", "1234567890-987654321@g.us"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChatID(tt.in))
		})
	}
}

func TestChatID_NoDoublePrefix(t *testing.T) {
	// A number that already carries the country code must not get a second 39.
	assert.Equal(t, "393331234567@c.us", ChatID("39 333 1234567"))
}
