package proof

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "wallet label",
			text: "wallet address: 0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
			want: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
			ok:   true,
		},
		{
			name: "label is case insensitive",
			text: "Wallet Address:0xabcdefabcdefabcdefabcdefabcdefabcdefabcd thanks",
			want: "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
			ok:   true,
		},
		{
			name: "plain address label",
			text: "send it to address: 0x1111111111111111111111111111111111111111",
			want: "0x1111111111111111111111111111111111111111",
			ok:   true,
		},
		{
			name: "labelled match beats earlier bare address",
			text: "ignore 0x2222222222222222222222222222222222222222 and use wallet address: 0x3333333333333333333333333333333333333333",
			want: "0x3333333333333333333333333333333333333333",
			ok:   true,
		},
		{
			name: "bare fallback",
			text: "gm 0x4444444444444444444444444444444444444444",
			want: "0x4444444444444444444444444444444444444444",
			ok:   true,
		},
		{
			name: "no-break space after label",
			text: "wallet address:\u00a00x5555555555555555555555555555555555555555",
			want: "0x5555555555555555555555555555555555555555",
			ok:   true,
		},
		{
			name: "too short",
			text: "wallet address: 0x1234",
			ok:   false,
		},
		{
			name: "no address",
			text: "Ran inference. Proof ID: abc123",
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractAddress(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractProof(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{name: "trailing marker", text: "Ran inference. Proof ID: abc123", want: "abc123", ok: true},
		{name: "trailing whitespace", text: "Ran inference. Proof ID: abc123 \n\t", want: "abc123", ok: true},
		{name: "case insensitive", text: "done. proof id:XyZ-9_0", want: "XyZ-9_0", ok: true},
		{name: "token keeps punctuation", text: "Proof ID: 7f3e/ab.c", want: "7f3e/ab.c", ok: true},
		{name: "mid sentence", text: "the Proof ID: abc123 was posted yesterday", ok: false},
		{name: "marker without token", text: "Proof ID:", ok: false},
		{name: "trailing no-break space", text: "Ran inference. Proof ID: abc123\u00a0", want: "abc123", ok: true},
		{name: "no-break space after marker", text: "Ran inference. Proof ID:\u00a0abc123", want: "abc123", ok: true},
		{name: "trailing vertical tab", text: "Ran inference. Proof ID: abc123\v", want: "abc123", ok: true},
		{name: "trailing line separator", text: "Ran inference. Proof ID: abc123\u2028", want: "abc123", ok: true},
		{name: "ideographic space splits token", text: "Proof ID: abc\u3000123", ok: false},
		{name: "marker followed only by unicode space", text: "Proof ID:\u00a0\u2003", ok: false},
		{name: "mid sentence after no-break space", text: "the Proof ID: abc123\u00a0was posted", ok: false},
		{name: "no marker", text: "gm", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractProof(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
