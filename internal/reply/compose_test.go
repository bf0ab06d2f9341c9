package reply

import (
	"testing"

	"opacity-verifier/internal/types"

	"github.com/stretchr/testify/assert"
)

const addr = "0x1111111111111111111111111111111111111111"

func TestCompose(t *testing.T) {
	c := Composer{BountyAmount: "1", BountySymbol: "SERAPH"}
	tests := []struct {
		name string
		in   Input
		want string
	}{
		{
			name: "first time with transfer",
			in:   Input{Valid: true, ProofID: "abc123", PayoutAddress: addr, Transfer: &types.Receipt{TxReference: "0xfeed"}},
			want: "✅ First-time verification successful! The AI inference proof (ID: abc123) has been validated.\n" +
				"Bounty of 1 SERAPH transferred to " + addr + " (tx: 0xfeed)",
		},
		{
			name: "first time transfer failed",
			in:   Input{Valid: true, ProofID: "abc123", PayoutAddress: addr},
			want: "✅ First-time verification successful! The AI inference proof (ID: abc123) has been validated.\n" +
				"⚠️ Failed to transfer SERAPH bounty to " + addr,
		},
		{
			name: "first time transfer failed with class",
			in:   Input{Valid: true, ProofID: "abc123", PayoutAddress: addr, TransferFailure: "insufficient funds"},
			want: "✅ First-time verification successful! The AI inference proof (ID: abc123) has been validated.\n" +
				"⚠️ Failed to transfer SERAPH bounty to " + addr + ": insufficient funds",
		},
		{
			name: "first time without address",
			in:   Input{Valid: true, ProofID: "abc123"},
			want: "✅ First-time verification successful! The AI inference proof (ID: abc123) has been validated.\n" +
				"No wallet address provided for SERAPH bounty",
		},
		{
			name: "repeat verification ignores address",
			in:   Input{Valid: true, PreviouslyVerified: true, ProofID: "abc123", PayoutAddress: addr},
			want: "✅ Proof verification successful! The AI inference proof (ID: abc123) has been validated.",
		},
		{
			name: "invalid",
			in:   Input{Valid: false, PreviouslyVerified: true, ProofID: "abc123", PayoutAddress: addr},
			want: "❌ Proof verification failed. The provided proof (ID: abc123) could not be validated.",
		},
		{
			name: "mention and parent note",
			in:   Input{Valid: false, ProofID: "p-1", Mention: "agent", FromParent: true},
			want: "@agent ❌ Proof verification failed. The provided proof (ID: p-1) could not be validated.\n" +
				"(Original proof found in parent tweet)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Compose(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, c.Compose(tt.in))
		})
	}
}

func TestCompose_ZeroValue(t *testing.T) {
	got := Composer{}.Compose(Input{Valid: true, ProofID: "x", PayoutAddress: addr, Transfer: &types.Receipt{TxReference: "r"}})
	assert.Contains(t, got, "Bounty of 1 token transferred to "+addr+" (tx: r)")
}
