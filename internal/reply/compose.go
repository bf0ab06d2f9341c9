package reply

import (
	"fmt"
	"strings"

	"opacity-verifier/internal/types"
)

// Input is everything a verification reply depends on.
type Input struct {
	Valid              bool
	PreviouslyVerified bool
	ProofID            string
	// PayoutAddress is empty when the thread carried no address.
	PayoutAddress string
	// Transfer is nil when no bounty transfer succeeded.
	Transfer *types.Receipt
	// TransferFailure is a short class of why the transfer failed, if known.
	TransferFailure string
	// Mention is the handle to address, without the leading @.
	Mention string
	// FromParent marks replies posted under a tweet other than the proof tweet.
	FromParent bool
}

// Composer renders verification replies. The zero value describes the bounty as
// "1 token".
type Composer struct {
	BountyAmount string
	BountySymbol string
}

// Compose returns the reply text for in. The output depends only on c and in.
func (c Composer) Compose(in Input) string {
	var b strings.Builder
	if in.Mention != "" {
		fmt.Fprintf(&b, "@%s ", in.Mention)
	}

	switch {
	case !in.Valid:
		fmt.Fprintf(&b, "❌ Proof verification failed. The provided proof (ID: %s) could not be validated.", in.ProofID)
	case in.PreviouslyVerified:
		fmt.Fprintf(&b, "✅ Proof verification successful! The AI inference proof (ID: %s) has been validated.", in.ProofID)
	default:
		fmt.Fprintf(&b, "✅ First-time verification successful! The AI inference proof (ID: %s) has been validated.", in.ProofID)
		b.WriteString("\n")
		b.WriteString(c.bountyLine(in))
	}

	if in.FromParent {
		b.WriteString("\n(Original proof found in parent tweet)")
	}
	return b.String()
}

func (c Composer) bountyLine(in Input) string {
	bounty := c.bounty()
	switch {
	case in.PayoutAddress == "":
		return fmt.Sprintf("No wallet address provided for %s bounty", bounty)
	case in.Transfer == nil && in.TransferFailure != "":
		return fmt.Sprintf("⚠️ Failed to transfer %s bounty to %s: %s", bounty, in.PayoutAddress, in.TransferFailure)
	case in.Transfer == nil:
		return fmt.Sprintf("⚠️ Failed to transfer %s bounty to %s", bounty, in.PayoutAddress)
	default:
		return fmt.Sprintf("Bounty of %s %s transferred to %s (tx: %s)",
			c.amount(), bounty, in.PayoutAddress, in.Transfer.TxReference)
	}
}

func (c Composer) amount() string {
	if c.BountyAmount == "" {
		return "1"
	}
	return c.BountyAmount
}

func (c Composer) bounty() string {
	if c.BountySymbol == "" {
		return "token"
	}
	return c.BountySymbol
}
