package trading

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	mcpclient "opacity-verifier/internal/mcp"
	"opacity-verifier/internal/types"

	"go.uber.org/zap"
)

// Contract methods on the Ethos trade contract.
const (
	MethodBuyTrust     = "longeetTrust"
	MethodBuyDistrust  = "longeetDistrust"
	MethodSellTrust    = "dumpeetTrust"
	MethodSellDistrust = "dumpeetDistrust"
)

// Tool names exposed by the wallet tool server.
const (
	ToolPrefix   = "ethos."
	ToolTransfer = "wallet.transfer"
)

// Failure classes reported for a failed wallet call.
const (
	FailureInsufficientFunds = "insufficient funds"
	FailureRejected          = "rejected by wallet"
	FailureTimeout           = "wallet timed out"
	FailureUnavailable       = "wallet unavailable"
)

// FailureReason maps a gateway error to a short class that is safe to show publicly.
// It returns "" for a nil error.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, mcpclient.ErrToolFailed):
		if strings.Contains(strings.ToLower(err.Error()), "insufficient") {
			return FailureInsufficientFunds
		}
		return FailureRejected
	default:
		return FailureUnavailable
	}
}

// ToolCaller invokes a named tool and returns its text output.
type ToolCaller interface {
	Call(ctx context.Context, tool string, args map[string]any) (string, error)
}

// Config describes the market and bounty the gateway trades.
type Config struct {
	MarketID       int
	BountyContract string
	BountyAmount   string
}

// Gateway performs reputation-market trades and bounty transfers through a wallet
// tool server. Each method is a single attempt.
type Gateway struct {
	tools ToolCaller
	cfg   Config
	log   *zap.Logger
}

// NewGateway returns a Gateway that calls tools.
func NewGateway(tools ToolCaller, cfg Config, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BountyAmount == "" {
		cfg.BountyAmount = "1"
	}
	return &Gateway{tools: tools, cfg: cfg, log: log}
}

// IssueTrust buys trust in the configured market.
func (g *Gateway) IssueTrust(ctx context.Context) (types.Receipt, error) {
	return g.trade(ctx, MethodBuyTrust)
}

// IssueDistrust buys distrust in the configured market.
func (g *Gateway) IssueDistrust(ctx context.Context) (types.Receipt, error) {
	return g.trade(ctx, MethodBuyDistrust)
}

// RevokeTrust sells previously bought trust.
func (g *Gateway) RevokeTrust(ctx context.Context) (types.Receipt, error) {
	return g.trade(ctx, MethodSellTrust)
}

// TransferBounty sends the configured bounty to address.
func (g *Gateway) TransferBounty(ctx context.Context, address string) (types.Receipt, error) {
	if address == "" {
		return types.Receipt{}, errors.New("trading: empty payout address")
	}
	args := map[string]any{
		"to":               address,
		"amount":           g.cfg.BountyAmount,
		"contract_address": g.cfg.BountyContract,
	}
	return g.call(ctx, ToolTransfer, args)
}

func (g *Gateway) trade(ctx context.Context, method string) (types.Receipt, error) {
	return g.call(ctx, ToolPrefix+method, map[string]any{"market_id": strconv.Itoa(g.cfg.MarketID)})
}

func (g *Gateway) call(ctx context.Context, tool string, args map[string]any) (types.Receipt, error) {
	out, err := g.tools.Call(ctx, tool, args)
	if err != nil {
		return types.Receipt{}, fmt.Errorf("%s: %w", tool, err)
	}
	g.log.Info("wallet tool completed", zap.String("tool", tool), zap.String("tx", out))
	return types.Receipt{TxReference: out}, nil
}
