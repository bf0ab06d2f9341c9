package app

import (
	"fmt"

	"opacity-verifier/internal/config"
	"opacity-verifier/internal/ledger"
	mcpclient "opacity-verifier/internal/mcp"
	"opacity-verifier/internal/opacity"
	"opacity-verifier/internal/reply"
	"opacity-verifier/internal/trading"
	"opacity-verifier/internal/twitter"
	"opacity-verifier/internal/verify"

	"go.uber.org/zap"
)

// App holds the long-lived collaborators of a verifier process.
type App struct {
	Config   *config.Config
	Ledger   *ledger.Ledger
	Feed     *twitter.Client
	Prover   *opacity.Client
	Wallet   mcpclient.Stdio
	Gateway  *trading.Gateway
	Verifier *verify.Orchestrator
}

// Wallet returns the wallet tool server described by cfg.
func Wallet(cfg *config.Config) mcpclient.Stdio {
	return mcpclient.Stdio{Command: cfg.WalletCmd, Args: cfg.WalletArgs, ClientName: "opacity-verifier"}
}

// New validates cfg and wires every collaborator. Close releases the ledger.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	l, err := ledger.Open(cfg.LedgerPath, log.Named("ledger"))
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Ledger: l,
		Feed: twitter.NewClient(cfg.XBase, twitter.Credentials{
			BearerToken:       cfg.XBearerToken,
			APIKey:            cfg.XAPIKey,
			APISecret:         cfg.XAPISecret,
			AccessToken:       cfg.XAccessToken,
			AccessTokenSecret: cfg.XAccessTokenSecret,
		}),
		Prover: opacity.NewClient(cfg.ProverURL),
		Wallet: Wallet(cfg),
	}
	a.Gateway = trading.NewGateway(a.Wallet, trading.Config{
		MarketID:       cfg.MarketID,
		BountyContract: cfg.BountyContract,
		BountyAmount:   cfg.BountyAmount,
	}, log.Named("trading"))
	a.Verifier = verify.New(a.Feed, a.Prover, a.Gateway, a.Ledger, verify.Options{
		MaxDepth:    cfg.MaxThreadDepth,
		CallTimeout: cfg.CallTimeout,
		Composer:    reply.Composer{BountyAmount: cfg.BountyAmount, BountySymbol: cfg.BountySymbol},
	}, log.Named("verify"))
	return a, nil
}

// Close releases process resources.
func (a *App) Close() error {
	return a.Ledger.Close()
}
