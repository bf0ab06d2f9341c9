package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting of the verifier. Each key can be set in an optional
// yaml file and overridden by the upper-cased environment variable of the same name,
// e.g. x_bearer_token / X_BEARER_TOKEN.
type Config struct {
	Port          string
	MCPPort       string
	WebhookSecret string

	XBase              string
	XBearerToken       string
	XAPIKey            string
	XAPISecret         string
	XAccessToken       string
	XAccessTokenSecret string

	ProverURL string

	WalletCmd      string
	WalletArgs     []string
	MarketID       int
	BountyContract string
	BountyAmount   string
	BountySymbol   string

	LedgerPath     string
	MaxThreadDepth int
	CallTimeout    time.Duration
	Concurrency    int
	LogLevel       string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("mcp_port", "8081")
	v.SetDefault("webhook_secret", "")
	v.SetDefault("x_base", "https://api.twitter.com/2")
	v.SetDefault("x_bearer_token", "")
	v.SetDefault("x_api_key", "")
	v.SetDefault("x_api_secret", "")
	v.SetDefault("x_access_token", "")
	v.SetDefault("x_access_token_secret", "")
	v.SetDefault("opacity_prover_url", "")
	v.SetDefault("wallet_mcp_cmd", "")
	v.SetDefault("wallet_mcp_args", "")
	v.SetDefault("market_id", 898)
	v.SetDefault("bounty_contract", "0x4f81837C2f4A189A0B69370027cc2627d93785B4")
	v.SetDefault("bounty_amount", "1")
	v.SetDefault("bounty_symbol", "SERAPH")
	v.SetDefault("ledger_path", "verified_agents.txt")
	v.SetDefault("max_thread_depth", 16)
	v.SetDefault("call_timeout", 30*time.Second)
	v.SetDefault("concurrency", 4)
	v.SetDefault("log_level", "info")
}

// Load reads configuration from path (skipped when empty) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:               v.GetString("port"),
		MCPPort:            v.GetString("mcp_port"),
		WebhookSecret:      v.GetString("webhook_secret"),
		XBase:              strings.TrimRight(v.GetString("x_base"), "/"),
		XBearerToken:       v.GetString("x_bearer_token"),
		XAPIKey:            v.GetString("x_api_key"),
		XAPISecret:         v.GetString("x_api_secret"),
		XAccessToken:       v.GetString("x_access_token"),
		XAccessTokenSecret: v.GetString("x_access_token_secret"),
		ProverURL:          v.GetString("opacity_prover_url"),
		WalletCmd:          v.GetString("wallet_mcp_cmd"),
		WalletArgs:         strings.Fields(v.GetString("wallet_mcp_args")),
		MarketID:           v.GetInt("market_id"),
		BountyContract:     v.GetString("bounty_contract"),
		BountyAmount:       v.GetString("bounty_amount"),
		BountySymbol:       v.GetString("bounty_symbol"),
		LedgerPath:         v.GetString("ledger_path"),
		MaxThreadDepth:     v.GetInt("max_thread_depth"),
		CallTimeout:        v.GetDuration("call_timeout"),
		Concurrency:        v.GetInt("concurrency"),
		LogLevel:           v.GetString("log_level"),
	}
	return cfg, nil
}

// Validate reports every setting that verification needs but is missing or out of range.
func (c *Config) Validate() error {
	var errs []error
	if c.XBearerToken == "" {
		errs = append(errs, errors.New("x_bearer_token is required"))
	}
	if c.ProverURL == "" {
		errs = append(errs, errors.New("opacity_prover_url is required"))
	}
	if c.WalletCmd == "" {
		errs = append(errs, errors.New("wallet_mcp_cmd is required (wallet tool server command)"))
	}
	if c.LedgerPath == "" {
		errs = append(errs, errors.New("ledger_path is required"))
	}
	if c.MaxThreadDepth < 1 {
		errs = append(errs, fmt.Errorf("max_thread_depth must be positive, got %d", c.MaxThreadDepth))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Concurrency))
	}
	return errors.Join(errs...)
}
