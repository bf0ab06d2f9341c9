package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"opacity-verifier/internal/app"
	"opacity-verifier/internal/config"
	"opacity-verifier/internal/ledger"
	"opacity-verifier/internal/logging"
	"opacity-verifier/internal/verify"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cli struct {
	configFile string
	verbose    bool
	timeout    time.Duration

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "verifyctl",
		Short:         "Operate the Opacity proof verifier from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configFile)
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if c.verbose {
				level = "debug"
			}
			c.logger, err = logging.New(level)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "optional yaml config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 2*time.Minute, "overall command timeout")

	root.AddCommand(c.verifyCmd(), c.ledgerCmd(), c.walletCmd())
	return root
}

func (c *cli) withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

func (c *cli) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <tweet-id>",
		Short: "Run one verification attempt for a mention tweet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := c.withTimeout(cmd)
			defer cancel()
			res := a.Verifier.Verify(ctx, args[0])
			b, _ := json.MarshalIndent(res, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			if res.Status == verify.StatusFailed {
				return errors.New(res.Message)
			}
			return nil
		},
	}
}

func (c *cli) ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the verified-agent ledger",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every verified author id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := ledger.Load(c.cfg.LedgerPath, c.logger.Named("ledger"))
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "check <author-id>",
		Short: "Report whether an author has been verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := ledger.Load(c.cfg.LedgerPath, c.logger.Named("ledger"))
			if err != nil {
				return err
			}
			_, found := slices.BinarySearch(ids, args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s verified=%t\n", args[0], found)
			return nil
		},
	})
	return cmd
}

func (c *cli) walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Talk to the wallet tool server",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "tools",
		Short: "List the tools the wallet server advertises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.WalletCmd == "" {
				return errors.New("wallet_mcp_cmd is required")
			}
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()
			tools, err := app.Wallet(c.cfg).ListTools(ctx)
			if err != nil {
				return err
			}
			for _, t := range tools {
				fmt.Fprintf(cmd.OutOrStdout(), "tool: %s\n", t.Name)
				if len(t.InputSchema.Properties) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "  props: %v\n", t.InputSchema.Properties)
				}
			}
			return nil
		},
	})

	var argsJSON string
	call := &cobra.Command{
		Use:   "call <tool>",
		Short: "Call a wallet tool with JSON arguments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.WalletCmd == "" {
				return errors.New("wallet_mcp_cmd is required")
			}
			var toolArgs map[string]any
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &toolArgs); err != nil {
					return fmt.Errorf("invalid --args JSON: %w", err)
				}
			}
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()
			out, err := app.Wallet(c.cfg).Call(ctx, args[0], toolArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	call.Flags().StringVar(&argsJSON, "args", "", "JSON object of tool arguments")
	cmd.AddCommand(call)
	return cmd
}
