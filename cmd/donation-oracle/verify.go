package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thaler-labs/donation-oracle/internal/chain"
	"github.com/thaler-labs/donation-oracle/internal/logging"
	"github.com/thaler-labs/donation-oracle/internal/oracle"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <tx-hash> <sender> <recipient> <min-amount>",
	Short: "Run one verification from the command line and exit",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.RPCURL == "" {
			return errors.New("RPC_URL is required")
		}
		log := logging.NewWithLevel(cfg.LogLevel)

		// The CLI arguments are the direct positional wire shape.
		params, err := json.Marshal(args)
		if err != nil {
			return err
		}
		req, err := oracle.NormalizeDirect(params)
		if err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}

		cli, err := chain.Dial(cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect chain rpc: %w", err)
		}

		verifier := oracle.NewVerifier(cli, cfg, log, nil)
		if !verifier.Verify(cmd.Context(), req) {
			return errors.New("verdict: INVALID")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "verdict: VALID")
		return nil
	},
}
