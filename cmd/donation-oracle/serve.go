package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thaler-labs/donation-oracle/internal/chain"
	"github.com/thaler-labs/donation-oracle/internal/health"
	"github.com/thaler-labs/donation-oracle/internal/logging"
	"github.com/thaler-labs/donation-oracle/internal/metrics"
	"github.com/thaler-labs/donation-oracle/internal/oracle"
	"github.com/thaler-labs/donation-oracle/internal/server"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the donation oracle server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log := logging.NewWithLevel(cfg.LogLevel)
		mtr := metrics.Init()

		var reader oracle.LedgerReader
		var pinger health.Pinger
		if cfg.RPCURL != "" {
			cli, err := chain.Dial(cfg.RPCURL)
			if err != nil {
				return fmt.Errorf("connect chain rpc: %w", err)
			}
			reader = cli
			pinger = cli
		} else {
			log.Warn("RPC_URL not configured; every verification will fail until it is set")
		}

		verifier := oracle.NewVerifier(reader, cfg, log, mtr)
		dispatcher := oracle.NewDispatcher(verifier, log, mtr)
		srv := server.New(cfg.ListenAddr(), dispatcher, health.NewRPCChecker(pinger), log)

		log.Info("oracle configured",
			"port", cfg.Port,
			"min_confirmations", cfg.MinConfirmations,
			"poll_max_attempts", cfg.PollMaxAttempts,
			"rpc_configured", cfg.RPCURL != "")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
