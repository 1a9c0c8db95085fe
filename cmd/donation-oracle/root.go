package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thaler-labs/donation-oracle/internal/config"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:   "donation-oracle",
		Short: "Oracle bridge verifying donation transactions for zk foreign calls",
	}
)

func init() {
	cobra.EnableCommandSorting = false

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to config file (defaults to environment variables)")

	rootCmd.AddCommand(
		versionCmd,
		serveCmd,
		verifyCmd,
	)
}

// loadConfig reads the YAML config when --config is given, otherwise the
// environment.
func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	return config.FromEnv()
}

// Execute runs the root command tree.
func Execute() error {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
