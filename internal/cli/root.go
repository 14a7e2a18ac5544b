// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"fmt"
	"os"

	log "github.com/luxfi/log"
	"github.com/luxfi/log/level"
	"github.com/spf13/cobra"

	"github.com/luxfi/alchemist/internal/config"
)

var (
	// Global flags
	configFile string
	envFiles   []string
	debug      bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "alchemist",
	Short: "alchemist - self-repaying loan engine",
	Long: `alchemist runs the collateralized debt engine against in-process token,
oracle and transmuter hosts. Scenarios are read from a YAML config and every
engine call goes through the precompile ABI, so gas and logs are reported the
way a chain would see them.`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "scenario configuration file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before the config")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
}

func newLogger() log.Logger {
	switch {
	case debug:
		return log.NewTestLogger(level.Debug)
	case quiet:
		return log.NewTestLogger(level.Error)
	default:
		return log.NewTestLogger(level.Info)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile, envFiles...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
