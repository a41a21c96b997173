// MoMo
//
// A Discord companion bot: slash commands, free chat through a Gemini
// completion backend, and welcome notices.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/momobot/momo/pkg/config"
	"github.com/momobot/momo/pkg/logger"
)

var (
	version = "dev"
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "momo",
	Short: "MoMo - Discord companion bot",
	Long: `MoMo answers slash commands, chats in the configured channel and
welcomes new members. Configuration comes from the environment or a .env
file in the working directory.

  momo serve     Connect to the gateway and handle events (default)
  momo deploy    Register slash commands with Discord`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          serveCmd.RunE,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd, deployCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and initializes logging for a subcommand.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Debug = true
	}
	if err := logger.Init(logger.Options{Debug: cfg.Debug, Dir: cfg.LogDir}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}
