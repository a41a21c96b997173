package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/momobot/momo/pkg/channels"
	"github.com/momobot/momo/pkg/commands"
	"github.com/momobot/momo/pkg/config"
	"github.com/momobot/momo/pkg/logger"
)

var deployGuild string

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Register slash commands with Discord",
	Long: `Replace the application's slash commands with MoMo's built-in set.
Commands are registered globally unless GUILD_ID or --guild is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if deployGuild != "" {
			cfg.Discord.GuildID = deployGuild
		}
		if err := cfg.ValidateDeploy(); err != nil {
			return err
		}
		return deploy(cmd.Context(), cfg)
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployGuild, "guild", "", "register commands in this guild only")
}

func deploy(ctx context.Context, cfg *config.Config) error {
	registry, _ := commands.Load(commands.Builtins(commands.Deps{}))

	session, err := channels.NewDeploySession(ctx, cfg.Discord)
	if err != nil {
		return err
	}

	n, err := channels.Deploy(ctx, session, cfg.Discord.ClientID, cfg.Discord.GuildID, registry.Definitions())
	if err != nil {
		logger.ErrorCF("momo", "Error deploying commands", map[string]any{"error": err.Error()})
		return err
	}
	logger.InfoCF("momo", "Deploy finished", map[string]any{"registered": n})
	return nil
}
