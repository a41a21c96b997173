package channels

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/momobot/momo/pkg/commands"
	"github.com/momobot/momo/pkg/config"
	"github.com/momobot/momo/pkg/logger"
)

const (
	tokenURL          = "https://discord.com/api/oauth2/token"
	scopeCommandsEdit = "applications.commands.update"
)

// NewDeploySession returns a REST-only session for command registration.
// With a client secret the session authenticates as the application owner
// through the client-credentials grant; otherwise it uses the bot token.
func NewDeploySession(ctx context.Context, cfg config.DiscordConfig) (*discordgo.Session, error) {
	return newDeploySession(ctx, cfg, tokenURL)
}

func newDeploySession(ctx context.Context, cfg config.DiscordConfig, tokenURL string) (*discordgo.Session, error) {
	auth := "Bot " + cfg.Token
	if cfg.ClientSecret != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{scopeCommandsEdit},
		}
		tok, err := cc.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("client credentials grant: %w", err)
		}
		auth = "Bearer " + tok.AccessToken
	}

	session, err := discordgo.New(auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return session, nil
}

// Deploy replaces the application's commands with defs. An empty guildID
// registers them globally.
func Deploy(ctx context.Context, session *discordgo.Session, appID, guildID string, defs []commands.Definition) (int, error) {
	cmds := ApplicationCommands(defs)

	logger.InfoCF("discord", "Started refreshing application (/) commands", map[string]any{
		"count":    len(cmds),
		"guild_id": guildID,
	})
	for _, cmd := range cmds {
		logger.DebugCF("discord", "Registering command", map[string]any{"command": cmd.Name})
	}

	registered, err := session.ApplicationCommandBulkOverwrite(appID, guildID, cmds, discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("bulk overwrite commands: %w", classifyError(err))
	}

	logger.InfoCF("discord", "Successfully reloaded application (/) commands", map[string]any{
		"count": len(registered),
	})
	return len(registered), nil
}

// ApplicationCommands converts registry definitions to chat-input commands.
func ApplicationCommands(defs []commands.Definition) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(defs))
	for _, d := range defs {
		cmd := &discordgo.ApplicationCommand{
			Type:        discordgo.ChatApplicationCommand,
			Name:        d.Name,
			Description: d.Description,
		}
		if len(d.NameLocalizations) > 0 {
			loc := make(map[discordgo.Locale]string, len(d.NameLocalizations))
			for k, v := range d.NameLocalizations {
				loc[discordgo.Locale(k)] = v
			}
			cmd.NameLocalizations = &loc
		}
		for _, o := range d.Options {
			opt := &discordgo.ApplicationCommandOption{
				Type:        optionType(o.Type),
				Name:        o.Name,
				Description: o.Description,
				Required:    o.Required,
				MinValue:    o.MinValue,
			}
			if o.MaxValue != nil {
				opt.MaxValue = *o.MaxValue
			}
			cmd.Options = append(cmd.Options, opt)
		}
		out = append(out, cmd)
	}
	return out
}

func optionType(t commands.OptionType) discordgo.ApplicationCommandOptionType {
	switch t {
	case commands.OptionInteger:
		return discordgo.ApplicationCommandOptionInteger
	case commands.OptionUser:
		return discordgo.ApplicationCommandOptionUser
	default:
		return discordgo.ApplicationCommandOptionString
	}
}
