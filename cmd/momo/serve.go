package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/momobot/momo/pkg/bus"
	"github.com/momobot/momo/pkg/channels"
	"github.com/momobot/momo/pkg/commands"
	"github.com/momobot/momo/pkg/config"
	"github.com/momobot/momo/pkg/dedup"
	"github.com/momobot/momo/pkg/logger"
	"github.com/momobot/momo/pkg/persona"
	"github.com/momobot/momo/pkg/providers"
	"github.com/momobot/momo/pkg/router"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the gateway and handle events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if err := cfg.ValidateServe(); err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

// warnOpenChat flags a deployment that answers free chat in every channel.
func warnOpenChat(rt *router.Router) {
	if rt.ChatChannelID() != "" {
		return
	}
	logger.WarnCF("momo", "CHANNEL_ID is not set, free chat is answered in every channel", map[string]any{
		"env": "CHANNEL_ID",
	})
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := persona.Load(cfg.PersonaFile)
	if err != nil {
		return err
	}

	completer, err := providers.New(ctx, cfg.Completion)
	if err != nil {
		return fmt.Errorf("create completion backend: %w", err)
	}

	eb := bus.NewEventBus()
	defer eb.Close()

	discord, err := channels.NewDiscordChannel(cfg.Discord, eb)
	if err != nil {
		return err
	}

	registry, _ := commands.Load(commands.Builtins(commands.Deps{
		Completer: completer,
		Persona:   p,
		Members:   discord,
		Latency:   discord,
	}))
	logger.InfoCF("momo", "Commands loaded", map[string]any{"count": registry.Len()})

	joins := dedup.New(dedup.DefaultWindow)
	defer joins.Stop()

	rt := router.New(router.Config{
		ChatChannelID:    cfg.Discord.ChatChannelID,
		WelcomeChannelID: cfg.Discord.WelcomeChannelID,
	}, registry, completer, discord, p, joins)

	warnOpenChat(rt)

	if err := discord.Start(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		rt.Run(ctx, eb)
	}()

	logger.InfoCF("momo", "MoMo is online", map[string]any{
		"backend": cfg.Completion.Backend,
		"model":   cfg.Completion.Model,
	})

	<-ctx.Done()
	logger.InfoC("momo", "Shutting down")

	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.WarnC("momo", "Handlers still running at shutdown timeout")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return discord.Stop(stopCtx)
}
