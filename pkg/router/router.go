// Package router maps inbound events to handlers: slash commands by name,
// free-chat messages to the completion pipeline, joins to notices.
package router

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/momobot/momo/pkg/bus"
	"github.com/momobot/momo/pkg/commands"
	"github.com/momobot/momo/pkg/conversation"
	"github.com/momobot/momo/pkg/dedup"
	"github.com/momobot/momo/pkg/logger"
	"github.com/momobot/momo/pkg/persona"
	"github.com/momobot/momo/pkg/providers"
)

// Decision is the outcome of RouteMessage.
type Decision int

const (
	Ignore Decision = iota
	Handle
)

func (d Decision) String() string {
	if d == Handle {
		return "handle"
	}
	return "ignore"
}

// HandlerError wraps a failed or panicking command handler.
type HandlerError struct {
	Command string
	Err     error
	Panic   any
}

func (e *HandlerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("command %s panicked: %v", e.Command, e.Panic)
	}
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

type Config struct {
	// ChatChannelID gates the free-chat path. Empty means every channel.
	ChatChannelID string
	// WelcomeChannelID receives join notices. Empty disables them.
	WelcomeChannelID string
}

// Router owns the state shared across events: the read-only registry and
// the join deduplication window.
type Router struct {
	cfg       Config
	registry  *commands.Registry
	completer providers.Completer
	notifier  bus.Notifier
	persona   persona.Persona
	joins     *dedup.Window

	tasks sync.WaitGroup
}

func New(cfg Config, registry *commands.Registry, completer providers.Completer, notifier bus.Notifier, p persona.Persona, joins *dedup.Window) *Router {
	if joins == nil {
		joins = dedup.New(dedup.DefaultWindow)
	}
	return &Router{
		cfg:       cfg,
		registry:  registry,
		completer: completer,
		notifier:  notifier,
		persona:   p,
		joins:     joins,
	}
}

// ChatChannelID is the channel free chat is limited to, or empty for all.
func (r *Router) ChatChannelID() string { return r.cfg.ChatChannelID }

// RouteCommand looks a command up by exact name. A miss is logged and
// nothing is sent back.
func (r *Router) RouteCommand(name string) (commands.Command, bool) {
	cmd, ok := r.registry.Get(name)
	if !ok {
		logger.WarnCF("router", "No command matching name was found", map[string]any{"command": name})
	}
	return cmd, ok
}

// RouteMessage decides whether a plain message gets a completion reply.
func (r *Router) RouteMessage(msg *bus.TextMessage) Decision {
	switch {
	case msg.AuthorIsBot:
		return Ignore
	case r.cfg.ChatChannelID != "" && msg.ChannelID != r.cfg.ChatChannelID:
		return Ignore
	case strings.HasPrefix(msg.Content, conversation.CommandPrefix):
		return Ignore
	default:
		return Handle
	}
}

// HandleCommand runs one invocation to a terminal state. Handler failures
// become the persona's apology through whichever reply path is still open.
func (r *Router) HandleCommand(ctx context.Context, inv *bus.CommandInvocation) {
	cmd, ok := r.RouteCommand(inv.Name)
	if !ok {
		return
	}

	call := commands.NewCall(inv, r.registry)
	call.Begin()

	if err := r.execute(ctx, cmd, call); err != nil {
		logger.ErrorCF("router", "Error executing command", map[string]any{
			"command":  inv.Name,
			"event_id": inv.ID,
			"user_id":  inv.AuthorID,
			"state":    call.State().String(),
			"error":    err.Error(),
		})
		if aerr := call.Apologize(ctx, bus.Reply{Content: r.persona.CommandApology, Ephemeral: true}); aerr != nil {
			logger.ErrorCF("router", "Failed to send apology", map[string]any{
				"command": inv.Name,
				"error":   aerr.Error(),
			})
		}
		return
	}

	logger.DebugCF("router", "Command completed", map[string]any{
		"command": inv.Name,
		"state":   call.State().String(),
	})
}

func (r *Router) execute(ctx context.Context, cmd commands.Command, call *commands.Call) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.DebugCF("router", "Recovered handler panic", map[string]any{"stack": string(debug.Stack())})
			err = &HandlerError{Command: cmd.Definition.Name, Panic: p}
		}
	}()
	if herr := cmd.Handler(ctx, call); herr != nil {
		return &HandlerError{Command: cmd.Definition.Name, Err: herr}
	}
	return nil
}

// HandleMessage runs the free-chat pipeline for a message RouteMessage
// accepted: history → prompt → completion → reply.
func (r *Router) HandleMessage(ctx context.Context, msg *bus.TextMessage) {
	stop := msg.Channel.Typing(ctx)
	defer stop()

	reply := r.persona.Apology
	text, err := r.complete(ctx, msg)
	if err != nil {
		logger.ErrorCF("router", "Free-chat reply failed", map[string]any{
			"event_id":   msg.ID,
			"channel_id": msg.ChannelID,
			"user_id":    msg.AuthorID,
			"error":      err.Error(),
		})
	} else {
		reply = text
	}

	if err := msg.Channel.Reply(ctx, msg.MessageID, reply); err != nil {
		logger.ErrorCF("router", "Failed to send reply", map[string]any{
			"event_id":   msg.ID,
			"channel_id": msg.ChannelID,
			"error":      err.Error(),
		})
	}
}

func (r *Router) complete(ctx context.Context, msg *bus.TextMessage) (string, error) {
	history, err := conversation.BuildContext(ctx, msg.Channel, msg)
	if err != nil {
		return "", err
	}
	req := providers.NewPromptRequest(r.persona.Instruction, r.persona.Speaker, msg.Content).WithHistory(history)
	return r.completer.Complete(ctx, req)
}

// admitJoin applies the deduplication window to a join event.
func (r *Router) admitJoin(kind, userID string) bool {
	if r.joins.Admit(kind + ":" + userID) {
		return true
	}
	logger.DebugCF("router", "Duplicate join suppressed", map[string]any{"kind": kind, "user_id": userID})
	return false
}

// HandleMemberJoin posts the welcome message.
func (r *Router) HandleMemberJoin(ctx context.Context, ev *bus.MemberJoin) {
	r.notify(ctx, "member_join", ev.AuthorID, r.persona.WelcomeText(ev.Username))
}

// HandleVoiceJoin posts the voice-join notice.
func (r *Router) HandleVoiceJoin(ctx context.Context, ev *bus.VoiceJoin) {
	channel := ev.VoiceChannelName
	if channel == "" {
		channel = "<#" + ev.VoiceChannelID + ">"
	}
	r.notify(ctx, "voice_join", ev.AuthorID, r.persona.VoiceJoinText(ev.Username, channel))
}

func (r *Router) notify(ctx context.Context, kind, userID, content string) {
	if r.cfg.WelcomeChannelID == "" {
		logger.WarnCF("router", "Welcome channel not configured, join ignored", map[string]any{
			"kind":    kind,
			"user_id": userID,
		})
		return
	}
	if err := r.notifier.SendToChannel(ctx, r.cfg.WelcomeChannelID, content); err != nil {
		logger.ErrorCF("router", "Error sending welcome message", map[string]any{
			"kind":       kind,
			"user_id":    userID,
			"channel_id": r.cfg.WelcomeChannelID,
			"error":      err.Error(),
		})
	}
}
