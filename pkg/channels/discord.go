// Package channels adapts a discordgo session to the bus: gateway events
// become bus events, and bus reply sinks become REST calls.
package channels

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/momobot/momo/pkg/bus"
	"github.com/momobot/momo/pkg/config"
	"github.com/momobot/momo/pkg/logger"
)

const (
	sendTimeout       = 10 * time.Second
	typingInterval    = 8 * time.Second
	typingMaxDuration = 5 * time.Minute
)

// Intents the bot identifies with. MessageContent and GuildMembers are
// privileged and must be enabled for the application.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildVoiceStates

type DiscordChannel struct {
	session *discordgo.Session
	config  config.DiscordConfig
	bus     *bus.EventBus
	ctx     context.Context
	running atomic.Bool

	typingMu    sync.Mutex
	typingTasks map[uint64]context.CancelFunc
	typingSeq   uint64
}

func NewDiscordChannel(cfg config.DiscordConfig, eb *bus.EventBus) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = Intents

	return &DiscordChannel{
		session:     session,
		config:      cfg,
		bus:         eb,
		ctx:         context.Background(),
		typingTasks: make(map[uint64]context.CancelFunc),
	}, nil
}

func (c *DiscordChannel) getContext() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c *DiscordChannel) IsRunning() bool { return c.running.Load() }

// Start opens the gateway. Events are published to the bus until Stop.
func (c *DiscordChannel) Start(ctx context.Context) error {
	logger.InfoC("discord", "Starting Discord bot")

	c.ctx = ctx
	c.session.AddHandler(c.handleMessage)
	c.session.AddHandler(c.handleInteraction)
	c.session.AddHandler(c.handleMemberAdd)
	c.session.AddHandler(c.handleVoiceState)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	c.running.Store(true)

	botUser, err := c.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return c.abortStart(fmt.Errorf("failed to get bot user: %w", err))
	}
	logger.InfoCF("discord", "Discord bot connected", map[string]any{
		"username": botUser.Username,
		"user_id":  botUser.ID,
		"guild_id": c.config.GuildID,
	})
	return nil
}

// abortStart closes a session opened by a Start that then failed.
func (c *DiscordChannel) abortStart(err error) error {
	c.running.Store(false)
	if cerr := c.session.Close(); cerr != nil {
		logger.WarnCF("discord", "Failed to close session after start error", map[string]any{
			"error": cerr.Error(),
		})
	}
	return err
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	logger.InfoC("discord", "Stopping Discord bot")
	c.running.Store(false)
	c.stopAllTyping()

	if err := c.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	return nil
}

// GatewayLatency is the last heartbeat round trip.
func (c *DiscordChannel) GatewayLatency() time.Duration {
	return c.session.HeartbeatLatency()
}

// SendToChannel posts a plain message to channelID.
func (c *DiscordChannel) SendToChannel(ctx context.Context, channelID, content string) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord bot not running")
	}
	if channelID == "" {
		return fmt.Errorf("channel ID is empty")
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	for _, chunk := range splitMessage(content, maxMessageLength) {
		if _, err := c.session.ChannelMessageSend(channelID, chunk, discordgo.WithContext(sendCtx)); err != nil {
			return fmt.Errorf("failed to send discord message: %w", classifyError(err))
		}
	}
	return nil
}

// Member looks up a guild member for the profile command.
func (c *DiscordChannel) Member(ctx context.Context, guildID, userID string) (*bus.MemberProfile, error) {
	m, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch member %s: %w", userID, classifyError(err))
	}
	return memberProfile(m), nil
}

func (c *DiscordChannel) publish(ev bus.Event) {
	if !c.bus.Publish(c.getContext(), ev) {
		logger.WarnCF("discord", "Event dropped, bus closed", map[string]any{
			"event_id": ev.Metadata().ID,
		})
	}
}

func newMeta(guildID, channelID string, author *discordgo.User, created time.Time) bus.Meta {
	meta := bus.Meta{
		ID:        uuid.NewString(),
		GuildID:   guildID,
		ChannelID: channelID,
		CreatedAt: created,
	}
	if author != nil {
		meta.AuthorID = author.ID
		meta.AuthorName = author.Username
		meta.AuthorIsBot = author.Bot
	}
	return meta
}

func (c *DiscordChannel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	ev := &bus.TextMessage{
		Meta:      newMeta(m.GuildID, m.ChannelID, m.Author, m.Timestamp),
		MessageID: m.ID,
		Content:   m.Content,
		Channel:   c.textChannel(m.ChannelID),
	}

	logger.DebugCF("discord", "Received message", map[string]any{
		"event_id":   ev.ID,
		"sender_id":  ev.AuthorID,
		"channel_id": ev.ChannelID,
		"preview":    truncate(m.Content, 50),
	})
	c.publish(ev)
}

func (c *DiscordChannel) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()

	var author *discordgo.User
	var perms bus.Permission
	switch {
	case i.Member != nil:
		author = i.Member.User
		perms = bus.Permission(i.Member.Permissions)
	case i.User != nil:
		author = i.User
	}

	created, err := discordgo.SnowflakeTimestamp(i.ID)
	if err != nil {
		created = time.Now()
	}

	ev := &bus.CommandInvocation{
		Meta:        newMeta(i.GuildID, i.ChannelID, author, created),
		Name:        data.Name,
		Options:     commandOptions(data),
		Permissions: perms,
		Interaction: &interaction{session: s, ic: i.Interaction},
		Channel:     c.textChannel(i.ChannelID),
	}

	logger.DebugCF("discord", "Received command", map[string]any{
		"event_id": ev.ID,
		"command":  ev.Name,
		"user_id":  ev.AuthorID,
	})
	c.publish(ev)
}

func (c *DiscordChannel) handleMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m == nil || m.Member == nil || m.User == nil {
		return
	}
	c.publish(&bus.MemberJoin{
		Meta:     newMeta(m.GuildID, "", m.User, m.JoinedAt),
		Username: m.User.Username,
	})
}

func (c *DiscordChannel) handleVoiceState(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v == nil || !isVoiceJoin(v) {
		return
	}

	var author *discordgo.User
	if v.Member != nil && v.Member.User != nil {
		author = v.Member.User
	} else {
		author = &discordgo.User{ID: v.UserID}
	}

	ev := &bus.VoiceJoin{
		Meta:           newMeta(v.GuildID, v.ChannelID, author, time.Now()),
		Username:       author.Username,
		VoiceChannelID: v.ChannelID,
	}
	if s.State != nil {
		if ch, err := s.State.Channel(v.ChannelID); err == nil {
			ev.VoiceChannelName = ch.Name
		}
	}
	c.publish(ev)
}

// isVoiceJoin reports a connect from no voice channel. Moves between
// channels and mute or deafen toggles are not joins.
func isVoiceJoin(v *discordgo.VoiceStateUpdate) bool {
	if v.VoiceState == nil || v.ChannelID == "" {
		return false
	}
	return v.BeforeUpdate == nil || v.BeforeUpdate.ChannelID == ""
}

// commandOptions flattens top-level options into plain values: strings,
// int64, and *bus.User for user options.
func commandOptions(data discordgo.ApplicationCommandInteractionData) map[string]any {
	if len(data.Options) == 0 {
		return nil
	}
	opts := make(map[string]any, len(data.Options))
	for _, o := range data.Options {
		if o == nil {
			continue
		}
		switch o.Type {
		case discordgo.ApplicationCommandOptionInteger:
			if f, ok := o.Value.(float64); ok {
				opts[o.Name] = int64(f)
				continue
			}
			opts[o.Name] = o.Value
		case discordgo.ApplicationCommandOptionUser:
			id, _ := o.Value.(string)
			u := &bus.User{ID: id}
			if data.Resolved != nil {
				if ru, ok := data.Resolved.Users[id]; ok && ru != nil {
					u.Username = ru.Username
				}
			}
			opts[o.Name] = u
		default:
			opts[o.Name] = o.Value
		}
	}
	return opts
}

func memberProfile(m *discordgo.Member) *bus.MemberProfile {
	p := &bus.MemberProfile{JoinedAt: m.JoinedAt}
	if m.User != nil {
		p.ID = m.User.ID
		p.Username = m.User.Username
		p.Tag = userTag(m.User)
		p.AvatarURL = m.User.AvatarURL("256")
		if created, err := discordgo.SnowflakeTimestamp(m.User.ID); err == nil {
			p.CreatedAt = created
		}
	}
	for _, id := range m.Roles {
		p.Roles = append(p.Roles, "<@&"+id+">")
	}
	return p
}

func userTag(u *discordgo.User) string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// startTyping refreshes the typing indicator in channelID until stop is
// called or typingMaxDuration passes. Each call is its own task.
func (c *DiscordChannel) startTyping(channelID string) (stop func()) {
	ctx, cancel := context.WithTimeout(context.Background(), typingMaxDuration)

	c.typingMu.Lock()
	c.typingSeq++
	taskID := c.typingSeq
	c.typingTasks[taskID] = cancel
	c.typingMu.Unlock()

	go c.refreshTyping(ctx, taskID, channelID)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.cleanupTypingTask(taskID)
			cancel()
		})
	}
}

func (c *DiscordChannel) refreshTyping(ctx context.Context, taskID uint64, channelID string) {
	defer c.cleanupTypingTask(taskID)

	ticker := time.NewTicker(typingInterval)
	defer ticker.Stop()

	for {
		err := c.session.ChannelTyping(channelID, discordgo.WithContext(ctx))
		if err != nil && ctx.Err() == nil {
			logger.DebugCF("discord", "Typing refresh failed", map[string]any{
				"typing_task": taskID,
				"channel_id":  channelID,
				"error":       err.Error(),
			})
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				logger.DebugCF("discord", "Typing task expired", map[string]any{
					"typing_task": taskID,
					"channel_id":  channelID,
				})
			}
			return
		case <-ticker.C:
		}
	}
}

func (c *DiscordChannel) cleanupTypingTask(taskID uint64) {
	c.typingMu.Lock()
	delete(c.typingTasks, taskID)
	c.typingMu.Unlock()
}

func (c *DiscordChannel) stopAllTyping() {
	c.typingMu.Lock()
	cancellers := make([]context.CancelFunc, 0, len(c.typingTasks))
	for id, cancel := range c.typingTasks {
		cancellers = append(cancellers, cancel)
		delete(c.typingTasks, id)
	}
	c.typingMu.Unlock()

	for _, cancel := range cancellers {
		cancel()
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
