package bus

import (
	"context"
	"errors"
	"time"
)

// Event is one inbound platform event. The set of implementations is
// closed: *CommandInvocation, *TextMessage, *MemberJoin and *VoiceJoin.
type Event interface {
	Metadata() Meta
	event()
}

// Meta is carried by every event.
type Meta struct {
	ID          string    `json:"id"`
	GuildID     string    `json:"guild_id,omitempty"`
	ChannelID   string    `json:"channel_id"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name,omitempty"`
	AuthorIsBot bool      `json:"author_is_bot,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (m Meta) Metadata() Meta { return m }

// TextMessage is a plain message posted in a channel.
type TextMessage struct {
	Meta
	MessageID string `json:"message_id"`
	Content   string `json:"content"`

	Channel MessageChannel `json:"-"`
}

// CommandInvocation is a slash command issued by a member.
type CommandInvocation struct {
	Meta
	Name    string         `json:"name"`
	Options map[string]any `json:"options,omitempty"`
	// Permissions is the invoking member's permission bitset in the
	// invocation channel.
	Permissions Permission `json:"permissions"`

	Interaction Interaction    `json:"-"`
	Channel     MessageChannel `json:"-"`
}

// MemberJoin is a member joining the guild.
type MemberJoin struct {
	Meta
	Username string `json:"username"`
}

// VoiceJoin is a member connecting to a voice channel they were not
// connected to before.
type VoiceJoin struct {
	Meta
	Username         string `json:"username"`
	VoiceChannelID   string `json:"voice_channel_id"`
	VoiceChannelName string `json:"voice_channel_name,omitempty"`
}

func (*TextMessage) event()       {}
func (*CommandInvocation) event() {}
func (*MemberJoin) event()        {}
func (*VoiceJoin) event()         {}

// User is a user reference carried in command options.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// MemberProfile is a guild member as shown by the profile command.
type MemberProfile struct {
	ID        string
	Username  string
	Tag       string
	AvatarURL string
	JoinedAt  time.Time
	CreatedAt time.Time
	// Roles are pre-rendered role mentions.
	Roles []string
}

// Permission is a platform permission bitset.
type Permission int64

const PermissionManageMessages Permission = 1 << 13

func (p Permission) Has(flag Permission) bool { return p&flag == flag }

// HistoryMessage is a message read back from channel history.
type HistoryMessage struct {
	ID        string
	AuthorID  string
	Content   string
	Pinned    bool
	CreatedAt time.Time
}

// HistorySource returns up to limit of the most recent messages in a
// channel, newest first.
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]HistoryMessage, error)
}

// MessageChannel is the reply sink for events tied to a text channel.
type MessageChannel interface {
	HistorySource
	// Reply answers the message with the given id.
	Reply(ctx context.Context, messageID, content string) error
	Typing(ctx context.Context) (stop func())
	Delete(ctx context.Context, messageIDs []string) error
}

// Interaction is the reply sink for a slash command. Respond and Defer may
// be called at most once between them; EditResponse and Followup require
// one of them first.
type Interaction interface {
	Respond(ctx context.Context, reply Reply) error
	Defer(ctx context.Context, ephemeral bool) error
	EditResponse(ctx context.Context, reply Reply) error
	Followup(ctx context.Context, reply Reply) error
}

// Notifier posts to a channel not tied to any event.
type Notifier interface {
	SendToChannel(ctx context.Context, channelID, content string) error
}

// Reply is a platform-neutral response body.
type Reply struct {
	Content   string
	Embeds    []Embed
	Ephemeral bool
}

type Embed struct {
	Title       string
	Description string
	Color       int
	Thumbnail   string
	Fields      []EmbedField
	Footer      string
	Timestamp   time.Time
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Platform errors surfaced by the adapter.
var (
	ErrPermissionDenied  = errors.New("missing platform permission")
	ErrAgeLimitExceeded  = errors.New("target content too old")
	ErrUnknownEventShape = errors.New("unknown event shape")
)
