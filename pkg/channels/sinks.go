package channels

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/momobot/momo/pkg/bus"
)

const maxMessageLength = 2000

// JSON error codes from the REST API.
const (
	codeMissingPermissions = 50013
	codeBulkDeleteTooOld   = 50034
)

// classifyError maps REST errors the handlers branch on to bus sentinels.
func classifyError(err error) error {
	var rerr *discordgo.RESTError
	if !errors.As(err, &rerr) || rerr.Message == nil {
		return err
	}
	switch rerr.Message.Code {
	case codeMissingPermissions:
		return fmt.Errorf("%w: %s", bus.ErrPermissionDenied, rerr.Message.Message)
	case codeBulkDeleteTooOld:
		return fmt.Errorf("%w: %s", bus.ErrAgeLimitExceeded, rerr.Message.Message)
	default:
		return err
	}
}

// textChannel is the bus.MessageChannel for one channel id.
type textChannel struct {
	c  *DiscordChannel
	id string
}

func (c *DiscordChannel) textChannel(channelID string) *textChannel {
	return &textChannel{c: c, id: channelID}
}

func (t *textChannel) Recent(ctx context.Context, limit int) ([]bus.HistoryMessage, error) {
	msgs, err := t.c.session.ChannelMessages(t.id, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, classifyError(err)
	}
	out := make([]bus.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		out = append(out, historyMessage(m))
	}
	return out, nil
}

func historyMessage(m *discordgo.Message) bus.HistoryMessage {
	h := bus.HistoryMessage{
		ID:        m.ID,
		Content:   m.Content,
		Pinned:    m.Pinned,
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		h.AuthorID = m.Author.ID
	}
	return h
}

// Reply answers messageID. Content over the message limit continues in
// plain follow-on messages.
func (t *textChannel) Reply(ctx context.Context, messageID, content string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	ref := &discordgo.MessageReference{MessageID: messageID, ChannelID: t.id}
	for i, chunk := range splitMessage(content, maxMessageLength) {
		var err error
		if i == 0 {
			_, err = t.c.session.ChannelMessageSendReply(t.id, chunk, ref, discordgo.WithContext(sendCtx))
		} else {
			_, err = t.c.session.ChannelMessageSend(t.id, chunk, discordgo.WithContext(sendCtx))
		}
		if err != nil {
			return fmt.Errorf("failed to send discord reply: %w", classifyError(err))
		}
	}
	return nil
}

func (t *textChannel) Typing(context.Context) func() {
	return t.c.startTyping(t.id)
}

// Delete removes messages. Bulk delete needs at least two ids.
func (t *textChannel) Delete(ctx context.Context, ids []string) error {
	var err error
	switch len(ids) {
	case 0:
		return nil
	case 1:
		err = t.c.session.ChannelMessageDelete(t.id, ids[0], discordgo.WithContext(ctx))
	default:
		err = t.c.session.ChannelMessagesBulkDelete(t.id, ids, discordgo.WithContext(ctx))
	}
	if err != nil {
		return fmt.Errorf("delete %d messages: %w", len(ids), classifyError(err))
	}
	return nil
}

// interaction is the bus.Interaction for one slash command.
type interaction struct {
	session *discordgo.Session
	ic      *discordgo.Interaction
}

func (i *interaction) Respond(ctx context.Context, r bus.Reply) error {
	err := i.session.InteractionRespond(i.ic, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: r.Content,
			Embeds:  toEmbeds(r.Embeds),
			Flags:   flags(r.Ephemeral),
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("respond to interaction: %w", classifyError(err))
	}
	return nil
}

func (i *interaction) Defer(ctx context.Context, ephemeral bool) error {
	err := i.session.InteractionRespond(i.ic, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags(ephemeral)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("defer interaction: %w", classifyError(err))
	}
	return nil
}

func (i *interaction) EditResponse(ctx context.Context, r bus.Reply) error {
	content := r.Content
	embeds := toEmbeds(r.Embeds)
	edit := &discordgo.WebhookEdit{Content: &content}
	if embeds != nil {
		edit.Embeds = &embeds
	}
	if _, err := i.session.InteractionResponseEdit(i.ic, edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit interaction response: %w", classifyError(err))
	}
	return nil
}

func (i *interaction) Followup(ctx context.Context, r bus.Reply) error {
	_, err := i.session.FollowupMessageCreate(i.ic, true, &discordgo.WebhookParams{
		Content: r.Content,
		Embeds:  toEmbeds(r.Embeds),
		Flags:   flags(r.Ephemeral),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send followup: %w", classifyError(err))
	}
	return nil
}

func flags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func toEmbeds(in []bus.Embed) []*discordgo.MessageEmbed {
	if len(in) == 0 {
		return nil
	}
	out := make([]*discordgo.MessageEmbed, 0, len(in))
	for _, e := range in {
		me := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		if e.Thumbnail != "" {
			me.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.Thumbnail}
		}
		if e.Footer != "" {
			me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		if !e.Timestamp.IsZero() {
			me.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
		}
		for _, f := range e.Fields {
			me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		out = append(out, me)
	}
	return out
}

// splitMessage cuts content into chunks of at most limit runes, preferring
// to break after a newline in the second half of a chunk.
func splitMessage(content string, limit int) []string {
	runes := []rune(content)
	if len(runes) <= limit {
		return []string{content}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		if nl := lastNewline(runes[:limit]); nl >= limit/2 {
			cut = nl + 1
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

func lastNewline(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == '\n' {
			return i
		}
	}
	return -1
}
