package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/momobot/momo/pkg/bus"
	"github.com/momobot/momo/pkg/logger"
	"github.com/momobot/momo/pkg/providers"
)

func aboutHandler() Handler {
	return func(ctx context.Context, call *Call) error {
		return call.Reply(ctx, bus.Reply{
			Ephemeral: true,
			Embeds: []bus.Embed{{
				Title:       "✨ MoMo Bot ✨",
				Description: "Một bot Discord dễ thương với tính cách anime!",
				Color:       embedColor,
				Fields: []bus.EmbedField{
					{Name: "🤖 Lệnh có sẵn", Value: "Dùng / để xem danh sách lệnh"},
					{Name: "💬 Chat", Value: "Dùng /chat để trò chuyện với MoMo"},
					{Name: "🗑️ Xóa tin nhắn", Value: "Dùng /xoa số_lượng để xóa tin nhắn"},
				},
				Footer: "MoMo Bot v2.0 ٩(◕‿◕｡)۶",
			}},
		})
	}
}

// chatHandler answers one message without channel history.
func chatHandler(d Deps) Handler {
	return func(ctx context.Context, call *Call) error {
		if err := call.Defer(ctx, false); err != nil {
			return err
		}
		message, _ := call.OptString("message")

		req := providers.NewPromptRequest(d.Persona.Instruction, d.Persona.Speaker, message)
		req.Flourish = d.Persona.Flourish

		text, err := d.Completer.Complete(ctx, req)
		if err != nil {
			logger.ErrorCF("commands", "Chat completion failed", map[string]any{
				"user_id": call.Invocation.AuthorID,
				"error":   err.Error(),
			})
			return call.Edit(ctx, bus.Reply{Content: d.Persona.Apology})
		}
		return call.Edit(ctx, bus.Reply{Content: text})
	}
}

func helpHandler() Handler {
	return func(ctx context.Context, call *Call) error {
		defs := call.Registry.Definitions()
		fields := make([]bus.EmbedField, 0, len(defs))
		for _, def := range defs {
			fields = append(fields, bus.EmbedField{Name: "/" + def.Name, Value: def.Description})
		}
		return call.Reply(ctx, bus.Reply{
			Ephemeral: true,
			Embeds: []bus.Embed{{
				Title:       "✨ Các lệnh của MoMo ✨",
				Description: "Sử dụng / để thực hiện lệnh",
				Color:       embedColor,
				Fields:      fields,
				Footer:      "MoMo Bot ٩(◕‿◕｡)۶",
			}},
		})
	}
}

func pingHandler(d Deps) Handler {
	return func(ctx context.Context, call *Call) error {
		if err := call.Reply(ctx, bus.Reply{Content: "Đang tính toán..."}); err != nil {
			return err
		}
		latency := d.now().Sub(call.Invocation.CreatedAt).Milliseconds()

		var api int64
		if d.Latency != nil {
			api = d.Latency.GatewayLatency().Milliseconds()
		}
		return call.Edit(ctx, bus.Reply{
			Content: fmt.Sprintf("🏓 Pong!\nĐộ trễ bot: %dms\nĐộ trễ API: %dms", latency, api),
		})
	}
}

// profileHandler reports its own failures to the user instead of leaving
// them to the router.
func profileHandler(d Deps) Handler {
	return func(ctx context.Context, call *Call) error {
		inv := call.Invocation
		targetID := inv.AuthorID
		if u, ok := call.OptUser("thanhvien"); ok {
			targetID = u.ID
		}

		member, err := d.Members.Member(ctx, inv.GuildID, targetID)
		if err != nil {
			logger.ErrorCF("commands", "Error executing profile command", map[string]any{
				"target_id": targetID,
				"error":     err.Error(),
			})
			return call.Reply(ctx, bus.Reply{Content: d.Persona.ProfileError, Ephemeral: true})
		}

		roles := strings.Join(member.Roles, ", ")
		if roles == "" {
			roles = "Không có vai trò"
		}
		err = call.Reply(ctx, bus.Reply{Embeds: []bus.Embed{{
			Title:     "Hồ sơ của " + member.Username,
			Color:     embedColor,
			Thumbnail: member.AvatarURL,
			Fields: []bus.EmbedField{
				{Name: "🏷️ Tên người dùng", Value: member.Tag, Inline: true},
				{Name: "🆔 ID", Value: member.ID, Inline: true},
				{Name: "📅 Ngày tham gia", Value: relativeTime(member.JoinedAt.Unix()), Inline: true},
				{Name: "📆 Ngày tạo tài khoản", Value: relativeTime(member.CreatedAt.Unix()), Inline: true},
				{Name: "🎭 Vai trò", Value: roles},
			},
			Footer:    "MoMo Bot ٩(◕‿◕｡)۶",
			Timestamp: d.now(),
		}}})
		if err != nil {
			return err
		}

		logger.InfoCF("commands", "Profile command executed", map[string]any{
			"executor": inv.AuthorName,
			"target":   member.Tag,
		})
		return nil
	}
}

// relativeTime renders a Discord relative timestamp tag.
func relativeTime(unix int64) string {
	return fmt.Sprintf("<t:%d:R>", unix)
}
