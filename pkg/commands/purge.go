package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/momobot/momo/pkg/bus"
)

// BulkDeleteMaxAge is the platform's limit on bulk-deletable message age.
const BulkDeleteMaxAge = 14 * 24 * time.Hour

// purgeHandler deletes recent messages. optionName carries the amount;
// defaultAmount applies when the option is absent.
func purgeHandler(d Deps, optionName string, defaultAmount int) Handler {
	return func(ctx context.Context, call *Call) error {
		inv := call.Invocation
		if !inv.Permissions.Has(bus.PermissionManageMessages) {
			return call.Reply(ctx, bus.Reply{Content: d.Persona.PermissionDenied, Ephemeral: true})
		}

		amount := defaultAmount
		if v, ok := call.OptInt(optionName); ok && v > 0 {
			amount = int(v)
		}
		if amount < 1 || amount > 100 {
			return fmt.Errorf("purge amount %d outside 1..100", amount)
		}

		msgs, err := inv.Channel.Recent(ctx, amount)
		if err != nil {
			return fmt.Errorf("fetch messages to delete: %w", err)
		}

		now := d.now()
		ids := make([]string, 0, len(msgs))
		for _, m := range msgs {
			if m.Pinned || now.Sub(m.CreatedAt) >= BulkDeleteMaxAge {
				continue
			}
			ids = append(ids, m.ID)
		}

		if len(ids) == 0 {
			return call.Reply(ctx, bus.Reply{Content: d.Persona.NothingToDelete, Ephemeral: true})
		}

		if err := inv.Channel.Delete(ctx, ids); err != nil {
			switch {
			case errors.Is(err, bus.ErrAgeLimitExceeded):
				return call.Reply(ctx, bus.Reply{Content: d.Persona.AgeLimit, Ephemeral: true})
			case errors.Is(err, bus.ErrPermissionDenied):
				return call.Reply(ctx, bus.Reply{Content: d.Persona.PermissionDenied, Ephemeral: true})
			default:
				return fmt.Errorf("delete messages: %w", err)
			}
		}

		content := fmt.Sprintf("Đã xóa %d tin nhắn! ٩(◕‿◕｡)۶", len(ids))
		if len(ids) < amount {
			content += "\n(Một số tin nhắn quá cũ không thể xóa được)"
		}
		return call.Reply(ctx, bus.Reply{Content: content, Ephemeral: true})
	}
}
