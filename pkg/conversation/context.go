// Package conversation turns recent channel history into the conversation
// text that precedes the user's message in a completion prompt.
package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/momobot/momo/pkg/bus"
)

// HistoryLimit is how many recent messages are fetched per prompt.
const HistoryLimit = 15

// CommandPrefix marks legacy text commands, which never enter a prompt.
const CommandPrefix = "!"

// BuildContext fetches the channel's recent history and serializes the
// lines that belong in the prompt, oldest first, one per line. Only the
// triggering author's own messages are kept. The trigger itself is
// included when the fetch already sees it.
//
// An empty result is not an error.
func BuildContext(ctx context.Context, source bus.HistorySource, trigger *bus.TextMessage) (string, error) {
	recent, err := source.Recent(ctx, HistoryLimit)
	if err != nil {
		return "", fmt.Errorf("fetch channel history: %w", err)
	}
	if len(recent) > HistoryLimit {
		recent = recent[:HistoryLimit]
	}

	var sb strings.Builder
	for i := len(recent) - 1; i >= 0; i-- {
		msg := recent[i]
		if strings.HasPrefix(msg.Content, CommandPrefix) {
			continue
		}
		if msg.AuthorID != trigger.AuthorID {
			continue
		}
		sb.WriteString(msg.Content)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
