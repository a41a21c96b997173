package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momobot/momo/pkg/bus"
)

type fakeHistory struct {
	msgs      []bus.HistoryMessage // newest first
	err       error
	lastLimit int
	calls     int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]bus.HistoryMessage, error) {
	f.calls++
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if len(f.msgs) > limit {
		return f.msgs[:limit], nil
	}
	return f.msgs, nil
}

func newestFirst(msgs ...bus.HistoryMessage) []bus.HistoryMessage {
	out := make([]bus.HistoryMessage, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}

func trigger(author string) *bus.TextMessage {
	return &bus.TextMessage{Meta: bus.Meta{AuthorID: author}, Content: "now"}
}

func TestBuildContext_ChronologicalSingleAuthor(t *testing.T) {
	src := &fakeHistory{msgs: newestFirst(
		bus.HistoryMessage{AuthorID: "u1", Content: "first"},
		bus.HistoryMessage{AuthorID: "bot", Content: "bot reply"},
		bus.HistoryMessage{AuthorID: "u2", Content: "someone else"},
		bus.HistoryMessage{AuthorID: "u1", Content: "!legacy"},
		bus.HistoryMessage{AuthorID: "u1", Content: "second"},
	)}

	got, err := BuildContext(context.Background(), src, trigger("u1"))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", got)
	assert.Equal(t, HistoryLimit, src.lastLimit)
	assert.Equal(t, 1, src.calls)
}

func TestBuildContext_Empty(t *testing.T) {
	got, err := BuildContext(context.Background(), &fakeHistory{}, trigger("u1"))
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestBuildContext_FullyFiltered(t *testing.T) {
	src := &fakeHistory{msgs: newestFirst(
		bus.HistoryMessage{AuthorID: "u2", Content: "hello"},
		bus.HistoryMessage{AuthorID: "u1", Content: "!ping"},
	)}

	got, err := BuildContext(context.Background(), src, trigger("u1"))
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestBuildContext_NeverLeaksOtherAuthorsOrCommands(t *testing.T) {
	authors := []string{"u1", "u2", "u3"}
	for n := 0; n <= HistoryLimit; n++ {
		var msgs []bus.HistoryMessage
		for i := 0; i < n; i++ {
			author := authors[i%len(authors)]
			content := fmt.Sprintf("%s-msg-%d", author, i)
			if i%4 == 0 {
				content = "!" + content
			}
			msgs = append(msgs, bus.HistoryMessage{AuthorID: author, Content: content})
		}

		got, err := BuildContext(context.Background(), &fakeHistory{msgs: msgs}, trigger("u1"))
		require.NoError(t, err)
		for _, line := range strings.Split(strings.TrimSuffix(got, "\n"), "\n") {
			if line == "" {
				continue
			}
			assert.True(t, strings.HasPrefix(line, "u1-"), "n=%d line=%q", n, line)
		}
	}
}

func TestBuildContext_IncludesTriggerWhenFetched(t *testing.T) {
	src := &fakeHistory{msgs: newestFirst(
		bus.HistoryMessage{AuthorID: "u1", Content: "earlier"},
		bus.HistoryMessage{AuthorID: "u1", Content: "now"},
	)}

	got, err := BuildContext(context.Background(), src, trigger("u1"))
	require.NoError(t, err)
	assert.Equal(t, "earlier\nnow\n", got)
}

func TestBuildContext_TruncatesOversizedFetch(t *testing.T) {
	var msgs []bus.HistoryMessage
	for i := 0; i < HistoryLimit+5; i++ {
		msgs = append(msgs, bus.HistoryMessage{AuthorID: "u1", Content: fmt.Sprintf("m%d", i)})
	}
	src := &oversized{msgs: msgs}

	got, err := BuildContext(context.Background(), src, trigger("u1"))
	require.NoError(t, err)
	assert.Equal(t, HistoryLimit, strings.Count(got, "\n"))
	assert.NotContains(t, got, fmt.Sprintf("m%d\n", HistoryLimit))
}

// oversized ignores the limit, like a misbehaving platform client.
type oversized struct{ msgs []bus.HistoryMessage }

func (o *oversized) Recent(context.Context, int) ([]bus.HistoryMessage, error) { return o.msgs, nil }

func TestBuildContext_FetchError(t *testing.T) {
	cause := errors.New("503 from gateway")
	_, err := BuildContext(context.Background(), &fakeHistory{err: cause}, trigger("u1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}
