package commands

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/momobot/momo/pkg/bus"
	"github.com/momobot/momo/pkg/persona"
	"github.com/momobot/momo/pkg/providers"
)

type recordedReply struct {
	Kind  string // respond, defer, edit, followup
	Reply bus.Reply
}

type fakeInteraction struct {
	mu         sync.Mutex
	replies    []recordedReply
	respondErr error
}

func (f *fakeInteraction) record(kind string, r bus.Reply) {
	f.mu.Lock()
	f.replies = append(f.replies, recordedReply{Kind: kind, Reply: r})
	f.mu.Unlock()
}

func (f *fakeInteraction) Respond(_ context.Context, r bus.Reply) error {
	if f.respondErr != nil {
		return f.respondErr
	}
	f.record("respond", r)
	return nil
}

func (f *fakeInteraction) Defer(_ context.Context, ephemeral bool) error {
	f.record("defer", bus.Reply{Ephemeral: ephemeral})
	return nil
}

func (f *fakeInteraction) EditResponse(_ context.Context, r bus.Reply) error {
	f.record("edit", r)
	return nil
}

func (f *fakeInteraction) Followup(_ context.Context, r bus.Reply) error {
	f.record("followup", r)
	return nil
}

func (f *fakeInteraction) all() []recordedReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedReply(nil), f.replies...)
}

type fakeChannel struct {
	msgs      []bus.HistoryMessage
	deleted   []string
	deleteErr error
	lastLimit int
}

func (f *fakeChannel) Recent(_ context.Context, limit int) ([]bus.HistoryMessage, error) {
	f.lastLimit = limit
	if len(f.msgs) > limit {
		return f.msgs[:limit], nil
	}
	return f.msgs, nil
}

func (f *fakeChannel) Reply(context.Context, string, string) error { return nil }
func (f *fakeChannel) Typing(context.Context) func()                { return func() {} }

func (f *fakeChannel) Delete(_ context.Context, ids []string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, ids...)
	return nil
}

type fakeCompleter struct {
	text  string
	err   error
	calls []providers.PromptRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req providers.PromptRequest) (string, error) {
	f.calls = append(f.calls, req)
	return f.text, f.err
}

type fakeMembers struct {
	profile *bus.MemberProfile
	err     error
	asked   string
}

func (f *fakeMembers) Member(_ context.Context, _, userID string) (*bus.MemberProfile, error) {
	f.asked = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

type fixedLatency time.Duration

func (l fixedLatency) GatewayLatency() time.Duration { return time.Duration(l) }

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func testDeps() Deps {
	return Deps{
		Completer: &fakeCompleter{text: "ok"},
		Persona:   persona.Default(),
		Members:   &fakeMembers{err: errors.New("not wired")},
		Latency:   fixedLatency(42 * time.Millisecond),
		Now:       func() time.Time { return testNow },
	}
}

func newInvocation(name string, opts map[string]any) (*bus.CommandInvocation, *fakeInteraction, *fakeChannel) {
	ia := &fakeInteraction{}
	ch := &fakeChannel{}
	inv := &bus.CommandInvocation{
		Meta: bus.Meta{
			ID:         "ev-1",
			GuildID:    "g1",
			ChannelID:  "c1",
			AuthorID:   "u1",
			AuthorName: "lan",
			CreatedAt:  testNow.Add(-120 * time.Millisecond),
		},
		Name:        name,
		Options:     opts,
		Interaction: ia,
		Channel:     ch,
	}
	return inv, ia, ch
}
