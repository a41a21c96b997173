package channels

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momobot/momo/pkg/bus"
	"github.com/momobot/momo/pkg/commands"
	"github.com/momobot/momo/pkg/config"
)

func TestNewDiscordChannel(t *testing.T) {
	c, err := NewDiscordChannel(config.DiscordConfig{Token: "abc"}, bus.NewEventBus())
	require.NoError(t, err)
	assert.Equal(t, "Bot abc", c.session.Token)
	assert.Equal(t, Intents, c.session.Identify.Intents)
	assert.False(t, c.IsRunning())

	err = c.SendToChannel(context.Background(), "welcome", "hi")
	assert.Error(t, err)
}

func TestCommandOptions(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name: "hoso",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "amount", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(25)},
			{Name: "message", Type: discordgo.ApplicationCommandOptionString, Value: "Hi"},
			{Name: "thanhvien", Type: discordgo.ApplicationCommandOptionUser, Value: "42"},
		},
		Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
			Users: map[string]*discordgo.User{"42": {ID: "42", Username: "mai"}},
		},
	}

	opts := commandOptions(data)
	assert.Equal(t, int64(25), opts["amount"])
	assert.Equal(t, "Hi", opts["message"])
	assert.Equal(t, &bus.User{ID: "42", Username: "mai"}, opts["thanhvien"])

	assert.Nil(t, commandOptions(discordgo.ApplicationCommandInteractionData{Name: "about"}))
}

func TestIsVoiceJoin(t *testing.T) {
	state := func(ch string) *discordgo.VoiceState { return &discordgo.VoiceState{UserID: "u1", ChannelID: ch} }

	cases := []struct {
		name string
		ev   *discordgo.VoiceStateUpdate
		want bool
	}{
		{"first connect", &discordgo.VoiceStateUpdate{VoiceState: state("v1")}, true},
		{"connect from none", &discordgo.VoiceStateUpdate{VoiceState: state("v1"), BeforeUpdate: state("")}, true},
		{"move", &discordgo.VoiceStateUpdate{VoiceState: state("v2"), BeforeUpdate: state("v1")}, false},
		{"mute toggle", &discordgo.VoiceStateUpdate{VoiceState: state("v1"), BeforeUpdate: state("v1")}, false},
		{"leave", &discordgo.VoiceStateUpdate{VoiceState: state(""), BeforeUpdate: state("v1")}, false},
		{"no state", &discordgo.VoiceStateUpdate{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isVoiceJoin(tc.ev))
		})
	}
}

func restError(code int, msg string) error {
	return &discordgo.RESTError{
		Response:     &http.Response{Status: "403 Forbidden", StatusCode: http.StatusForbidden},
		ResponseBody: []byte(`{"message":"` + msg + `"}`),
		Message:      &discordgo.APIErrorMessage{Code: code, Message: msg},
	}
}

func TestClassifyError(t *testing.T) {
	assert.ErrorIs(t, classifyError(restError(50013, "Missing Permissions")), bus.ErrPermissionDenied)
	assert.ErrorIs(t, classifyError(restError(50034, "too old")), bus.ErrAgeLimitExceeded)

	other := restError(10008, "Unknown Message")
	assert.Same(t, other, classifyError(other))

	plain := errors.New("dial tcp: timeout")
	assert.Same(t, plain, classifyError(plain))
}

func TestToEmbeds(t *testing.T) {
	ts := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	out := toEmbeds([]bus.Embed{{
		Title:     "Hồ sơ của mai",
		Color:     0xFF69B4,
		Thumbnail: "https://cdn/avatar.png",
		Footer:    "MoMo Bot",
		Timestamp: ts,
		Fields:    []bus.EmbedField{{Name: "🆔 ID", Value: "42", Inline: true}},
	}})

	require.Len(t, out, 1)
	e := out[0]
	assert.Equal(t, "Hồ sơ của mai", e.Title)
	assert.Equal(t, 0xFF69B4, e.Color)
	assert.Equal(t, "https://cdn/avatar.png", e.Thumbnail.URL)
	assert.Equal(t, "MoMo Bot", e.Footer.Text)
	assert.Equal(t, "2026-10-14T12:00:00Z", e.Timestamp)
	require.Len(t, e.Fields, 1)
	assert.True(t, e.Fields[0].Inline)

	assert.Nil(t, toEmbeds(nil))
	assert.Equal(t, discordgo.MessageFlagsEphemeral, flags(true))
	assert.Zero(t, flags(false))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"hi"}, splitMessage("hi", 10))
	assert.Equal(t, []string{""}, splitMessage("", 10))

	assert.Equal(t, []string{"aaaa", "aaaa", "aa"}, splitMessage(strings.Repeat("a", 10), 4))
	assert.Equal(t, []string{"aaa\n", "bbbb"}, splitMessage("aaa\nbbbb", 5))

	chunks := splitMessage(strings.Repeat("ờ", 2500), maxMessageLength)
	require.Len(t, chunks, 2)
	assert.Len(t, []rune(chunks[0]), maxMessageLength)
	assert.Len(t, []rune(chunks[1]), 500)
}

func TestMemberProfile(t *testing.T) {
	joined := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := memberProfile(&discordgo.Member{
		JoinedAt: joined,
		Roles:    []string{"r1", "r2"},
		User:     &discordgo.User{ID: "175928847299117063", Username: "mai", Discriminator: "0"},
	})

	assert.Equal(t, "mai", p.Tag)
	assert.Equal(t, joined, p.JoinedAt)
	assert.Equal(t, int64(1462015105), p.CreatedAt.Unix())
	assert.Equal(t, []string{"<@&r1>", "<@&r2>"}, p.Roles)
	assert.NotEmpty(t, p.AvatarURL)

	assert.Equal(t, "old#1234", userTag(&discordgo.User{Username: "old", Discriminator: "1234"}))
}

func TestHistoryMessage(t *testing.T) {
	ts := time.Now()
	h := historyMessage(&discordgo.Message{ID: "m1", Content: "hi", Pinned: true, Timestamp: ts, Author: &discordgo.User{ID: "u1"}})
	assert.Equal(t, bus.HistoryMessage{ID: "m1", AuthorID: "u1", Content: "hi", Pinned: true, CreatedAt: ts}, h)
}

func TestApplicationCommands(t *testing.T) {
	reg, _ := commands.Load(commands.Builtins(commands.Deps{}))
	cmds := ApplicationCommands(reg.Definitions())
	require.Len(t, cmds, 6)

	byName := map[string]*discordgo.ApplicationCommand{}
	for _, c := range cmds {
		assert.Equal(t, discordgo.ChatApplicationCommand, c.Type)
		byName[c.Name] = c
	}

	xoa := byName["xoa"]
	require.NotNil(t, xoa)
	require.Len(t, xoa.Options, 1)
	assert.Equal(t, "amount", xoa.Options[0].Name)
	assert.Equal(t, discordgo.ApplicationCommandOptionInteger, xoa.Options[0].Type)
	require.NotNil(t, xoa.Options[0].MinValue)
	assert.Equal(t, 1.0, *xoa.Options[0].MinValue)
	assert.Equal(t, 100.0, xoa.Options[0].MaxValue)

	help := byName["thongtin"]
	require.NotNil(t, help.NameLocalizations)
	assert.Equal(t, "thôngtin", (*help.NameLocalizations)[discordgo.Vietnamese])

	assert.Equal(t, discordgo.ApplicationCommandOptionUser, byName["hoso"].Options[0].Type)
}

func TestNewDeploySession_BotToken(t *testing.T) {
	s, err := NewDeploySession(context.Background(), config.DiscordConfig{Token: "abc", ClientID: "app"})
	require.NoError(t, err)
	assert.Equal(t, "Bot abc", s.Token)
}

func TestNewDeploySession_ClientCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "applications.commands.update", r.Form.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"granted","token_type":"Bearer","expires_in":604800}`))
	}))
	defer srv.Close()

	s, err := newDeploySession(context.Background(), config.DiscordConfig{ClientID: "app", ClientSecret: "shh"}, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Bearer granted", s.Token)
}

func TestNewDeploySession_GrantFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newDeploySession(context.Background(), config.DiscordConfig{ClientID: "app", ClientSecret: "bad"}, srv.URL)
	assert.ErrorContains(t, err, "client credentials grant")
}

func TestAbortStartClosesSession(t *testing.T) {
	c, err := NewDiscordChannel(config.DiscordConfig{Token: "abc"}, bus.NewEventBus())
	require.NoError(t, err)
	c.running.Store(true)

	c.session.SyncEvents = true
	closed := 0
	c.session.AddHandler(func(*discordgo.Session, *discordgo.Disconnect) { closed++ })

	cause := errors.New("401: Unauthorized")
	err = c.abortStart(cause)

	assert.Same(t, cause, err)
	assert.False(t, c.IsRunning())
	assert.Equal(t, 1, closed, "session closed on the failed start path")
}

func TestTypingTaskLifecycle(t *testing.T) {
	hits := make(chan string, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	orig := discordgo.EndpointChannelTyping
	discordgo.EndpointChannelTyping = func(cID string) string { return srv.URL + "/channels/" + cID + "/typing" }
	defer func() { discordgo.EndpointChannelTyping = orig }()

	c, err := NewDiscordChannel(config.DiscordConfig{Token: "abc"}, bus.NewEventBus())
	require.NoError(t, err)

	stop := c.startTyping("chat")
	select {
	case path := <-hits:
		assert.Equal(t, "/channels/chat/typing", path)
	case <-time.After(2 * time.Second):
		t.Fatal("typing indicator was not sent")
	}

	stop()
	stop()
	c.typingMu.Lock()
	assert.Empty(t, c.typingTasks)
	c.typingMu.Unlock()

	c.startTyping("other")
	c.stopAllTyping()
	c.typingMu.Lock()
	assert.Empty(t, c.typingTasks)
	c.typingMu.Unlock()
}
