package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/momobot/momo/pkg/logger"
)

func noop(context.Context, *Call) error { return nil }

func cmd(name, desc string) Command {
	return Command{Definition: Definition{Name: name, Description: desc}, Handler: noop}
}

func TestLoad_FirstRegistrationWins(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	defer logger.Replace(zap.New(core))()

	reg, skipped := Load([]Command{
		cmd("xoa", "first"),
		cmd("about", "about"),
		cmd("xoa", "second"),
	})

	assert.Equal(t, 2, reg.Len())
	got, ok := reg.Get("xoa")
	require.True(t, ok)
	assert.Equal(t, "first", got.Definition.Description)

	require.Len(t, skipped, 1)
	var regErr *RegistrationError
	require.True(t, errors.As(skipped[0], &regErr))
	assert.Equal(t, "xoa", regErr.Name)
	assert.Equal(t, 2, regErr.Index)

	dups := logs.FilterMessage("Duplicate command name found")
	require.Equal(t, 1, dups.Len())
	assert.Equal(t, zap.WarnLevel, dups.All()[0].Level)
}

func TestLoad_RejectsMalformed(t *testing.T) {
	reg, skipped := Load([]Command{
		{Definition: Definition{Name: "nohandler", Description: "x"}},
		cmd("Upper", "x"),
		cmd("", "x"),
		cmd("nodesc", ""),
		{Definition: Definition{Name: "dupopt", Description: "x", Options: []Option{{Name: "a"}, {Name: "a"}}}, Handler: noop},
		cmd("ok", "fine"),
	})

	assert.Equal(t, 1, reg.Len())
	assert.Len(t, skipped, 5)
	_, ok := reg.Get("ok")
	assert.True(t, ok)
}

func TestRegistry_OrderAndLookup(t *testing.T) {
	reg, _ := Load([]Command{cmd("b", "b"), cmd("a", "a"), cmd("c", "c")})

	var names []string
	for _, d := range reg.Definitions() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"b", "a", "c"}, names)
	assert.Len(t, reg.List(), 3)

	_, ok := reg.Get("A")
	assert.False(t, ok, "lookup is exact")
}

func TestBuiltins_LoadSkipsSecondXoa(t *testing.T) {
	reg, skipped := Load(Builtins(testDeps()))

	assert.Equal(t, 6, reg.Len())
	require.Len(t, skipped, 1)

	xoa, ok := reg.Get("xoa")
	require.True(t, ok)
	require.Len(t, xoa.Definition.Options, 1)
	assert.Equal(t, "amount", xoa.Definition.Options[0].Name)

	for _, name := range []string{"about", "chat", "xoa", "thongtin", "momodauroi", "hoso"} {
		_, ok := reg.Get(name)
		assert.True(t, ok, name)
	}
}
