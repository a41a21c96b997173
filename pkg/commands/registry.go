// Package commands holds the slash-command registry, the per-invocation
// reply state machine and MoMo's built-in commands.
package commands

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/momobot/momo/pkg/logger"
)

type OptionType int

const (
	OptionString OptionType = iota + 1
	OptionInteger
	OptionUser
)

// Option is one declared slash-command option.
type Option struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
	MinValue    *float64
	MaxValue    *float64
}

// Definition is the schema half of a command, as registered with the platform.
type Definition struct {
	Name              string
	Description       string
	NameLocalizations map[string]string
	Options           []Option
}

type Handler func(ctx context.Context, call *Call) error

type Command struct {
	Definition Definition
	Handler    Handler
}

// RegistrationError explains why a command was left out of the registry.
type RegistrationError struct {
	Index  int
	Name   string
	Reason string
}

func (e *RegistrationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("command #%d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("command %q (#%d): %s", e.Name, e.Index, e.Reason)
}

var commandName = regexp.MustCompile(`^[-_\p{Ll}\p{Lo}\p{N}]{1,32}$`)

// Registry maps command names to commands. It is populated once by Load
// and read-only afterwards.
type Registry struct {
	order  []string
	byName map[string]Command
}

// Load registers cmds in order. The first command for a name wins; later
// duplicates and malformed commands are skipped, logged and reported.
func Load(cmds []Command) (*Registry, []error) {
	r := &Registry{byName: make(map[string]Command, len(cmds))}
	var skipped []error

	for i, cmd := range cmds {
		name := cmd.Definition.Name
		logger.DebugCF("commands", "Loading command", map[string]any{"index": i, "name": name})

		if err := validate(i, cmd); err != nil {
			logger.WarnCF("commands", "Command skipped", map[string]any{"error": err.Error()})
			skipped = append(skipped, err)
			continue
		}
		if _, dup := r.byName[name]; dup {
			err := &RegistrationError{Index: i, Name: name, Reason: "duplicate command name"}
			logger.WarnCF("commands", "Duplicate command name found", map[string]any{"name": name, "index": i})
			skipped = append(skipped, err)
			continue
		}

		r.byName[name] = cmd
		r.order = append(r.order, name)
		logger.DebugCF("commands", "Successfully loaded command", map[string]any{"name": name})
	}
	return r, skipped
}

func validate(i int, cmd Command) error {
	d := cmd.Definition
	switch {
	case cmd.Handler == nil:
		return &RegistrationError{Index: i, Name: d.Name, Reason: "missing handler"}
	case !commandName.MatchString(d.Name):
		return &RegistrationError{Index: i, Name: d.Name, Reason: "name must be 1-32 lowercase letters, digits, - or _"}
	case d.Description == "" || utf8.RuneCountInString(d.Description) > 100:
		return &RegistrationError{Index: i, Name: d.Name, Reason: "description must be 1-100 characters"}
	}
	seen := make(map[string]bool, len(d.Options))
	for _, opt := range d.Options {
		if !commandName.MatchString(opt.Name) || seen[opt.Name] {
			return &RegistrationError{Index: i, Name: d.Name, Reason: fmt.Sprintf("invalid option %q", opt.Name)}
		}
		seen[opt.Name] = true
	}
	return nil
}

// Get looks up a command by exact name.
func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.byName[name]
	return cmd, ok
}

// List returns commands in registration order.
func (r *Registry) List() []Command {
	out := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Definitions returns the schemas in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].Definition)
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }
