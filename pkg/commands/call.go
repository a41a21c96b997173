package commands

import (
	"context"
	"errors"
	"sync"

	"github.com/momobot/momo/pkg/bus"
)

// State tracks an invocation through
// Received → Executing → {Replied | Deferred → Replied | Failed → ApologySent}.
type State int

const (
	StateReceived State = iota
	StateExecuting
	StateDeferred
	StateReplied
	StateFailed
	StateApologySent
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateExecuting:
		return "executing"
	case StateDeferred:
		return "deferred"
	case StateReplied:
		return "replied"
	case StateFailed:
		return "failed"
	case StateApologySent:
		return "apology_sent"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyAcknowledged = errors.New("interaction already acknowledged")
	ErrNotAcknowledged     = errors.New("interaction not acknowledged yet")
)

// Call is one command invocation as seen by its handler. It routes every
// response through the interaction and records which reply mechanism is
// still valid.
type Call struct {
	Invocation *bus.CommandInvocation
	Registry   *Registry

	mu           sync.Mutex
	state        State
	acknowledged bool
}

func NewCall(inv *bus.CommandInvocation, reg *Registry) *Call {
	return &Call{Invocation: inv, Registry: reg}
}

func (c *Call) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Begin moves a received call to executing.
func (c *Call) Begin() {
	c.mu.Lock()
	if c.state == StateReceived {
		c.state = StateExecuting
	}
	c.mu.Unlock()
}

// Acknowledged reports whether a reply or deferral was already sent.
func (c *Call) Acknowledged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acknowledged
}

// Reply sends the immediate response.
func (c *Call) Reply(ctx context.Context, reply bus.Reply) error {
	if c.Acknowledged() {
		return ErrAlreadyAcknowledged
	}
	if err := c.Invocation.Interaction.Respond(ctx, reply); err != nil {
		return err
	}
	c.transition(StateReplied)
	return nil
}

// Defer acknowledges now and promises an Edit later.
func (c *Call) Defer(ctx context.Context, ephemeral bool) error {
	if c.Acknowledged() {
		return ErrAlreadyAcknowledged
	}
	if err := c.Invocation.Interaction.Defer(ctx, ephemeral); err != nil {
		return err
	}
	c.transition(StateDeferred)
	return nil
}

// Edit replaces the deferred or immediate response.
func (c *Call) Edit(ctx context.Context, reply bus.Reply) error {
	if !c.Acknowledged() {
		return ErrNotAcknowledged
	}
	if err := c.Invocation.Interaction.EditResponse(ctx, reply); err != nil {
		return err
	}
	c.transition(StateReplied)
	return nil
}

// Followup posts an additional message after acknowledgement.
func (c *Call) Followup(ctx context.Context, reply bus.Reply) error {
	if !c.Acknowledged() {
		return ErrNotAcknowledged
	}
	return c.Invocation.Interaction.Followup(ctx, reply)
}

// Apologize marks the call failed and sends reply through whichever
// mechanism is still open: the immediate response when nothing was sent,
// otherwise a follow-up.
func (c *Call) Apologize(ctx context.Context, reply bus.Reply) error {
	c.mu.Lock()
	c.state = StateFailed
	acked := c.acknowledged
	c.mu.Unlock()

	var err error
	if acked {
		err = c.Invocation.Interaction.Followup(ctx, reply)
	} else {
		err = c.Invocation.Interaction.Respond(ctx, reply)
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.state = StateApologySent
	c.acknowledged = true
	c.mu.Unlock()
	return nil
}

func (c *Call) transition(to State) {
	c.mu.Lock()
	c.state = to
	c.acknowledged = true
	c.mu.Unlock()
}

// OptString returns a string option.
func (c *Call) OptString(name string) (string, bool) {
	v, ok := c.Invocation.Options[name].(string)
	return v, ok
}

// OptInt returns an integer option.
func (c *Call) OptInt(name string) (int64, bool) {
	switch v := c.Invocation.Options[name].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// OptUser returns a user option.
func (c *Call) OptUser(name string) (*bus.User, bool) {
	v, ok := c.Invocation.Options[name].(*bus.User)
	return v, ok && v != nil
}
