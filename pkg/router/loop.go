package router

import (
	"context"
	"fmt"

	"github.com/momobot/momo/pkg/bus"
	"github.com/momobot/momo/pkg/logger"
)

// Run consumes events in arrival order until ctx is done or the bus is
// closed, then waits for in-flight handlers. Routing and deduplication
// happen on this goroutine; each accepted event's network work runs in
// its own task, so replies may complete out of order.
func (r *Router) Run(ctx context.Context, eb *bus.EventBus) {
	logger.InfoC("router", "Dispatch loop started")
	defer func() {
		r.tasks.Wait()
		logger.InfoC("router", "Dispatch loop stopped")
	}()

	for {
		ev, ok := eb.Consume(ctx)
		if !ok {
			return
		}
		r.Dispatch(ctx, ev)
	}
}

// Dispatch routes one event. Started handlers are not cancelled by ctx.
func (r *Router) Dispatch(ctx context.Context, ev bus.Event) {
	taskCtx := context.WithoutCancel(ctx)

	switch e := ev.(type) {
	case *bus.CommandInvocation:
		r.spawn(func() { r.HandleCommand(taskCtx, e) })

	case *bus.TextMessage:
		if r.RouteMessage(e) == Ignore {
			return
		}
		r.spawn(func() { r.HandleMessage(taskCtx, e) })

	case *bus.MemberJoin:
		if !r.admitJoin("member_join", e.AuthorID) {
			return
		}
		r.spawn(func() { r.HandleMemberJoin(taskCtx, e) })

	case *bus.VoiceJoin:
		if !r.admitJoin("voice_join", e.AuthorID) {
			return
		}
		r.spawn(func() { r.HandleVoiceJoin(taskCtx, e) })

	default:
		logger.ErrorCF("router", "Dropping event", map[string]any{
			"error": fmt.Errorf("%w: %T", bus.ErrUnknownEventShape, ev).Error(),
		})
	}
}

func (r *Router) spawn(fn func()) {
	r.tasks.Add(1)
	go func() {
		defer r.tasks.Done()
		fn()
	}()
}

// Wait blocks until every spawned handler has finished.
func (r *Router) Wait() { r.tasks.Wait() }
