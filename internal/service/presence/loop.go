package presence

import (
	"context"
	"errors"

	"github.com/safeping/relay/backend/internal/model/presence"
)

// ErrLoopStopped is returned by Submit once Run has returned.
var ErrLoopStopped = errors.New("presence loop stopped")

const defaultQueueSize = 256

// Loop serializes inbound events in front of a Router so that registry
// mutations happen one event at a time, in arrival order.
type Loop struct {
	router *Router
	events chan presence.Inbound
	done   chan struct{}
}

// NewLoop creates a loop with a queue of queueSize pending events.
func NewLoop(router *Router, queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Loop{
		router: router,
		events: make(chan presence.Inbound, queueSize),
		done:   make(chan struct{}),
	}
}

// Submit queues an event, blocking while the queue is full.
func (l *Loop) Submit(ctx context.Context, in presence.Inbound) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}

	select {
	case l.events <- in:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run handles queued events until ctx is cancelled. It must be called once.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case in := <-l.events:
			l.router.Handle(in)
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
