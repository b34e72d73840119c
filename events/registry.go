package events

import (
	"context"
	"sync"

	"github.com/rickchristie/think"
)

// Registry stores subscribers and implements think.Dispatcher. It is safe to
// share between engines and to Subscribe while sessions are running.
type Registry struct {
	mu          sync.RWMutex
	subscribers []any
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe adds a subscriber. Subscribers are called in the order they are
// added. Values implementing none of the subscriber interfaces are kept but
// never called.
func (r *Registry) Subscribe(subscriber any) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, subscriber)
	return r
}

// Dispatch delivers event to every subscriber interested in its type.
func (r *Registry) Dispatch(ctx context.Context, event think.Event) {
	r.mu.RLock()
	subscribers := r.subscribers
	r.mu.RUnlock()

	switch e := event.(type) {
	case *think.SessionStartedEvent:
		for _, s := range subscribers {
			if sub, ok := s.(think.SessionStartedSubscriber); ok {
				sub.OnSessionStarted(ctx, e)
			}
		}
	case *think.StateChangedEvent:
		for _, s := range subscribers {
			if sub, ok := s.(think.StateChangedSubscriber); ok {
				sub.OnStateChanged(ctx, e)
			}
		}
	case *think.SessionEndedEvent:
		for _, s := range subscribers {
			if sub, ok := s.(think.SessionEndedSubscriber); ok {
				sub.OnSessionEnded(ctx, e)
			}
		}
	case *think.BeforeToolCallEvent:
		for _, s := range subscribers {
			if sub, ok := s.(think.BeforeToolCallSubscriber); ok {
				sub.OnBeforeToolCall(ctx, e)
			}
		}
	case *think.AfterToolCallEvent:
		for _, s := range subscribers {
			if sub, ok := s.(think.AfterToolCallSubscriber); ok {
				sub.OnAfterToolCall(ctx, e)
			}
		}
	case *think.ResultRejectedEvent:
		for _, s := range subscribers {
			if sub, ok := s.(think.ResultRejectedSubscriber); ok {
				sub.OnResultRejected(ctx, e)
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// Clear removes all subscribers.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = nil
}
