package tt

import (
	"context"
	"reflect"
	"sync"

	"github.com/rickchristie/think"
)

// Recorder is a think.Dispatcher that keeps every event.
type Recorder struct {
	mu     sync.Mutex
	events []think.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Dispatch(_ context.Context, event think.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) Events() []think.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]think.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types lists event type names in order, e.g. "SessionStartedEvent".
func (r *Recorder) Types() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = reflect.TypeOf(e).Elem().Name()
	}
	return out
}

// OfType returns the recorded events of type E.
func OfType[E think.Event](r *Recorder) []E {
	var out []E
	for _, e := range r.Events() {
		if typed, ok := e.(E); ok {
			out = append(out, typed)
		}
	}
	return out
}
