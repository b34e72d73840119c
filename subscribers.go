package think

import "context"

// Subscriber interfaces are implemented in any combination by a single
// value; events.Registry calls the methods a subscriber has.
//
//	type toolTimer struct{}
//
//	func (toolTimer) OnAfterToolCall(ctx context.Context, e *think.AfterToolCallEvent) {
//	    log.Printf("%s took %s", e.ToolName, e.Duration)
//	}
//
//	registry := events.NewRegistry().Subscribe(toolTimer{})

type SessionStartedSubscriber interface {
	OnSessionStarted(ctx context.Context, event *SessionStartedEvent)
}

type StateChangedSubscriber interface {
	OnStateChanged(ctx context.Context, event *StateChangedEvent)
}

type SessionEndedSubscriber interface {
	OnSessionEnded(ctx context.Context, event *SessionEndedEvent)
}

type BeforeToolCallSubscriber interface {
	OnBeforeToolCall(ctx context.Context, event *BeforeToolCallEvent)
}

type AfterToolCallSubscriber interface {
	OnAfterToolCall(ctx context.Context, event *AfterToolCallEvent)
}

type ResultRejectedSubscriber interface {
	OnResultRejected(ctx context.Context, event *ResultRejectedEvent)
}
