package think

import (
	"context"
	"encoding/json"
	"time"
)

// Event is a marker interface for everything a session publishes.
type Event interface {
	sessionEvent()
}

// Dispatcher receives session events. events.Registry is the standard
// implementation. Dispatch is called synchronously from the session driver,
// so a slow dispatcher slows the session.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

// -----------------------------------------------------------------------------
// Session Events
// -----------------------------------------------------------------------------

// SessionStartedEvent is published once the prompt is final, before the
// agent is contacted.
type SessionStartedEvent struct {
	SessionID string
	ParentID  string
	Prompt    string
	// Tools are the names in the manifest, result tool last.
	Tools     []string
	Timestamp time.Time
}

func (*SessionStartedEvent) sessionEvent() {}

// StateChangedEvent is published on every driver state transition.
type StateChangedEvent struct {
	SessionID string
	From      SessionState
	To        SessionState
}

func (*StateChangedEvent) sessionEvent() {}

// SessionEndedEvent is published once, when the session reaches Completed
// or Failed.
type SessionEndedEvent struct {
	SessionID string
	ParentID  string
	State     SessionState
	Stats     SessionStats
	Duration  time.Duration

	// Error is nil when the session completed.
	Error error
}

func (*SessionEndedEvent) sessionEvent() {}

// -----------------------------------------------------------------------------
// Tool Events
// -----------------------------------------------------------------------------

// BeforeToolCallEvent is published before a tool call is dispatched,
// including calls to unknown tools and to the result tool.
type BeforeToolCallEvent struct {
	SessionID string
	CallID    string
	ToolName  string
	Input     json.RawMessage
}

func (*BeforeToolCallEvent) sessionEvent() {}

// AfterToolCallEvent is published after a tool call finished.
type AfterToolCallEvent struct {
	SessionID string
	CallID    string
	ToolName  string
	Input     json.RawMessage
	Output    json.RawMessage
	Duration  time.Duration
	Error     error
}

func (*AfterToolCallEvent) sessionEvent() {}

// ResultRejectedEvent is published when a return_result payload could not be
// turned into the result type.
type ResultRejectedEvent struct {
	SessionID string
	CallID    string
	// Attempt counts rejected payloads in this session, starting at 1.
	Attempt int
	Payload json.RawMessage
	// Diff is a unified diff against the previously rejected payload, empty
	// on the first rejection.
	Diff  string
	Error error
}

func (*ResultRejectedEvent) sessionEvent() {}
