package think

import (
	"context"
	"encoding/json"
)

// SessionRequest is everything an agent needs to start working on a prompt.
type SessionRequest struct {
	SessionID string
	// ParentID is the outer session's ID when this session was started from
	// inside a tool callable, and empty otherwise.
	ParentID     string
	Prompt       string
	Instructions string
	// Tools lists user tools in registration order followed by the result
	// tool.
	Tools []ToolDescriptor
}

// Collaborator is the external LLM agent that executes a prompt.
// Implementations live in the agents packages.
type Collaborator interface {
	OpenSession(ctx context.Context, req SessionRequest) (Channel, error)
}

// Channel is the bidirectional link to a running agent session. Events are
// received in the order the agent emitted them. Recv and Send are only
// called from the session driver's goroutine.
type Channel interface {
	// Recv blocks until the agent emits the next event. Errors are treated
	// as transport failures.
	Recv(ctx context.Context) (AgentEvent, error)

	// Send delivers the response to a tool call.
	Send(ctx context.Context, resp ToolResponse) error

	// Close releases the session. It is called exactly once.
	Close() error
}

// AgentEvent is implemented by *ToolCallRequest and *SessionEnd.
type AgentEvent interface {
	agentEvent()
}

// ToolCallRequest asks the session to run a tool.
type ToolCallRequest struct {
	CallID   string
	ToolName string
	Input    json.RawMessage
}

func (*ToolCallRequest) agentEvent() {}

// SessionEnd reports that the agent stopped on its own.
type SessionEnd struct {
	Reason string
}

func (*SessionEnd) agentEvent() {}

// ToolResponse answers one ToolCallRequest. Exactly one of Output and Error
// is set.
type ToolResponse struct {
	CallID string
	Output json.RawMessage
	Error  string
}

func (r ToolResponse) IsError() bool {
	return r.Error != ""
}
