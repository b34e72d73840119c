// Package mcpbridge exposes a think session to an agent that speaks the
// Model Context Protocol. Each session gets its own MCP server whose tools
// are the session's tools; every tools/call the agent makes is forwarded to
// the session driver and answered with the driver's response.
package mcpbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rickchristie/think"
	"github.com/rickchristie/think/internal/buffer"
)

// TaskPromptName is the MCP prompt that returns the session's task.
const TaskPromptName = "task"

var (
	ErrSessionClosed = errors.New("session closed")
	ErrUnknownCallID = errors.New("no pending call with this id")
)

// Launcher starts an agent for req. The agent must talk MCP to a server
// served on the returned transport, and stop once ctx is done. wait blocks
// until the agent has exited.
type Launcher func(ctx context.Context, req think.SessionRequest) (transport mcp.Transport, wait func() error, err error)

// Bridge implements think.Collaborator over MCP.
type Bridge struct {
	launch Launcher
	impl   *mcp.Implementation
	codec  think.Codec
}

func New(launch Launcher) *Bridge {
	return &Bridge{
		launch: launch,
		impl:   &mcp.Implementation{Name: "think", Version: "v1.0.0"},
		codec:  think.DefaultCodec,
	}
}

// WithImplementation sets the server name and version reported during the
// MCP handshake.
func (b *Bridge) WithImplementation(name, version string) *Bridge {
	b.impl = &mcp.Implementation{Name: name, Version: version}
	return b
}

// OpenSession launches the agent and serves the session's tools to it.
func (b *Bridge) OpenSession(ctx context.Context, req think.SessionRequest) (think.Channel, error) {
	s := newSession(b.codec)

	server := mcp.NewServer(b.impl, &mcp.ServerOptions{Instructions: req.Instructions})
	for _, d := range req.Tools {
		tool, err := mcpTool(d)
		if err != nil {
			return nil, err
		}
		server.AddTool(tool, s.handler(d.Name))
	}
	server.AddPrompt(&mcp.Prompt{
		Name:        TaskPromptName,
		Description: "The task to complete",
	}, func(ctx context.Context, _ *mcp.ServerSession, _ *mcp.GetPromptParams) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Description: "The task to complete",
			Messages: []*mcp.PromptMessage{{
				Role:    "user",
				Content: &mcp.TextContent{Text: req.Prompt},
			}},
		}, nil
	})

	agentCtx, stop := context.WithCancel(ctx)
	transport, wait, err := b.launch(agentCtx, req)
	if err != nil {
		stop()
		return nil, fmt.Errorf("launch agent: %w", err)
	}
	ss, err := server.Connect(ctx, transport)
	if err != nil {
		stop()
		_ = wait()
		return nil, fmt.Errorf("serve session: %w", err)
	}
	s.server = ss
	s.stop = stop

	go func() {
		err := wait()
		reason := "agent exited without calling " + think.ResultToolName
		if err != nil {
			reason = fmt.Sprintf("agent exited: %v", err)
		}
		s.events.Push(&think.SessionEnd{Reason: reason})
		s.events.Close()
	}()
	return s, nil
}

// mcpTool converts a descriptor to an MCP tool. The schema goes through
// JSON because the SDK has its own schema type.
func mcpTool(d think.ToolDescriptor) (*mcp.Tool, error) {
	raw, err := json.Marshal(d.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("encode schema of %s: %w", d.Name, err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("convert schema of %s: %w", d.Name, err)
	}
	return &mcp.Tool{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: &schema,
	}, nil
}

// ----------------------------------------------------------------------------
// session
// ----------------------------------------------------------------------------

// session is the think.Channel of one bridged session. MCP tool handlers
// may run concurrently; each one queues its call and waits for the response
// with the matching call ID. A handler whose request is cancelled abandons
// its call: a queued call is never handed to the driver, and a response to
// one already dispatched is dropped.
type session struct {
	events *buffer.Queue[think.AgentEvent]
	codec  think.Codec
	server *mcp.ServerSession
	// stop cancels the agent's context.
	stop context.CancelFunc

	mu        sync.Mutex
	pending   map[string]chan think.ToolResponse
	abandoned map[string]struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newSession(codec think.Codec) *session {
	return &session{
		events:    buffer.NewQueue[think.AgentEvent](),
		pending:   make(map[string]chan think.ToolResponse),
		abandoned: make(map[string]struct{}),
		closed:    make(chan struct{}),
		codec:     codec,
	}
}

func (s *session) handler(name string) mcp.ToolHandler {
	return func(
		ctx context.Context,
		_ *mcp.ServerSession,
		params *mcp.CallToolParamsFor[map[string]any],
	) (*mcp.CallToolResultFor[any], error) {
		var args any = params.Arguments
		if params.Arguments == nil {
			args = map[string]any{}
		}
		input, err := s.codec.Encode(args)
		if err != nil {
			return nil, fmt.Errorf("encode arguments: %w", err)
		}

		reply, err := s.call(ctx, name, input)
		if err != nil {
			return nil, err
		}
		if reply.IsError() {
			return &mcp.CallToolResultFor[any]{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: reply.Error}},
			}, nil
		}
		return &mcp.CallToolResultFor[any]{
			Content: []mcp.Content{&mcp.TextContent{Text: string(reply.Output)}},
		}, nil
	}
}

func (s *session) call(ctx context.Context, name string, input json.RawMessage) (think.ToolResponse, error) {
	id := uuid.NewString()
	reply := make(chan think.ToolResponse, 1)

	s.mu.Lock()
	select {
	case <-s.closed:
		s.mu.Unlock()
		return think.ToolResponse{}, ErrSessionClosed
	default:
	}
	s.pending[id] = reply
	s.mu.Unlock()

	s.events.Push(&think.ToolCallRequest{CallID: id, ToolName: name, Input: input})

	select {
	case resp := <-reply:
		return resp, nil
	case <-s.closed:
		// A response sent just before Close still wins.
		select {
		case resp := <-reply:
			return resp, nil
		default:
		}
		return think.ToolResponse{}, ErrSessionClosed
	case <-ctx.Done():
		s.mu.Lock()
		if _, ok := s.pending[id]; ok {
			delete(s.pending, id)
			s.abandoned[id] = struct{}{}
		}
		s.mu.Unlock()
		// Send may have answered between ctx and the lock.
		select {
		case resp := <-reply:
			return resp, nil
		default:
		}
		return think.ToolResponse{}, ctx.Err()
	}
}

// Recv returns the next event, skipping calls abandoned while queued.
func (s *session) Recv(ctx context.Context) (think.AgentEvent, error) {
	for {
		ev, err := s.events.Pop(ctx)
		if err != nil {
			return nil, err
		}
		call, ok := ev.(*think.ToolCallRequest)
		if !ok {
			return ev, nil
		}

		s.mu.Lock()
		_, gone := s.abandoned[call.CallID]
		delete(s.abandoned, call.CallID)
		s.mu.Unlock()
		if !gone {
			return ev, nil
		}
	}
}

func (s *session) Send(ctx context.Context, resp think.ToolResponse) error {
	s.mu.Lock()
	reply, ok := s.pending[resp.CallID]
	delete(s.pending, resp.CallID)
	_, gone := s.abandoned[resp.CallID]
	delete(s.abandoned, resp.CallID)
	s.mu.Unlock()

	switch {
	case ok:
		reply <- resp
		return nil
	case gone:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCallID, resp.CallID)
	}
}

func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.closed)
		s.mu.Unlock()
		s.events.Close()
		if s.server != nil {
			err = s.server.Close()
		}
		if s.stop != nil {
			s.stop()
		}
	})
	return err
}

// Compile-time check that Bridge implements think.Collaborator.
var _ think.Collaborator = (*Bridge)(nil)
