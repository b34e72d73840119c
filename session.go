package think

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"
)

// SessionState is a state of the session driver.
type SessionState int

const (
	StateAssembling SessionState = iota
	StateAwaitingAgent
	StateDispatchingTool
	StateCompleted
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateAssembling:
		return "assembling"
	case StateAwaitingAgent:
		return "awaiting_agent"
	case StateDispatchingTool:
		return "dispatching_tool"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Terminal reports whether no further transitions can happen.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// SessionStats counts what happened during a session.
type SessionStats struct {
	ToolCalls        int `yaml:"tool_calls"`
	ToolErrors       int `yaml:"tool_errors"`
	UnknownToolCalls int `yaml:"unknown_tool_calls"`
	// ResultRetries counts rejected return_result payloads.
	ResultRetries int `yaml:"result_retries"`
}

// Session drives one agent session from an assembled prompt to a terminal
// state. A Session is run once.
type Session struct {
	id           string
	parentID     string
	prompt       string
	instructions string
	registry     *Registry
	result       resultSink
	collab       Collaborator
	dispatcher   Dispatcher
	cfg          Config

	mu          sync.Mutex
	state       SessionState
	transitions []SessionState
	stats       SessionStats
	err         error

	consecutiveErrors int
	lastRejected      json.RawMessage
}

type sessionParams struct {
	id           string
	parentID     string
	prompt       string
	instructions string
	registry     *Registry
	result       resultSink
	collab       Collaborator
	dispatcher   Dispatcher
	cfg          Config
}

func newSession(p sessionParams) *Session {
	return &Session{
		id:           p.id,
		parentID:     p.parentID,
		prompt:       p.prompt,
		instructions: p.instructions,
		registry:     p.registry,
		result:       p.result,
		collab:       p.collab,
		dispatcher:   p.dispatcher,
		cfg:          p.cfg,
		state:        StateAssembling,
		transitions:  []SessionState{StateAssembling},
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) ParentID() string { return s.parentID }

// Prompt is the full rendered prompt, preamble included.
func (s *Session) Prompt() string { return s.prompt }

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transitions lists every state the session has been in, in order,
// starting with StateAssembling.
func (s *Session) Transitions() []SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SessionState, len(s.transitions))
	copy(out, s.transitions)
	return out
}

func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Err is the error the session failed with, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Run opens the agent session and serves tool calls until the agent
// delivers a result or the session fails. The returned error is the
// failure cause; Run never leaves a callable running when it returns.
func (s *Session) Run(ctx context.Context) error {
	start := time.Now()
	s.dispatch(ctx, &SessionStartedEvent{
		SessionID: s.id,
		ParentID:  s.parentID,
		Prompt:    s.prompt,
		Tools:     s.registry.Names(),
		Timestamp: start,
	})

	err := s.run(ctx)
	final := StateCompleted
	if err != nil {
		final = StateFailed
	}
	s.transition(ctx, final)

	s.mu.Lock()
	s.err = err
	stats := s.stats
	s.mu.Unlock()

	s.dispatch(ctx, &SessionEndedEvent{
		SessionID: s.id,
		ParentID:  s.parentID,
		State:     final,
		Stats:     stats,
		Duration:  time.Since(start),
		Error:     err,
	})
	return err
}

func (s *Session) run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSessionCancelled, err)
	}

	ch, err := s.collab.OpenSession(ctx, SessionRequest{
		SessionID:    s.id,
		ParentID:     s.parentID,
		Prompt:       s.prompt,
		Instructions: s.instructions,
		Tools:        s.registry.Manifest(),
	})
	if err != nil {
		return fmt.Errorf("%w: open session: %w", ErrTransport, err)
	}
	defer ch.Close()

	s.transition(ctx, StateAwaitingAgent)
	for {
		ev, err := ch.Recv(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%w: %w", ErrSessionCancelled, ctxErr)
			}
			return fmt.Errorf("%w: %w", ErrTransport, err)
		}

		switch e := ev.(type) {
		case *SessionEnd:
			return fmt.Errorf("%w: %s", ErrNoResult, e.Reason)
		case *ToolCallRequest:
			done, err := s.handleCall(ctx, ch, e)
			if err != nil || done {
				return err
			}
		default:
			return fmt.Errorf("%w: unexpected agent event %T", ErrTransport, ev)
		}
	}
}

// handleCall runs one tool call and answers it. done is true once a result
// has been delivered.
func (s *Session) handleCall(ctx context.Context, ch Channel, call *ToolCallRequest) (done bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrSessionCancelled, err)
	}

	isResult := IsResultTool(call.ToolName)
	dispatching := false
	if !isResult {
		// Unknown tools are answered with an error from AwaitingAgent.
		if _, err := s.registry.Resolve(call.ToolName); err == nil {
			dispatching = true
			s.transition(ctx, StateDispatchingTool)
		}
	}

	s.dispatch(ctx, &BeforeToolCallEvent{
		SessionID: s.id,
		CallID:    call.CallID,
		ToolName:  call.ToolName,
		Input:     call.Input,
	})

	callCtx := withCallInfo(ctx, CallInfo{
		SessionID:       s.id,
		ParentSessionID: s.parentID,
		CallID:          call.CallID,
		ToolName:        call.ToolName,
	})
	start := time.Now()
	output, callErr := s.registry.Invoke(callCtx, call.ToolName, call.Input)
	if isResult && callErr != nil && !errors.Is(callErr, ErrResultDecode) {
		callErr = fmt.Errorf("%w: %w", ErrResultDecode, callErr)
	}

	s.dispatch(ctx, &AfterToolCallEvent{
		SessionID: s.id,
		CallID:    call.CallID,
		ToolName:  call.ToolName,
		Input:     call.Input,
		Output:    output,
		Duration:  time.Since(start),
		Error:     callErr,
	})

	if callErr != nil && ctx.Err() != nil {
		return false, fmt.Errorf("%w: %w", ErrSessionCancelled, ctx.Err())
	}

	fatal := s.account(ctx, call, isResult, callErr)

	resp := ToolResponse{CallID: call.CallID, Output: output}
	if callErr != nil {
		resp = ToolResponse{CallID: call.CallID, Error: callErr.Error()}
	}
	if err := ch.Send(ctx, resp); err != nil {
		if isResult && s.result.Delivered() {
			// The value is already captured; a lost ack does not undo it.
			return true, nil
		}
		if fatal != nil {
			return false, fatal
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, fmt.Errorf("%w: %w", ErrSessionCancelled, ctxErr)
		}
		return false, fmt.Errorf("%w: send response: %w", ErrTransport, err)
	}
	if fatal != nil {
		return false, fatal
	}

	if isResult && s.result.Delivered() {
		return true, nil
	}
	if dispatching {
		s.transition(ctx, StateAwaitingAgent)
	}
	return false, nil
}

// account updates counters for a finished call and returns a non-nil error
// when a budget is exhausted.
func (s *Session) account(ctx context.Context, call *ToolCallRequest, isResult bool, callErr error) error {
	s.mu.Lock()
	s.stats.ToolCalls++
	if callErr != nil {
		s.stats.ToolErrors++
	}
	s.mu.Unlock()

	if callErr == nil {
		s.consecutiveErrors = 0
		return nil
	}
	toolErr := &ToolError{Tool: call.ToolName, CallID: call.CallID, Err: callErr}

	switch {
	case isResult:
		s.mu.Lock()
		s.stats.ResultRetries++
		attempt := s.stats.ResultRetries
		s.mu.Unlock()

		s.dispatch(ctx, &ResultRejectedEvent{
			SessionID: s.id,
			CallID:    call.CallID,
			Attempt:   attempt,
			Payload:   call.Input,
			Diff:      payloadDiff(s.lastRejected, call.Input),
			Error:     callErr,
		})
		s.lastRejected = call.Input
		if attempt > s.cfg.MaxResultRetries {
			return toolErr
		}
		return nil

	case errors.Is(callErr, ErrUnknownTool):
		s.mu.Lock()
		s.stats.UnknownToolCalls++
		unknown := s.stats.UnknownToolCalls
		s.mu.Unlock()
		if unknown > s.cfg.MaxUnknownToolCalls {
			return toolErr
		}
		return nil

	default:
		s.consecutiveErrors++
		limit := s.cfg.MaxConsecutiveToolErrors
		if limit > 0 && s.consecutiveErrors > limit {
			return fmt.Errorf("%w: %w", ErrToolErrorBudget, toolErr)
		}
		return nil
	}
}

func (s *Session) transition(ctx context.Context, to SessionState) {
	s.mu.Lock()
	from := s.state
	if from == to || from.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = to
	s.transitions = append(s.transitions, to)
	s.mu.Unlock()

	s.dispatch(ctx, &StateChangedEvent{SessionID: s.id, From: from, To: to})
}

func (s *Session) dispatch(ctx context.Context, event Event) {
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, event)
	}
}

// payloadDiff renders a unified diff between two JSON payloads after
// indenting them, so the agent's corrections show up line by line.
func payloadDiff(prev, cur json.RawMessage) string {
	if len(prev) == 0 {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(indentJSON(prev)),
		B:        difflib.SplitLines(indentJSON(cur)),
		FromFile: "previous",
		ToFile:   "current",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return diff
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw) + "\n"
	}
	buf.WriteByte('\n')
	return buf.String()
}
