// Package tt holds test doubles shared by the package tests.
package tt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rickchristie/think"
)

// -----------------------------------------------------------------------------
// Script steps
// -----------------------------------------------------------------------------

// Step is one scripted agent action.
type Step struct {
	call  *think.ToolCallRequest
	end   *think.SessionEnd
	err   error
	block bool
	do    func()
}

// Call makes the agent call tool with a JSON input. Call IDs are assigned
// as call-1, call-2... per session.
func Call(tool, input string) Step {
	return Step{call: &think.ToolCallRequest{ToolName: tool, Input: json.RawMessage(input)}}
}

// Result calls return_result with {"result": value}.
func Result(value string) Step {
	return Call(think.ResultToolName, `{"result":`+value+`}`)
}

// End makes the agent stop without a result.
func End(reason string) Step {
	return Step{end: &think.SessionEnd{Reason: reason}}
}

// Fail makes Recv return err.
func Fail(err error) Step {
	return Step{err: err}
}

// Block makes Recv wait until its context is done.
func Block() Step {
	return Step{block: true}
}

// Do runs fn when the script reaches it and moves on to the next step.
func Do(fn func()) Step {
	return Step{do: fn}
}

// -----------------------------------------------------------------------------
// ScriptedAgent
// -----------------------------------------------------------------------------

// ScriptedAgent is a think.Collaborator that replays scripts. Every
// OpenSession consumes the next script, so a nested session gets the script
// queued after its parent's.
type ScriptedAgent struct {
	mu       sync.Mutex
	scripts  [][]Step
	openErr  error
	sessions []*ScriptedSession
}

func NewScriptedAgent() *ScriptedAgent {
	return &ScriptedAgent{}
}

// Script queues the steps of one session.
func (a *ScriptedAgent) Script(steps ...Step) *ScriptedAgent {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scripts = append(a.scripts, steps)
	return a
}

// FailOpen makes every OpenSession fail with err.
func (a *ScriptedAgent) FailOpen(err error) *ScriptedAgent {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.openErr = err
	return a
}

func (a *ScriptedAgent) OpenSession(_ context.Context, req think.SessionRequest) (think.Channel, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.openErr != nil {
		return nil, a.openErr
	}

	var steps []Step
	if len(a.scripts) > 0 {
		steps = a.scripts[0]
		a.scripts = a.scripts[1:]
	}
	s := &ScriptedSession{request: req, steps: steps}
	a.sessions = append(a.sessions, s)
	return s, nil
}

// Sessions returns the sessions opened so far, in order.
func (a *ScriptedAgent) Sessions() []*ScriptedSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*ScriptedSession, len(a.sessions))
	copy(out, a.sessions)
	return out
}

// ScriptedSession is the think.Channel handed out by ScriptedAgent.
type ScriptedSession struct {
	mu        sync.Mutex
	request   think.SessionRequest
	steps     []Step
	next      int
	calls     int
	responses []think.ToolResponse
	closed    int
}

func (s *ScriptedSession) Recv(ctx context.Context) (think.AgentEvent, error) {
	for {
		s.mu.Lock()
		if s.next >= len(s.steps) {
			s.mu.Unlock()
			return &think.SessionEnd{Reason: "script exhausted"}, nil
		}
		step := s.steps[s.next]
		s.next++
		if step.call != nil {
			s.calls++
			call := *step.call
			if call.CallID == "" {
				call.CallID = fmt.Sprintf("call-%d", s.calls)
			}
			s.mu.Unlock()
			return &call, nil
		}
		s.mu.Unlock()

		switch {
		case step.do != nil:
			step.do()
		case step.block:
			<-ctx.Done()
			return nil, ctx.Err()
		case step.err != nil:
			return nil, step.err
		case step.end != nil:
			return step.end, nil
		}
	}
}

func (s *ScriptedSession) Send(_ context.Context, resp think.ToolResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, resp)
	return nil
}

func (s *ScriptedSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *ScriptedSession) Request() think.SessionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}

func (s *ScriptedSession) Responses() []think.ToolResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]think.ToolResponse, len(s.responses))
	copy(out, s.responses)
	return out
}

// CloseCount reports how many times Close was called.
func (s *ScriptedSession) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
