package mcpbridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickchristie/think"
)

func newTestSession() *session {
	return newSession(think.DefaultCodec)
}

func TestSession_RoutesResponsesByCallID(t *testing.T) {
	s := newTestSession()
	ctx := context.Background()

	type outcome struct {
		resp think.ToolResponse
		err  error
	}
	results := make(chan outcome, 2)
	for _, name := range []string{"first", "second"} {
		go func() {
			resp, err := s.call(ctx, name, json.RawMessage(`{}`))
			results <- outcome{resp, err}
		}()
	}

	calls := map[string]*think.ToolCallRequest{}
	for range 2 {
		ev, err := s.Recv(ctx)
		require.NoError(t, err)
		call := ev.(*think.ToolCallRequest)
		calls[call.ToolName] = call
	}

	require.NoError(t, s.Send(ctx, think.ToolResponse{CallID: calls["second"].CallID, Output: json.RawMessage(`2`)}))
	require.NoError(t, s.Send(ctx, think.ToolResponse{CallID: calls["first"].CallID, Output: json.RawMessage(`1`)}))

	got := map[string]bool{}
	for range 2 {
		o := <-results
		require.NoError(t, o.err)
		got[string(o.resp.Output)] = true
	}
	assert.Equal(t, map[string]bool{"1": true, "2": true}, got)
}

func TestSession_SendUnknownCallID(t *testing.T) {
	s := newTestSession()
	err := s.Send(context.Background(), think.ToolResponse{CallID: "nope"})
	assert.ErrorIs(t, err, ErrUnknownCallID)
}

func TestSession_CloseReleasesWaitingCalls(t *testing.T) {
	s := newTestSession()

	done := make(chan error, 1)
	go func() {
		_, err := s.call(context.Background(), "slow", json.RawMessage(`{}`))
		done <- err
	}()

	_, err := s.Recv(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSessionClosed)
	case <-time.After(time.Second):
		t.Fatal("call did not return after Close")
	}

	_, err = s.call(context.Background(), "late", nil)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_CallHonoursContext(t *testing.T) {
	s := newTestSession()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.call(ctx, "slow", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.pending)
}

func TestSession_AbandonedQueuedCallIsSkipped(t *testing.T) {
	s := newTestSession()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := s.call(ctx, "gone", json.RawMessage(`{}`))
		done <- err
	}()
	require.Eventually(t, func() bool { return s.events.Len() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	go func() { _, _ = s.call(context.Background(), "next", json.RawMessage(`{}`)) }()

	ev, err := s.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "next", ev.(*think.ToolCallRequest).ToolName)
}

func TestSession_ResponseToAbandonedCallIsDropped(t *testing.T) {
	s := newTestSession()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := s.call(ctx, "slow", json.RawMessage(`{}`))
		done <- err
	}()
	ev, err := s.Recv(context.Background())
	require.NoError(t, err)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	call := ev.(*think.ToolCallRequest)
	assert.NoError(t, s.Send(context.Background(), think.ToolResponse{CallID: call.CallID, Output: json.RawMessage(`1`)}))

	// The ID is forgotten once its response is dropped.
	err = s.Send(context.Background(), think.ToolResponse{CallID: call.CallID})
	assert.ErrorIs(t, err, ErrUnknownCallID)
}

// fixedCollaborator hands out one prepared session.
type fixedCollaborator struct {
	s *session
}

func (c fixedCollaborator) OpenSession(ctx context.Context, req think.SessionRequest) (think.Channel, error) {
	return c.s, nil
}

func TestSession_CancelledHandlerDoesNotFailTheRun(t *testing.T) {
	s := newTestSession()
	engine, err := think.New(fixedCollaborator{s: s})
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	slow := think.NewTool("slow", "Waits to be released",
		func(ctx context.Context, in struct{}) (string, error) {
			close(started)
			<-release
			return "done", nil
		})

	type outcome struct {
		value   int
		session *think.Session
		err     error
	}
	finished := make(chan outcome, 1)
	go func() {
		value, session, err := think.Think[int](engine).Text("Wait for").Tool(slow).RunSession(context.Background())
		finished <- outcome{value, session, err}
	}()

	callCtx, cancel := context.WithCancel(context.Background())
	abandoned := make(chan error, 1)
	go func() {
		_, err := s.call(callCtx, "slow", json.RawMessage(`{}`))
		abandoned <- err
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-abandoned, context.Canceled)
	close(release)

	go func() { _, _ = s.call(context.Background(), think.ResultToolName, json.RawMessage(`{"result":7}`)) }()

	select {
	case o := <-finished:
		require.NoError(t, o.err)
		assert.Equal(t, 7, o.value)
		assert.Equal(t, think.StateCompleted, o.session.State())
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
}
