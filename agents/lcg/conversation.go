package lcg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/rickchristie/think"
	"github.com/rickchristie/think/internal/buffer"
)

var errLoopStopped = errors.New("agent loop stopped")

// channel is the think.Channel handed to the session driver. Events flow
// through an unbounded queue; replies are handed over synchronously because
// the loop waits for each one before making the next call.
type channel struct {
	events    *buffer.Queue[think.AgentEvent]
	replies   chan think.ToolResponse
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (c *channel) Recv(ctx context.Context) (think.AgentEvent, error) {
	return c.events.Pop(ctx)
}

func (c *channel) Send(ctx context.Context, resp think.ToolResponse) error {
	select {
	case c.replies <- resp:
		return nil
	case <-c.done:
		return errLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop and waits for its goroutine to return.
func (c *channel) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
		c.events.Close()
	})
	return nil
}

// conversation is the per-session state of the loop.
type conversation struct {
	agent     *Agent
	sessionID string
	messages  []llms.MessageContent
	opts      []llms.CallOption
	ch        *channel
	logger    *slog.Logger
	nudges    int
}

func (c *conversation) run(ctx context.Context) {
	maxTurns := c.agent.maxTurns
	for turn := 1; maxTurns <= 0 || turn <= maxTurns; turn++ {
		resp, err := c.agent.model.GenerateContent(ctx, c.messages, c.opts...)
		if err != nil {
			c.ch.events.CloseWithError(fmt.Errorf("generate content: %w", err))
			return
		}
		if resp == nil || len(resp.Choices) == 0 {
			c.ch.events.CloseWithError(ErrEmptyResponse)
			return
		}
		choice := resp.Choices[0]
		if choice.GenerationInfo != nil {
			c.agent.usage.record(choice.GenerationInfo)
		}
		c.logger.Debug("model turn",
			"turn", turn,
			"tool_calls", len(choice.ToolCalls),
			"stop_reason", choice.StopReason,
		)

		calls := normalizeCalls(choice.ToolCalls)
		if len(calls) == 0 {
			if c.nudges >= c.agent.maxNudges {
				c.end("agent stopped without calling " + think.ResultToolName)
				return
			}
			c.nudges++
			c.messages = append(c.messages,
				llms.TextParts(llms.ChatMessageTypeAI, choice.Content),
				llms.TextParts(llms.ChatMessageTypeHuman, c.agent.nudge),
			)
			continue
		}

		c.messages = append(c.messages, aiMessage(choice.Content, calls))
		delivered, ok := c.dispatch(ctx, calls)
		if !ok || delivered {
			return
		}
	}
	c.end(fmt.Sprintf("turn limit of %d reached", maxTurns))
}

// dispatch hands every call to the session driver in order and records the
// responses. delivered is true once the result tool accepted a value; ok is
// false when the session went away.
func (c *conversation) dispatch(ctx context.Context, calls []llms.ToolCall) (delivered, ok bool) {
	for _, call := range calls {
		c.ch.events.Push(&think.ToolCallRequest{
			CallID:   call.ID,
			ToolName: call.FunctionCall.Name,
			Input:    []byte(call.FunctionCall.Arguments),
		})

		var reply think.ToolResponse
		select {
		case reply = <-c.ch.replies:
		case <-ctx.Done():
			return false, false
		}

		content := string(reply.Output)
		if reply.IsError() {
			content = "error: " + reply.Error
		}
		c.messages = append(c.messages, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: call.ID,
				Name:       call.FunctionCall.Name,
				Content:    content,
			}},
		})

		if think.IsResultTool(call.FunctionCall.Name) && !reply.IsError() {
			return true, true
		}
	}
	return false, true
}

func (c *conversation) end(reason string) {
	c.logger.Debug("agent ended session", "reason", reason)
	c.ch.events.Push(&think.SessionEnd{Reason: reason})
	c.ch.events.Close()
}

// normalizeCalls drops calls without a function, and fills in missing IDs
// and empty arguments so every call can be answered.
func normalizeCalls(calls []llms.ToolCall) []llms.ToolCall {
	out := make([]llms.ToolCall, 0, len(calls))
	for _, call := range calls {
		if call.FunctionCall == nil || call.FunctionCall.Name == "" {
			continue
		}
		fn := *call.FunctionCall
		if strings.TrimSpace(fn.Arguments) == "" {
			fn.Arguments = "{}"
		}
		call.FunctionCall = &fn
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
		}
		if call.Type == "" {
			call.Type = "function"
		}
		out = append(out, call)
	}
	return out
}

func aiMessage(content string, calls []llms.ToolCall) llms.MessageContent {
	parts := make([]llms.ContentPart, 0, len(calls)+1)
	if content != "" {
		parts = append(parts, llms.TextContent{Text: content})
	}
	for _, call := range calls {
		parts = append(parts, call)
	}
	return llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts}
}
