package tt

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// MockLLM is a scripted llms.Model. Responses are returned in the order
// they were added; once they run out it answers with plain text.
type MockLLM struct {
	mu        sync.Mutex
	responses []*llms.ContentResponse
	errors    []error
	callCount int

	// CapturedMessages holds the messages of every GenerateContent call.
	CapturedMessages [][]llms.MessageContent
	// CapturedOptions holds the resolved call options of every call.
	CapturedOptions []llms.CallOptions
}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// AddText queues a reply without tool calls.
func (m *MockLLM) AddText(content string) *MockLLM {
	return m.add(&llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content, StopReason: "stop"}},
	}, nil)
}

// AddToolCalls queues a reply requesting the given tool calls.
func (m *MockLLM) AddToolCalls(calls ...llms.ToolCall) *MockLLM {
	return m.add(&llms.ContentResponse{
		Choices: []*llms.ContentChoice{{ToolCalls: calls, StopReason: "tool_calls"}},
	}, nil)
}

// AddRawResponse queues resp as is, e.g. one without choices.
func (m *MockLLM) AddRawResponse(resp *llms.ContentResponse) *MockLLM {
	return m.add(resp, nil)
}

func (m *MockLLM) AddError(err error) *MockLLM {
	return m.add(nil, err)
}

func (m *MockLLM) add(resp *llms.ContentResponse, err error) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	m.errors = append(m.errors, err)
	return m
}

func (m *MockLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *MockLLM) GenerateContent(
	ctx context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.callCount
	m.callCount++
	captured := make([]llms.MessageContent, len(messages))
	copy(captured, messages)
	m.CapturedMessages = append(m.CapturedMessages, captured)
	m.CapturedOptions = append(m.CapturedOptions, opts)

	if idx >= len(m.responses) {
		return &llms.ContentResponse{
			Choices: []*llms.ContentChoice{{Content: "done", StopReason: "stop"}},
		}, nil
	}
	return m.responses[idx], m.errors[idx]
}

func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// ToolCall builds a function tool call.
func ToolCall(id, name, arguments string) llms.ToolCall {
	return llms.ToolCall{
		ID:   id,
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      name,
			Arguments: arguments,
		},
	}
}
