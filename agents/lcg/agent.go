// Package lcg runs think sessions against any langchaingo llms.Model that
// supports native tool calling.
//
//	llm, _ := openai.New()
//	engine, _ := think.New(lcg.NewAgent(llm).WithMaxTurns(20))
package lcg

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/tmc/langchaingo/llms"

	"github.com/rickchristie/think"
	"github.com/rickchristie/think/internal/buffer"
)

// ErrEmptyResponse is returned when the model answers without any choice.
var ErrEmptyResponse = errors.New("model returned no choices")

//go:embed system.tmpl
var systemTemplateContent string

// DefaultSystemTemplate renders the system message from SystemPromptData.
var DefaultSystemTemplate = template.Must(template.New("lcg_system").Parse(systemTemplateContent))

// DefaultNudge is sent when the model replies with text instead of a tool call.
const DefaultNudge = "You have not called " + think.ResultToolName + " yet. " +
	"Continue with the task and call " + think.ResultToolName + " with the final value."

// SystemPromptData is passed to the system template.
type SystemPromptData struct {
	Instructions string
	// Referenced lists the tools the prompt names explicitly.
	Referenced []think.ToolDescriptor
	Tools      []think.ToolDescriptor
	ResultTool string
}

// ----------------------------------------------------------------------------
// Agent
// ----------------------------------------------------------------------------

// Agent implements think.Collaborator on top of an llms.Model. Each session
// runs its own conversation loop in a goroutine: the model is asked for the
// next step, every tool call it makes is handed to the session driver one at
// a time, and the responses are fed back as tool messages.
type Agent struct {
	model          llms.Model
	callOptions    []llms.CallOption
	systemTemplate *template.Template
	maxTurns       int
	maxNudges      int
	nudge          string
	logger         *slog.Logger
	usage          usageMeter
}

// NewAgent creates an Agent with these defaults:
//   - MaxTurns: 25
//   - MaxNudges: 2, with DefaultNudge
//   - SystemTemplate: DefaultSystemTemplate
func NewAgent(model llms.Model) *Agent {
	return &Agent{
		model:          model,
		systemTemplate: DefaultSystemTemplate,
		maxTurns:       25,
		maxNudges:      2,
		nudge:          DefaultNudge,
		logger:         slog.New(slog.DiscardHandler),
	}
}

// WithMaxTurns limits the number of model calls per session. Zero or less
// removes the limit.
func (a *Agent) WithMaxTurns(n int) *Agent {
	a.maxTurns = n
	return a
}

// WithNudges sets how many times a text-only reply is answered with nudge
// before the session ends without a result. An empty nudge keeps the
// current text.
func (a *Agent) WithNudges(n int, nudge string) *Agent {
	a.maxNudges = n
	if nudge != "" {
		a.nudge = nudge
	}
	return a
}

// WithCallOptions appends options passed to every GenerateContent call,
// e.g. llms.WithTemperature.
func (a *Agent) WithCallOptions(opts ...llms.CallOption) *Agent {
	a.callOptions = append(a.callOptions, opts...)
	return a
}

func (a *Agent) WithSystemTemplate(tmpl *template.Template) *Agent {
	a.systemTemplate = tmpl
	return a
}

// WithSystemTemplateString parses tmplStr as a text/template over
// SystemPromptData.
func (a *Agent) WithSystemTemplateString(tmplStr string) (*Agent, error) {
	tmpl, err := template.New("lcg_system").Parse(tmplStr)
	if err != nil {
		return a, fmt.Errorf("failed to parse template: %w", err)
	}
	a.systemTemplate = tmpl
	return a, nil
}

func (a *Agent) WithLogger(logger *slog.Logger) *Agent {
	a.logger = logger
	return a
}

// Usage returns the token usage summed over all sessions so far.
func (a *Agent) Usage() Usage {
	return a.usage.snapshot()
}

// OpenSession starts the conversation loop for req. The loop stops when the
// returned channel is closed or ctx is done.
func (a *Agent) OpenSession(ctx context.Context, req think.SessionRequest) (think.Channel, error) {
	system, err := a.renderSystem(req)
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	ch := &channel{
		events:  buffer.NewQueue[think.AgentEvent](),
		replies: make(chan think.ToolResponse),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	messages := make([]llms.MessageContent, 0, 8)
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	opts := make([]llms.CallOption, 0, len(a.callOptions)+1)
	opts = append(opts, a.callOptions...)
	opts = append(opts, llms.WithTools(toolDefinitions(req.Tools)))

	c := &conversation{
		agent:     a,
		sessionID: req.SessionID,
		messages:  messages,
		opts:      opts,
		ch:        ch,
		logger:    a.logger.With("session_id", req.SessionID),
	}
	go func() {
		defer close(ch.done)
		c.run(loopCtx)
	}()
	return ch, nil
}

func (a *Agent) renderSystem(req think.SessionRequest) (string, error) {
	if a.systemTemplate == nil {
		return req.Instructions, nil
	}
	data := SystemPromptData{
		Instructions: req.Instructions,
		Tools:        req.Tools,
		ResultTool:   think.ResultToolName,
	}
	for _, d := range req.Tools {
		if d.Referenced {
			data.Referenced = append(data.Referenced, d)
		}
	}

	var buf bytes.Buffer
	if err := a.systemTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// toolDefinitions converts the manifest to langchaingo function tools.
func toolDefinitions(descriptors []think.ToolDescriptor) []llms.Tool {
	tools := make([]llms.Tool, 0, len(descriptors))
	for _, d := range descriptors {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.InputSchema,
			},
		})
	}
	return tools
}

// Compile-time check that Agent implements think.Collaborator.
var _ think.Collaborator = (*Agent)(nil)
