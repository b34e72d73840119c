package think

import (
	"context"
	"fmt"
)

// Builder assembles one prompt and its tools, then runs it as a session
// producing a T. Construction errors are kept and returned by Run, so calls
// can be chained freely. A Builder is single-use and not safe for
// concurrent use.
type Builder[T any] struct {
	engine       *Engine
	prompt       *Prompt
	registry     *Registry
	preamble     bool
	instructions string
	validate     func(T) error
	err          error
	consumed     bool
}

// Think starts a builder whose session result decodes into T.
func Think[T any](e *Engine) *Builder[T] {
	return &Builder[T]{
		engine:       e,
		prompt:       NewPrompt(e.cfg.ToolTag),
		registry:     NewRegistry(e.codec),
		preamble:     !e.cfg.DisablePreamble,
		instructions: e.cfg.Instructions,
	}
}

func (b *Builder[T]) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Text appends literal text.
func (b *Builder[T]) Text(text string) *Builder[T] {
	b.prompt.Append(Literal(text))
	return b
}

// Textln appends literal text followed by a newline.
func (b *Builder[T]) Textln(text string) *Builder[T] {
	b.prompt.Append(Literal(text + "\n"))
	return b
}

// Display appends value in its user-facing form.
func (b *Builder[T]) Display(value any) *Builder[T] {
	b.prompt.Append(Rendered(value, RenderDisplay))
	return b
}

// Displayf appends a formatted value in its user-facing form.
func (b *Builder[T]) Displayf(format string, args ...any) *Builder[T] {
	b.prompt.Append(Rendered(fmt.Sprintf(format, args...), RenderDisplay))
	return b
}

// Debug appends value in Go syntax, e.g. quoted strings and field names.
func (b *Builder[T]) Debug(value any) *Builder[T] {
	b.prompt.Append(Rendered(value, RenderDebug))
	return b
}

// Tool registers tool and mentions it at this point of the prompt.
func (b *Builder[T]) Tool(tool Tool) *Builder[T] {
	if err := b.registry.Register(tool); err != nil {
		b.fail(err)
		return b
	}
	b.prompt.Append(ToolReference(tool.Name()))
	return b
}

// DefineTool registers tool without mentioning it in the prompt. The agent
// still sees it in the tool manifest.
func (b *Builder[T]) DefineTool(tool Tool) *Builder[T] {
	if err := b.registry.Register(tool); err != nil {
		b.fail(err)
	}
	return b
}

// Mention refers to a tool by name. The tool must be defined by the time
// Run is called.
func (b *Builder[T]) Mention(name string) *Builder[T] {
	b.prompt.Append(ToolReference(name))
	return b
}

// ExplicitSpacing joins segments verbatim. It must be called before the
// first segment is appended.
func (b *Builder[T]) ExplicitSpacing() *Builder[T] {
	if err := b.prompt.SetSpacing(SpacingExplicit); err != nil {
		b.fail(err)
	}
	return b
}

// WithoutPreamble drops the standard task preamble.
func (b *Builder[T]) WithoutPreamble() *Builder[T] {
	b.preamble = false
	return b
}

// Instructions replaces the session-level instructions sent to the agent.
func (b *Builder[T]) Instructions(text string) *Builder[T] {
	b.instructions = text
	return b
}

// Validate installs a check on the decoded result. A non-nil error rejects
// the result and the agent is asked to try again, within the configured
// retry budget.
func (b *Builder[T]) Validate(fn func(T) error) *Builder[T] {
	b.validate = fn
	return b
}

// Err returns the first construction error, if any.
func (b *Builder[T]) Err() error {
	return b.err
}

// Render returns the full prompt text, preamble included, as the agent
// would receive it.
func (b *Builder[T]) Render() string {
	segments := b.prompt.Segments()
	if b.preamble {
		lines := b.engine.cfg.Preamble
		pre := make([]Segment, 0, len(lines)+len(segments))
		for _, line := range lines {
			pre = append(pre, Literal(line+"\n"))
		}
		segments = append(pre, segments...)
	}
	return renderSegments(segments, b.prompt.Spacing(), b.engine.cfg.ToolTag)
}

// Run executes the prompt and returns the agent's result.
func (b *Builder[T]) Run(ctx context.Context) (T, error) {
	value, _, err := b.RunSession(ctx)
	return value, err
}

// RunSession is like Run but also returns the finished session for
// inspection. The session is nil when the builder failed before the agent
// was contacted.
func (b *Builder[T]) RunSession(ctx context.Context) (T, *Session, error) {
	var zero T
	if b.consumed {
		return zero, nil, ErrBuilderConsumed
	}
	b.consumed = true
	if b.err != nil {
		return zero, nil, b.err
	}

	for _, name := range b.prompt.ToolReferences() {
		if _, err := b.registry.Resolve(name); err != nil {
			return zero, nil, fmt.Errorf("%w: %s", ErrDanglingToolReference, name)
		}
		b.registry.MarkReferenced(name)
	}

	result := newResultTool[T](b.validate)
	if err := b.registry.registerReserved(result); err != nil {
		return zero, nil, err
	}

	var parentID string
	if info, ok := CallInfoFrom(ctx); ok {
		parentID = info.SessionID
	}

	session := newSession(sessionParams{
		id:           b.engine.newID(),
		parentID:     parentID,
		prompt:       b.Render(),
		instructions: b.instructions,
		registry:     b.registry,
		result:       result,
		collab:       b.engine.collab,
		dispatcher:   b.engine.dispatcher,
		cfg:          b.engine.cfg,
	})
	if err := session.Run(ctx); err != nil {
		return zero, session, err
	}
	return result.Value(), session, nil
}
