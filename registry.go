package think

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rickchristie/think/schema"
)

// ToolDescriptor is what the agent is told about a tool.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
	// Referenced is true when the prompt mentions the tool inline.
	Referenced bool
}

type registeredTool struct {
	tool       Tool
	validator  *schema.Schema
	referenced bool
}

// Registry holds the tools of a single session and serializes their
// execution: at most one callable runs at any instant. Each session owns its
// own Registry, so a callable that starts a nested session does not block on
// itself.
//
// Registration is not meant to race with Invoke; tools are registered while
// the prompt is assembled and the registry is read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]*registeredTool
	order    []string
	reserved map[string]bool
	codec    Codec

	// slot has capacity one; holding its token means a callable is running.
	slot chan struct{}
}

// NewRegistry returns an empty registry. The result tool name is reserved.
func NewRegistry(codec Codec) *Registry {
	if codec == nil {
		codec = DefaultCodec
	}
	return &Registry{
		tools:    make(map[string]*registeredTool),
		reserved: map[string]bool{ResultToolName: true},
		codec:    codec,
		slot:     make(chan struct{}, 1),
	}
}

// Register adds a tool. It fails with ErrDuplicateToolName if the name is
// taken or reserved, and with ErrInvalidTool if the tool has no name or its
// schema does not compile. A failed Register leaves the registry unchanged.
func (r *Registry) Register(tool Tool) error {
	if tool != nil && r.isReserved(tool.Name()) {
		return fmt.Errorf("%w: %q is reserved", ErrDuplicateToolName, tool.Name())
	}
	return r.add(tool)
}

// registerReserved installs a tool under a reserved name.
func (r *Registry) registerReserved(tool Tool) error {
	return r.add(tool)
}

func (r *Registry) isReserved(name string) bool {
	return r.reserved[name]
}

func (r *Registry) add(tool Tool) error {
	if tool == nil || tool.Name() == "" {
		return fmt.Errorf("%w: tool must have a name", ErrInvalidTool)
	}
	name := tool.Name()

	validator, err := schema.Compile(tool.InputSchema())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidTool, name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateToolName, name)
	}
	r.tools[name] = &registeredTool{tool: tool, validator: validator}
	r.order = append(r.order, name)
	return nil
}

// MarkReferenced records that the prompt mentions name inline.
func (r *Registry) MarkReferenced(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rt, ok := r.tools[name]; ok {
		rt.referenced = true
	}
}

// Resolve looks up a tool by name.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return rt.tool, nil
}

// Names lists tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Manifest describes every registered tool in registration order.
func (r *Registry) Manifest() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		rt := r.tools[name]
		out = append(out, ToolDescriptor{
			Name:        name,
			Description: rt.tool.Description(),
			InputSchema: rt.tool.InputSchema(),
			Referenced:  rt.referenced,
		})
	}
	return out
}

// Busy reports whether a callable currently holds the invocation slot.
func (r *Registry) Busy() bool {
	return len(r.slot) == 1
}

// Invoke validates input against the tool's schema and runs the tool while
// holding the invocation slot. A second Invoke waits for the slot or for ctx.
func (r *Registry) Invoke(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	rt, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if err := rt.validator.ValidateJSON(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputDecode, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case r.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-r.slot }()

	// select picks randomly when ctx was cancelled while the slot freed up.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rt.tool.Invoke(ctx, r.codec, input)
}
