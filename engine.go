package think

import (
	"errors"

	"github.com/google/uuid"
)

// Engine holds what every session shares: the agent collaborator, the
// configuration and the event dispatcher. An Engine is safe for concurrent
// use; each builder it creates is not.
type Engine struct {
	collab     Collaborator
	cfg        Config
	codec      Codec
	dispatcher Dispatcher
	newID      func() string
}

// Option configures an Engine.
type Option func(*Engine)

func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithCodec replaces the JSON codec used for tool payloads.
func WithCodec(codec Codec) Option {
	return func(e *Engine) { e.codec = codec }
}

// WithDispatcher publishes session events to d, usually an events.Registry.
func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) { e.dispatcher = d }
}

// WithIDGenerator replaces the session ID generator (UUIDv7 by default).
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New creates an Engine that runs sessions on collab.
func New(collab Collaborator, opts ...Option) (*Engine, error) {
	if collab == nil {
		return nil, errors.New("nil collaborator")
	}

	e := &Engine{
		collab: collab,
		cfg:    DefaultConfig(),
		newID:  newSessionID,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if e.codec == nil {
		e.codec = DefaultCodec
		if e.cfg.StrictInputs {
			e.codec = NewJSONCodec(true)
		}
	}
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }

func newSessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}
