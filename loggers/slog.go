package loggers

import (
	"context"
	"log/slog"

	"github.com/rickchristie/think"
)

// Slog reports session events as structured log records. Routine events
// (state changes, tool calls) are logged at Debug, rejections and failed
// tool calls at Warn, and failed sessions at Error.
type Slog struct {
	logger *slog.Logger
}

// NewSlog logs to logger, or to slog.Default when logger is nil.
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger.With("component", "think")}
}

func (l *Slog) OnSessionStarted(ctx context.Context, e *think.SessionStartedEvent) {
	l.logger.InfoContext(ctx, "session started",
		"session", e.SessionID,
		"parent", e.ParentID,
		"tools", e.Tools,
		"prompt_bytes", len(e.Prompt),
	)
}

func (l *Slog) OnStateChanged(ctx context.Context, e *think.StateChangedEvent) {
	l.logger.DebugContext(ctx, "session state changed",
		"session", e.SessionID,
		"from", e.From.String(),
		"to", e.To.String(),
	)
}

func (l *Slog) OnAfterToolCall(ctx context.Context, e *think.AfterToolCallEvent) {
	attrs := []any{
		"session", e.SessionID,
		"call", e.CallID,
		"tool", e.ToolName,
		"duration", e.Duration,
	}
	if e.Error != nil {
		l.logger.WarnContext(ctx, "tool call failed", append(attrs, "error", e.Error)...)
		return
	}
	l.logger.DebugContext(ctx, "tool call finished", attrs...)
}

func (l *Slog) OnResultRejected(ctx context.Context, e *think.ResultRejectedEvent) {
	l.logger.WarnContext(ctx, "result rejected",
		"session", e.SessionID,
		"call", e.CallID,
		"attempt", e.Attempt,
		"error", e.Error,
	)
}

func (l *Slog) OnSessionEnded(ctx context.Context, e *think.SessionEndedEvent) {
	attrs := []any{
		"session", e.SessionID,
		"state", e.State.String(),
		"duration", e.Duration,
		"tool_calls", e.Stats.ToolCalls,
		"tool_errors", e.Stats.ToolErrors,
		"result_retries", e.Stats.ResultRetries,
	}
	if e.Error != nil {
		l.logger.ErrorContext(ctx, "session failed", append(attrs, "error", e.Error)...)
		return
	}
	l.logger.InfoContext(ctx, "session completed", attrs...)
}
