// Package observer turns session events into OpenTelemetry traces and
// metrics.
//
// Each session becomes a "think.session" span and each tool call a
// "think.tool" child span. A session started from inside a tool callable
// is parented to that tool's span. Exporters and providers are configured
// by the embedding program; by default the global providers are used.
package observer

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rickchristie/think"
)

const scopeName = "github.com/rickchristie/think/observer"

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

type Option func(*options)

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// Subscriber implements the think subscriber interfaces. Register it with
// an events.Registry.
type Subscriber struct {
	tracer trace.Tracer

	sessions         metric.Int64Counter
	sessionDuration  metric.Float64Histogram
	toolCalls        metric.Int64Counter
	toolDuration     metric.Float64Histogram
	resultRejections metric.Int64Counter

	mu    sync.Mutex
	open  map[string]context.Context // session ID -> ctx carrying its span
	tools map[callKey]context.Context
}

type callKey struct {
	session string
	call    string
}

func New(opts ...Option) (*Subscriber, error) {
	o := options{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	meter := o.meterProvider.Meter(scopeName)
	s := &Subscriber{
		tracer: o.tracerProvider.Tracer(scopeName),
		open:   make(map[string]context.Context),
		tools:  make(map[callKey]context.Context),
	}

	var err error
	if s.sessions, err = meter.Int64Counter("think.sessions",
		metric.WithDescription("Finished sessions by final state"),
		metric.WithUnit("{session}")); err != nil {
		return nil, err
	}
	if s.sessionDuration, err = meter.Float64Histogram("think.session.duration",
		metric.WithDescription("Session duration"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if s.toolCalls, err = meter.Int64Counter("think.tool.calls",
		metric.WithDescription("Tool calls by tool and status"),
		metric.WithUnit("{call}")); err != nil {
		return nil, err
	}
	if s.toolDuration, err = meter.Float64Histogram("think.tool.duration",
		metric.WithDescription("Tool call duration"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if s.resultRejections, err = meter.Int64Counter("think.result.rejections",
		metric.WithDescription("Rejected return_result payloads"),
		metric.WithUnit("{rejection}")); err != nil {
		return nil, err
	}
	return s, nil
}

// parentContext picks the span a new session hangs off: the tool call that
// started it when there is one, otherwise the parent session.
func (s *Subscriber) parentContext(ctx context.Context, parentID string) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info, ok := think.CallInfoFrom(ctx); ok {
		if toolCtx, ok := s.tools[callKey{info.SessionID, info.CallID}]; ok {
			return toolCtx
		}
	}
	if parentCtx, ok := s.open[parentID]; ok && parentID != "" {
		return parentCtx
	}
	return ctx
}

func (s *Subscriber) OnSessionStarted(ctx context.Context, e *think.SessionStartedEvent) {
	parent := s.parentContext(ctx, e.ParentID)
	spanCtx, _ := s.tracer.Start(parent, "think.session",
		trace.WithTimestamp(e.Timestamp),
		trace.WithAttributes(
			AttrSessionID.String(e.SessionID),
			AttrParentSession.String(e.ParentID),
			AttrToolCount.Int(len(e.Tools)),
			AttrPromptLength.Int(len(e.Prompt)),
		))

	s.mu.Lock()
	s.open[e.SessionID] = spanCtx
	s.mu.Unlock()
}

func (s *Subscriber) sessionContext(id string) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.open[id]
	return ctx, ok
}

func (s *Subscriber) OnStateChanged(_ context.Context, e *think.StateChangedEvent) {
	ctx, ok := s.sessionContext(e.SessionID)
	if !ok {
		return
	}
	trace.SpanFromContext(ctx).AddEvent("state_changed", trace.WithAttributes(
		AttrStateFrom.String(e.From.String()),
		AttrStateTo.String(e.To.String()),
	))
}

func (s *Subscriber) OnBeforeToolCall(ctx context.Context, e *think.BeforeToolCallEvent) {
	parent, ok := s.sessionContext(e.SessionID)
	if !ok {
		parent = ctx
	}
	toolCtx, _ := s.tracer.Start(parent, "think.tool", trace.WithAttributes(
		AttrSessionID.String(e.SessionID),
		AttrToolName.String(e.ToolName),
		AttrToolCallID.String(e.CallID),
	))

	s.mu.Lock()
	s.tools[callKey{e.SessionID, e.CallID}] = toolCtx
	s.mu.Unlock()
}

func (s *Subscriber) OnAfterToolCall(ctx context.Context, e *think.AfterToolCallEvent) {
	key := callKey{e.SessionID, e.CallID}
	s.mu.Lock()
	toolCtx, ok := s.tools[key]
	delete(s.tools, key)
	s.mu.Unlock()

	status := "ok"
	if e.Error != nil {
		status = "error"
	}

	if ok {
		span := trace.SpanFromContext(toolCtx)
		if e.Error != nil {
			span.RecordError(e.Error)
			span.SetStatus(codes.Error, e.Error.Error())
		}
		span.SetAttributes(
			AttrToolStatus.String(status),
			AttrOutputLength.Int(len(e.Output)),
		)
		span.End()
	}

	s.toolCalls.Add(ctx, 1, metric.WithAttributes(
		AttrToolName.String(e.ToolName),
		attribute.String("status", status),
	))
	s.toolDuration.Record(ctx, durationMs(e.Duration), metric.WithAttributes(
		AttrToolName.String(e.ToolName),
	))
}

func (s *Subscriber) OnResultRejected(ctx context.Context, e *think.ResultRejectedEvent) {
	if sessionCtx, ok := s.sessionContext(e.SessionID); ok {
		trace.SpanFromContext(sessionCtx).AddEvent("result_rejected", trace.WithAttributes(
			AttrAttempt.Int(e.Attempt),
		))
	}
	s.resultRejections.Add(ctx, 1)
}

func (s *Subscriber) OnSessionEnded(ctx context.Context, e *think.SessionEndedEvent) {
	s.mu.Lock()
	sessionCtx, ok := s.open[e.SessionID]
	delete(s.open, e.SessionID)
	s.mu.Unlock()

	if ok {
		span := trace.SpanFromContext(sessionCtx)
		span.SetAttributes(
			AttrSessionState.String(e.State.String()),
			AttrToolCalls.Int(e.Stats.ToolCalls),
			AttrResultRetries.Int(e.Stats.ResultRetries),
		)
		if e.Error != nil {
			span.RecordError(e.Error)
			span.SetStatus(codes.Error, e.Error.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}

	s.sessions.Add(ctx, 1, metric.WithAttributes(AttrSessionState.String(e.State.String())))
	s.sessionDuration.Record(ctx, durationMs(e.Duration))
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
