// Package loggers provides event subscribers that log session activity.
package loggers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rickchristie/think"
)

// YAML writes every session event as a timestamped header followed by a
// YAML document. Nothing is truncated, which makes it suited to debugging
// and integration tests rather than production logs.
type YAML struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func NewYAML(w io.Writer) *YAML {
	return &YAML{out: w, now: time.Now}
}

// WithClock replaces the timestamp source.
func (l *YAML) WithClock(now func() time.Time) *YAML {
	l.now = now
	return l
}

func (l *YAML) write(name string, doc any) {
	data, err := yaml.Marshal(doc)

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.out, "\n>>> [%s]: %s\n", name, l.now().Format("2006-01-02 15:04:05.000"))
	if err != nil {
		fmt.Fprintf(l.out, "(failed to marshal: %v)\n", err)
		return
	}
	l.out.Write(data)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// block makes yaml.v3 emit multi-line text as a literal block.
func block(s string) *yaml.Node {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if strings.Contains(s, "\n") {
		node.Style = yaml.LiteralStyle
	}
	return node
}

type sessionStartedDoc struct {
	Session string     `yaml:"session"`
	Parent  string     `yaml:"parent,omitempty"`
	Tools   []string   `yaml:"tools"`
	Prompt  *yaml.Node `yaml:"prompt"`
}

func (l *YAML) OnSessionStarted(_ context.Context, e *think.SessionStartedEvent) {
	l.write("SessionStarted", sessionStartedDoc{
		Session: e.SessionID,
		Parent:  e.ParentID,
		Tools:   e.Tools,
		Prompt:  block(e.Prompt),
	})
}

func (l *YAML) OnStateChanged(_ context.Context, e *think.StateChangedEvent) {
	l.write("StateChanged", map[string]string{
		"session": e.SessionID,
		"from":    e.From.String(),
		"to":      e.To.String(),
	})
}

type toolCallDoc struct {
	Session  string     `yaml:"session"`
	Call     string     `yaml:"call"`
	Tool     string     `yaml:"tool"`
	Input    *yaml.Node `yaml:"input"`
	Output   *yaml.Node `yaml:"output,omitempty"`
	Duration string     `yaml:"duration,omitempty"`
	Error    string     `yaml:"error,omitempty"`
}

func (l *YAML) OnBeforeToolCall(_ context.Context, e *think.BeforeToolCallEvent) {
	l.write("BeforeToolCall", toolCallDoc{
		Session: e.SessionID,
		Call:    e.CallID,
		Tool:    e.ToolName,
		Input:   block(string(e.Input)),
	})
}

func (l *YAML) OnAfterToolCall(_ context.Context, e *think.AfterToolCallEvent) {
	doc := toolCallDoc{
		Session:  e.SessionID,
		Call:     e.CallID,
		Tool:     e.ToolName,
		Input:    block(string(e.Input)),
		Duration: e.Duration.String(),
		Error:    errString(e.Error),
	}
	if e.Output != nil {
		doc.Output = block(string(e.Output))
	}
	l.write("AfterToolCall", doc)
}

type resultRejectedDoc struct {
	Session string     `yaml:"session"`
	Call    string     `yaml:"call"`
	Attempt int        `yaml:"attempt"`
	Error   string     `yaml:"error"`
	Payload *yaml.Node `yaml:"payload"`
	Diff    *yaml.Node `yaml:"diff,omitempty"`
}

func (l *YAML) OnResultRejected(_ context.Context, e *think.ResultRejectedEvent) {
	doc := resultRejectedDoc{
		Session: e.SessionID,
		Call:    e.CallID,
		Attempt: e.Attempt,
		Error:   errString(e.Error),
		Payload: block(string(e.Payload)),
	}
	if e.Diff != "" {
		doc.Diff = block(e.Diff)
	}
	l.write("ResultRejected", doc)
}

type sessionEndedDoc struct {
	Session  string             `yaml:"session"`
	Parent   string             `yaml:"parent,omitempty"`
	State    string             `yaml:"state"`
	Duration string             `yaml:"duration"`
	Error    string             `yaml:"error,omitempty"`
	Stats    think.SessionStats `yaml:"stats"`
}

func (l *YAML) OnSessionEnded(_ context.Context, e *think.SessionEndedEvent) {
	l.write("SessionEnded", sessionEndedDoc{
		Session:  e.SessionID,
		Parent:   e.ParentID,
		State:    e.State.String(),
		Duration: e.Duration.String(),
		Error:    errString(e.Error),
		Stats:    e.Stats,
	})
}
