package loggers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rickchristie/think"
	"github.com/rickchristie/think/events"
	"github.com/rickchristie/think/internal/tt"
	"github.com/rickchristie/think/loggers"
)

func runSession(t *testing.T, subscriber any, steps ...tt.Step) error {
	t.Helper()
	agent := tt.NewScriptedAgent().Script(steps...)
	registry := events.NewRegistry().Subscribe(subscriber)
	engine, err := think.New(agent,
		think.WithDispatcher(registry),
		think.WithIDGenerator(func() string { return "sess" }),
	)
	require.NoError(t, err)

	echo := think.NewTool("echo", "Echo the input",
		func(ctx context.Context, in struct {
			Text string `json:"text"`
		}) (string, error) {
			return in.Text, nil
		})

	_, err = think.Think[string](engine).Text("Echo hi with").Tool(echo).Run(context.Background())
	return err
}

func TestYAML_WritesEveryEvent(t *testing.T) {
	var buf bytes.Buffer
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	logger := loggers.NewYAML(&buf).WithClock(func() time.Time { return fixed })

	err := runSession(t, logger,
		tt.Call("echo", `{"text":"hi"}`),
		tt.Result(`1`),
		tt.Result(`"hi"`),
	)
	require.NoError(t, err)

	out := buf.String()
	for _, header := range []string{
		"SessionStarted", "StateChanged", "BeforeToolCall", "AfterToolCall",
		"ResultRejected", "SessionEnded",
	} {
		assert.Contains(t, out, ">>> ["+header+"]: 2024-03-01 12:00:00.000")
	}
	assert.Contains(t, out, "session: sess")
	assert.Contains(t, out, "tool: echo")
	assert.Contains(t, out, "state: completed")
	assert.Contains(t, out, "result_retries: 1")

	// Every document after a header parses as YAML.
	chunks := strings.Split(out, ">>> [")
	for _, chunk := range chunks[1:] {
		_, body, found := strings.Cut(chunk, "\n")
		require.True(t, found)
		var doc map[string]any
		assert.NoError(t, yaml.Unmarshal([]byte(body), &doc), body)
	}
}

func TestYAML_MultilinePromptIsLiteralBlock(t *testing.T) {
	var buf bytes.Buffer
	logger := loggers.NewYAML(&buf)

	logger.OnSessionStarted(context.Background(), &think.SessionStartedEvent{
		SessionID: "s",
		Prompt:    "line one\nline two",
	})

	assert.Contains(t, buf.String(), "prompt: |-\n    line one\n    line two")
}

func TestSlog_Levels(t *testing.T) {
	type expected struct {
		messages []string
		levels   []string
	}

	tests := []struct {
		name     string
		input    []tt.Step
		expected expected
	}{
		{
			name:  "completed session",
			input: []tt.Step{tt.Call("echo", `{"text":"hi"}`), tt.Result(`"hi"`)},
			expected: expected{
				messages: []string{"session started", "tool call finished", "tool call finished", "session completed"},
				levels:   []string{"INFO", "DEBUG", "DEBUG", "INFO"},
			},
		},
		{
			name:  "failed tool and rejected result then no result",
			input: []tt.Step{tt.Call("echo", `{}`), tt.Result(`2`), tt.End("bored")},
			expected: expected{
				messages: []string{
					"session started", "tool call failed", "tool call failed", "result rejected", "session failed",
				},
				levels: []string{"INFO", "WARN", "WARN", "WARN", "ERROR"},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			_ = runSession(t, loggers.NewSlog(slog.New(handler)), tc.input...)

			var messages, levels []string
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				var rec map[string]any
				require.NoError(t, json.Unmarshal([]byte(line), &rec))
				assert.Equal(t, "think", rec["component"])
				if rec["msg"] == "session state changed" {
					continue
				}
				messages = append(messages, rec["msg"].(string))
				levels = append(levels, rec["level"].(string))
			}
			assert.Equal(t, tc.expected.messages, messages)
			assert.Equal(t, tc.expected.levels, levels)
		})
	}
}
