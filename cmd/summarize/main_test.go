package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickchristie/think"
	"github.com/rickchristie/think/agents/lcg"
)

func TestParseFlags(t *testing.T) {
	type expected struct {
		opts options
		err  bool
	}

	tests := []struct {
		name     string
		input    []string
		expected expected
	}{
		{
			name:  "defaults",
			input: nil,
			expected: expected{opts: options{
				dir: ".", pattern: "**/*", exclude: ".git/**,**/node_modules/**",
				model: "gpt-4o-mini", logFormat: "none", maxBytes: 32 * 1024, maxTurns: 40,
			}},
		},
		{
			name:  "overrides",
			input: []string{"-dir", "src", "-pattern", "**/*.go", "-log", "yaml", "-interactive"},
			expected: expected{opts: options{
				dir: "src", pattern: "**/*.go", exclude: ".git/**,**/node_modules/**",
				model: "gpt-4o-mini", logFormat: "yaml", maxBytes: 32 * 1024, maxTurns: 40,
				interactive: true,
			}},
		},
		{
			name:     "unknown log format",
			input:    []string{"-log", "json"},
			expected: expected{err: true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts, err := parseFlags(tc.input)
			if tc.expected.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected.opts, opts)
		})
	}
}

func TestSplitPatterns(t *testing.T) {
	assert.Equal(t, []string{"a/**", "b"}, splitPatterns(" a/** ,, b "))
	assert.Nil(t, splitPatterns(""))
}

func TestNewDispatcher(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "observer only", input: "none", expected: 1},
		{name: "yaml", input: "yaml", expected: 2},
		{name: "slog", input: "slog", expected: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			registry, err := newDispatcher(tc.input, &bytes.Buffer{})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, registry.Len())
		})
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	err := printSummary(&buf,
		FileSummary{Overview: "Overview.", Files: []FileNote{{Path: "a.go", Summary: "A."}}},
		think.SessionStats{ToolCalls: 2},
		lcg.Usage{Turns: 1},
	)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Overview.")
	assert.Contains(t, out, "a.go")
	assert.Contains(t, out, "tool_calls: 2")
	assert.Contains(t, out, "turns: 1")
}
