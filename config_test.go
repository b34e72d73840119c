package think

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.MaxResultRetries)
	assert.Equal(t, 3, cfg.MaxUnknownToolCalls)
	assert.Equal(t, 5, cfg.MaxConsecutiveToolErrors)
	assert.Equal(t, DefaultPreamble, cfg.Preamble)
	assert.Equal(t, "mcp_tool", cfg.ToolTag)
	assert.Equal(t, DefaultInstructions, cfg.Instructions)
	assert.NoError(t, cfg.Validate())

	cfg.Preamble[0] = "changed"
	assert.NotEqual(t, "changed", DefaultPreamble[0])
}

func TestLoadConfig(t *testing.T) {
	type input struct {
		file    string
		content string
		env     map[string]string
	}

	type expected struct {
		hasErr  bool
		retries int
		unknown int
		tag     string
		noPre   bool
		strict  bool
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "no file uses defaults",
			input:    input{},
			expected: expected{retries: 3, unknown: 3, tag: "mcp_tool"},
		},
		{
			name: "yaml overrides only given fields",
			input: input{
				file:    "think.yaml",
				content: "max_result_retries: 1\ntool_tag: tool\n",
			},
			expected: expected{retries: 1, unknown: 3, tag: "tool"},
		},
		{
			name: "toml",
			input: input{
				file:    "think.toml",
				content: "max_unknown_tool_calls = 9\ndisable_preamble = true\n",
			},
			expected: expected{retries: 3, unknown: 9, tag: "mcp_tool", noPre: true},
		},
		{
			name: "env wins over file",
			input: input{
				file:    "think.yml",
				content: "max_result_retries: 1\n",
				env: map[string]string{
					"THINK_MAX_RESULT_RETRIES": "7",
					"THINK_STRICT_INPUTS":      "true",
				},
			},
			expected: expected{retries: 7, unknown: 3, tag: "mcp_tool", strict: true},
		},
		{
			name: "bad env value",
			input: input{
				env: map[string]string{"THINK_MAX_UNKNOWN_TOOL_CALLS": "many"},
			},
			expected: expected{hasErr: true},
		},
		{
			name:     "unsupported extension",
			input:    input{file: "think.json", content: "{}"},
			expected: expected{hasErr: true},
		},
		{
			name:     "invalid values",
			input:    input{file: "think.yaml", content: "max_result_retries: -2\n"},
			expected: expected{hasErr: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.input.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.input.file != "" {
				path = filepath.Join(t.TempDir(), tt.input.file)
				require.NoError(t, os.WriteFile(path, []byte(tt.input.content), 0o600))
			}

			cfg, err := LoadConfig(path)
			if tt.expected.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected.retries, cfg.MaxResultRetries)
			assert.Equal(t, tt.expected.unknown, cfg.MaxUnknownToolCalls)
			assert.Equal(t, tt.expected.tag, cfg.ToolTag)
			assert.Equal(t, tt.expected.noPre, cfg.DisablePreamble)
			assert.Equal(t, tt.expected.strict, cfg.StrictInputs)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxUnknownToolCalls = -1
	cfg.ToolTag = "<bad>"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_unknown_tool_calls")
	assert.Contains(t, err.Error(), "tool_tag")
}
