package think

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultPreamble is placed before the user's prompt, one line per entry.
var DefaultPreamble = []string{
	"Please complete the following task to the best of your ability,",
	"No further instructions will be given,",
	"so do your best to interpret the instructions without further feedback from the user,",
	"making use of the tools you have available.",
	"",
	"IMPORTANT: When complete, invoke the `return_result` tool with the requested result.",
	"",
}

// DefaultInstructions is sent to the agent as session-level instructions.
const DefaultInstructions = "You have access to tools. Call return_result when done."

// Config tunes how sessions are assembled and when they give up.
type Config struct {
	// MaxResultRetries is how many rejected return_result payloads are
	// answered with an error before the session fails.
	MaxResultRetries int `yaml:"max_result_retries" toml:"max_result_retries"`

	// MaxUnknownToolCalls is how many calls to unregistered tools are
	// answered with an error before the session fails.
	MaxUnknownToolCalls int `yaml:"max_unknown_tool_calls" toml:"max_unknown_tool_calls"`

	// MaxConsecutiveToolErrors fails the session after this many tool errors
	// in a row. Zero disables the limit.
	MaxConsecutiveToolErrors int `yaml:"max_consecutive_tool_errors" toml:"max_consecutive_tool_errors"`

	Preamble        []string `yaml:"preamble" toml:"preamble"`
	DisablePreamble bool     `yaml:"disable_preamble" toml:"disable_preamble"`

	// ToolTag wraps tool references in the prompt. Empty renders bare names.
	ToolTag      string `yaml:"tool_tag" toml:"tool_tag"`
	Instructions string `yaml:"instructions" toml:"instructions"`

	// StrictInputs rejects tool inputs and results carrying fields the Go
	// type does not declare.
	StrictInputs bool `yaml:"strict_inputs" toml:"strict_inputs"`
}

func DefaultConfig() Config {
	preamble := make([]string, len(DefaultPreamble))
	copy(preamble, DefaultPreamble)
	return Config{
		MaxResultRetries:         3,
		MaxUnknownToolCalls:      3,
		MaxConsecutiveToolErrors: 5,
		Preamble:                 preamble,
		ToolTag:                  DefaultToolTag,
		Instructions:             DefaultInstructions,
	}
}

// LoadConfig reads a YAML (.yaml, .yml) or TOML (.toml) file over the
// defaults, then applies THINK_* environment overrides. An empty path skips
// the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeConfig(path, data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func decodeConfig(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse toml config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"THINK_MAX_RESULT_RETRIES", &c.MaxResultRetries},
		{"THINK_MAX_UNKNOWN_TOOL_CALLS", &c.MaxUnknownToolCalls},
		{"THINK_MAX_CONSECUTIVE_TOOL_ERRORS", &c.MaxConsecutiveToolErrors},
	}
	for _, e := range ints {
		v, ok := lookup(e.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = n
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"THINK_DISABLE_PREAMBLE", &c.DisablePreamble},
		{"THINK_STRICT_INPUTS", &c.StrictInputs},
	}
	for _, e := range bools {
		v, ok := lookup(e.key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = b
	}

	if v, ok := lookup("THINK_TOOL_TAG"); ok {
		c.ToolTag = v
	}
	if v, ok := lookup("THINK_INSTRUCTIONS"); ok {
		c.Instructions = v
	}
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.MaxResultRetries < 0 {
		errs = append(errs, errors.New("max_result_retries must not be negative"))
	}
	if c.MaxUnknownToolCalls < 0 {
		errs = append(errs, errors.New("max_unknown_tool_calls must not be negative"))
	}
	if c.MaxConsecutiveToolErrors < 0 {
		errs = append(errs, errors.New("max_consecutive_tool_errors must not be negative"))
	}
	if strings.ContainsAny(c.ToolTag, "<>/ \t\n") {
		errs = append(errs, fmt.Errorf("tool_tag %q must be a bare tag name", c.ToolTag))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
