package lcg

import "sync"

// Usage is the token usage reported by the model, summed over every turn
// the agent has run. Providers report usage under different keys; all of
// them are normalized here.
type Usage struct {
	Turns             int `yaml:"turns"`
	InputTokens       int `yaml:"input_tokens"`
	OutputTokens      int `yaml:"output_tokens"`
	TotalTokens       int `yaml:"total_tokens"`
	CachedInputTokens int `yaml:"cached_input_tokens"`
	ReasoningTokens   int `yaml:"reasoning_tokens"`
}

type usageMeter struct {
	mu    sync.Mutex
	usage Usage
}

func (m *usageMeter) record(info map[string]any) {
	input := extractInputTokens(info)
	output := extractOutputTokens(info)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage.Turns++
	m.usage.InputTokens += input
	m.usage.OutputTokens += output
	m.usage.TotalTokens += extractTotalTokens(info, input, output)
	m.usage.CachedInputTokens += extractCachedInputTokens(info)
	m.usage.ReasoningTokens += extractReasoningTokens(info)
}

func (m *usageMeter) snapshot() Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}

// firstInt returns the first positive value stored under one of keys.
func firstInt(info map[string]any, keys ...string) int {
	for _, key := range keys {
		if v := intValue(info[key]); v > 0 {
			return v
		}
	}
	return 0
}

func extractInputTokens(info map[string]any) int {
	// OpenAI and compatibles, Anthropic, Google/Bedrock
	return firstInt(info, "PromptTokens", "InputTokens", "input_tokens")
}

func extractOutputTokens(info map[string]any) int {
	return firstInt(info, "CompletionTokens", "OutputTokens", "output_tokens")
}

func extractTotalTokens(info map[string]any, input, output int) int {
	if v := firstInt(info, "TotalTokens", "total_tokens"); v > 0 {
		return v
	}
	return input + output
}

func extractCachedInputTokens(info map[string]any) int {
	return firstInt(info, "PromptCachedTokens", "CacheReadInputTokens", "CachedTokens")
}

func extractReasoningTokens(info map[string]any) int {
	return firstInt(info, "ReasoningTokens", "CompletionReasoningTokens", "ThinkingTokens")
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}
