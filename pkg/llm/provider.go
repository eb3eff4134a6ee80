package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type Completion struct {
	Text  string
	Usage Usage
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type ModelInfo struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	MaxContextTokens int    `json:"max_context_tokens"`
}

type Provider interface {
	Name() string

	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	Models() []ModelInfo
}

// New builds the provider named in configuration. An empty name selects
// anthropic.
func New(name, apiKey, baseURL, model string) (Provider, error) {
	switch strings.ToLower(name) {
	case "anthropic", "":
		return NewAnthropicProvider(apiKey, baseURL)
	case "openai":
		return NewOpenAIProvider(apiKey, baseURL)
	case "gemini":
		return NewGeminiProvider(apiKey)
	case "ollama":
		return NewOllamaProvider(baseURL, model)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", name)
	}
}
