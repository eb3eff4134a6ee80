package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOpenAIProvider(apiKey, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key not set (provide it or set OPENAI_API_KEY)")
	}
	if baseURL == "" {
		baseURL = openaiAPIURL
	}
	return &OpenAIProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}, nil
}

func (o *OpenAIProvider) Name() string { return "openai" }

func (o *OpenAIProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "gpt-4o", Name: "GPT-4o", MaxContextTokens: 128000},
		{ID: "gpt-4o-mini", Name: "GPT-4o Mini", MaxContextTokens: 128000},
		{ID: "o3-mini", Name: "o3-mini", MaxContextTokens: 200000},
	}
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (o *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	model := req.Model
	if model == "" {
		model = "gpt-4o"
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	apiReq := openaiRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	for _, m := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, openaiMessage{Role: m.Role, Content: m.Content})
	}

	if req.System != "" {
		apiReq.Messages = append(
			[]openaiMessage{{Role: "system", Content: req.System}},
			apiReq.Messages...,
		)
	}

	resp, err := doLLMRequest(ctx, o.httpClient, "openai", o.baseURL, map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	}, apiReq)
	if err != nil {
		return nil, err
	}

	var apiResp openaiResponse
	if err := decodeResponse(resp, "openai", &apiResp); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, choice := range apiResp.Choices {
		text.WriteString(choice.Message.Content)
	}

	return &Completion{
		Text: text.String(),
		Usage: Usage{
			InputTokens:  apiResp.Usage.PromptTokens,
			OutputTokens: apiResp.Usage.CompletionTokens,
		},
	}, nil
}
