package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiProvider struct {
	apiKey     string
	httpClient *http.Client
}

func NewGeminiProvider(apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key not set (provide it or set GEMINI_API_KEY)")
	}
	return &GeminiProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", MaxContextTokens: 1048576},
		{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", MaxContextTokens: 1048576},
	}
}

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata *geminiUsage      `json:"usageMetadata,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

func (g *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	model := req.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	apiReq := geminiRequest{}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	apiReq.GenerationConfig = &geminiGenConfig{
		MaxOutputTokens: maxTokens,
		Temperature:     req.Temperature,
	}

	if req.System != "" {
		apiReq.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.System}},
		}
	}

	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			continue
		}
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		apiReq.Contents = append(apiReq.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", geminiBaseURL, model, g.apiKey)

	resp, err := doLLMRequest(ctx, g.httpClient, "gemini", url, nil, apiReq)
	if err != nil {
		return nil, err
	}

	var apiResp geminiResponse
	if err := decodeResponse(resp, "gemini", &apiResp); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, c := range apiResp.Candidates {
		for _, p := range c.Content.Parts {
			text.WriteString(p.Text)
		}
	}

	var usage Usage
	if apiResp.UsageMetadata != nil {
		usage.InputTokens = apiResp.UsageMetadata.PromptTokenCount
		usage.OutputTokens = apiResp.UsageMetadata.CandidatesTokenCount
	}

	return &Completion{Text: text.String(), Usage: usage}, nil
}
