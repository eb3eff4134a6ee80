package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestNewAnthropicProvider_NoKey(t *testing.T) {
	orig := os.Getenv("ANTHROPIC_API_KEY")
	os.Unsetenv("ANTHROPIC_API_KEY")
	defer os.Setenv("ANTHROPIC_API_KEY", orig)

	_, err := NewAnthropicProvider("", "")
	if err == nil {
		t.Error("expected error when no API key and default base URL")
	}
}

func TestNewAnthropicProvider_CustomBase(t *testing.T) {
	p, err := NewAnthropicProvider("", "http://localhost:9999")
	if err != nil {
		t.Fatalf("unexpected error with custom base URL: %v", err)
	}
	if p.baseURL != "http://localhost:9999" {
		t.Errorf("baseURL = %q, want %q", p.baseURL, "http://localhost:9999")
	}
}

func TestAnthropicComplete(t *testing.T) {
	resp := anthropicResponse{
		Content: []anthropicContentBlock{
			{Type: "text", Text: "Hello from Claude"},
		},
		Usage: anthropicUsage{InputTokens: 10, OutputTokens: 5},
	}
	respData, _ := json.Marshal(resp)

	var gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("Anthropic-Version")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(respData)
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider("test-key", srv.URL)
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}

	completion, err := p.Complete(context.Background(), CompletionRequest{
		Model:    "claude-sonnet-4-20250514",
		Messages: []ChatMessage{{Role: RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if completion.Text != "Hello from Claude" {
		t.Errorf("Text = %q, want %q", completion.Text, "Hello from Claude")
	}
	if completion.Usage.InputTokens != 10 {
		t.Errorf("InputTokens = %d, want 10", completion.Usage.InputTokens)
	}
	if gotVersion != anthropicAPIVersion {
		t.Errorf("Anthropic-Version = %q, want %q", gotVersion, anthropicAPIVersion)
	}
}

func TestAnthropicCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, _ := NewAnthropicProvider("test-key", srv.URL)

	_, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hello"}},
	})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestAnthropicCompleteSkipsSystemRole(t *testing.T) {
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(anthropicResponse{})
	}))
	defer srv.Close()

	p, _ := NewAnthropicProvider("test-key", srv.URL)

	_, err := p.Complete(context.Background(), CompletionRequest{
		System: "be terse",
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: "ignored"},
			{Role: RoleUser, Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if gotReq.System != "be terse" {
		t.Errorf("System = %q, want %q", gotReq.System, "be terse")
	}
	if len(gotReq.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1 (system role dropped)", len(gotReq.Messages))
	}
}
