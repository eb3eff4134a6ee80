package scheduler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
	"github.com/NaveenPalisetti/meetingmcp/pkg/orchestrator"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

// WebhookPayload is the ingress envelope: an event name, the emitting
// system, and an event-specific payload.
type WebhookPayload struct {
	Event   string          `json:"event"`
	Source  string          `json:"source"`
	Payload json.RawMessage `json:"payload"`
}

type WebhookFunc func(ctx context.Context, payload WebhookPayload) error

type WebhookHandler struct {
	secret   string
	handlers map[string]WebhookFunc
	logger   *slog.Logger
	mu       sync.RWMutex
}

func NewWebhookHandler(secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:   secret,
		handlers: make(map[string]WebhookFunc),
		logger:   telemetry.Component(logger, "webhooks"),
	}
}

func (wh *WebhookHandler) On(event string, fn WebhookFunc) {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	wh.handlers[event] = fn
}

func (wh *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if wh.secret != "" {
		sig := r.Header.Get("X-MeetingMCP-Signature")
		if !wh.verifySignature(body, sig) {
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	wh.logger.Info("webhook received",
		slog.String("event", payload.Event),
		slog.String("source", payload.Source),
	)

	wh.mu.RLock()
	handler, ok := wh.handlers[payload.Event]
	wh.mu.RUnlock()

	if !ok {
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"status":"accepted","handled":false}`)
		return
	}

	if err := handler(r.Context(), payload); err != nil {
		wh.logger.Error("webhook handler failed",
			slog.String("event", payload.Event),
			slog.String("error", err.Error()),
		)
		http.Error(w, "handler error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok","handled":true}`)
}

func (wh *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(wh.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// RegisterMeetingPipeline maps meeting.completed events onto the transcript
// pipeline: a preprocess orchestration followed by a summarize orchestration
// over the processed chunks.
func RegisterMeetingPipeline(wh *WebhookHandler, orch *orchestrator.Orchestrator) {
	wh.On("meeting.completed", func(ctx context.Context, payload WebhookPayload) error {
		var ev struct {
			MeetingID  string `json:"meeting_id"`
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(payload.Payload, &ev); err != nil {
			return fmt.Errorf("webhooks: decoding meeting.completed payload: %w", err)
		}
		if strings.TrimSpace(ev.Transcript) == "" {
			return fmt.Errorf("webhooks: meeting.completed carries no transcript")
		}

		pre := orch.Orchestrate(ctx, "preprocess meeting transcript", mcp.Params{
			"transcripts": []string{ev.Transcript},
			"meeting_id":  ev.MeetingID,
		}, "")

		chunks := processedChunks(pre)
		if len(chunks) == 0 {
			return fmt.Errorf("webhooks: preprocessing produced no chunks for meeting %q", ev.MeetingID)
		}

		orch.Orchestrate(ctx, "summarize the meeting", mcp.Params{
			"processed_transcripts": chunks,
			"meeting_id":            ev.MeetingID,
		}, "")
		return nil
	})
}

func processedChunks(outcome *orchestrator.Outcome) []string {
	if outcome == nil || outcome.Results == nil {
		return nil
	}
	res, ok := outcome.Results.Get("transcript")
	if !ok {
		return nil
	}
	switch v := res["processed"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
