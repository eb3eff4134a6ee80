package tools

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/NaveenPalisetti/meetingmcp/pkg/archive"
	"github.com/NaveenPalisetti/meetingmcp/pkg/audit"
	"github.com/NaveenPalisetti/meetingmcp/pkg/llm"
	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

const (
	summarySystemPrompt = "You summarize engineering meeting transcripts. " +
		"Write a tight paragraph covering decisions, progress, and blockers. " +
		"Do not invent details that are not in the transcript."

	shortTranscriptMsg = "Transcript too short for summarization."
	extractiveLimit    = 300
	maxActionItems     = 6
)

// SummarizationConfig wires the summarization tool's collaborators. A nil
// Provider (or mode "extractive") selects the deterministic fallback; a nil
// Archive disables artifact writes.
type SummarizationConfig struct {
	Provider  llm.Provider
	Model     string
	MaxTokens int
	Archive   *archive.Store
	Audit     *audit.Logger
	Logger    *slog.Logger
}

// SummarizationTool condenses processed transcript chunks into a digest and
// mines action items out of them.
type SummarizationTool struct {
	provider  llm.Provider
	model     string
	maxTokens int
	archive   *archive.Store
	audit     *audit.Logger
	logger    *slog.Logger
}

func NewSummarizationTool(cfg SummarizationConfig) *SummarizationTool {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &SummarizationTool{
		provider:  cfg.Provider,
		model:     cfg.Model,
		maxTokens: maxTokens,
		archive:   cfg.Archive,
		audit:     cfg.Audit,
		logger:    telemetry.Component(cfg.Logger, "tools.summarization"),
	}
}

func (t *SummarizationTool) Definition() mcp.Definition {
	return mcp.Definition{
		ToolID:      "summarization",
		Kind:        mcp.KindSummarization,
		Name:        "Summarization Tool",
		Description: "Summarize processed transcript chunks into a digest with action items.",
		APIPath:     "/mcp/summarize",
		Parameters:  map[string]string{"processed_transcripts": "list[str]", "mode": "str", "meeting_id": "str"},
	}
}

func (t *SummarizationTool) Execute(ctx context.Context, params mcp.Params) (mcp.Result, error) {
	processed := params.Strings("processed_transcripts")
	if len(processed) == 0 {
		processed = params.Strings("processed")
	}
	mode := params.String("mode")
	if mode == "" {
		mode = params.String("summarizer")
	}
	mode = strings.ToLower(mode)
	if mode == "" {
		mode = "auto"
	}

	fullTranscript := strings.Join(processed, "\n")
	summaryText := t.summarize(ctx, mode, fullTranscript)

	actionItems := make([]map[string]any, 0, maxActionItems)
	for _, task := range ExtractTasks(fullTranscript, maxActionItems) {
		item := map[string]any{
			"summary":      task.Title,
			"assignee":     nil,
			"issue_type":   "Task",
			"story_points": nil,
			"due_date":     nil,
		}
		if task.Owner != "" {
			item["assignee"] = task.Owner
		}
		if task.Due != "" {
			item["due_date"] = task.Due
		}
		actionItems = append(actionItems, item)
	}

	if summaryText == "" {
		summaryText = "No summary generated."
	}

	if meetingID := params.String("meeting_id"); meetingID != "" {
		t.archiveSummary(ctx, meetingID, summaryText, actionItems)
	}

	return mcp.Result{
		"status": mcp.StatusSuccess,
		"summary": map[string]any{
			"summary":           summaryText,
			"action_items":      actionItems,
			"download_link":     nil,
			"mode":              mode,
			"transcript_length": utf8.RuneCountInString(fullTranscript),
		},
	}, nil
}

// summarize produces the digest text. Provider-backed modes fall back to the
// extractive head of the transcript when the provider is missing or fails,
// so summarization degrades instead of erroring.
func (t *SummarizationTool) summarize(ctx context.Context, mode, transcript string) string {
	if len(strings.Fields(transcript)) < 10 {
		return shortTranscriptMsg
	}

	if mode != "extractive" && t.provider != nil {
		text, err := t.complete(ctx, transcript)
		if err == nil && text != "" {
			return text
		}
		if err != nil {
			t.logger.Warn("provider summarization failed, falling back",
				"provider", t.provider.Name(), "err", err.Error())
		}
	}

	telemetry.Metrics.SummarizerCalls.WithLabelValues("extractive").Inc()
	return extractiveSummary(transcript)
}

func (t *SummarizationTool) complete(ctx context.Context, transcript string) (string, error) {
	telemetry.Metrics.SummarizerCalls.WithLabelValues(t.provider.Name()).Inc()
	resp, err := t.provider.Complete(ctx, llm.CompletionRequest{
		Model:     t.model,
		System:    summarySystemPrompt,
		MaxTokens: t.maxTokens,
		Messages: []llm.ChatMessage{{
			Role:    llm.RoleUser,
			Content: "Summarize this meeting transcript:\n\n" + transcript,
		}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// extractiveSummary returns the head of the transcript, the same degraded
// output the summarizer produces when no model is reachable.
func extractiveSummary(transcript string) string {
	runes := []rune(transcript)
	if len(runes) <= extractiveLimit {
		return transcript
	}
	return string(runes[:extractiveLimit]) + "..."
}

func (t *SummarizationTool) archiveSummary(ctx context.Context, meetingID, summaryText string, actionItems []map[string]any) {
	if t.archive == nil {
		return
	}
	if err := t.archive.Put(ctx, meetingID, archive.KindSummary, summaryText); err != nil {
		t.logger.Warn("archiving summary failed", "meeting_id", meetingID, "err", err.Error())
		return
	}
	if err := t.archive.PutJSON(ctx, meetingID, archive.KindActionItems, actionItems); err != nil {
		t.logger.Warn("archiving action items failed", "meeting_id", meetingID, "err", err.Error())
	}
	if t.audit != nil {
		_ = t.audit.Log(ctx, audit.EventArtifactPut, "", "", "summarization", map[string]any{
			"meeting_id": meetingID,
			"kinds":      []string{archive.KindSummary, archive.KindActionItems},
		})
	}
}
