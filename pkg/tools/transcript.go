package tools

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/NaveenPalisetti/meetingmcp/pkg/config"
	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

const defaultChunkSize = 1500

// contractions expand in order; "can't" must run before the generic "n't".
var contractions = []struct{ from, to string }{
	{"can't", "cannot"},
	{"won't", "will not"},
	{"n't", " not"},
	{"'re", " are"},
	{"'s", " is"},
	{"'d", " would"},
	{"'ll", " will"},
	{"'t", " not"},
	{"'ve", " have"},
	{"'m", " am"},
}

var (
	timestampRe = regexp.MustCompile(`\[\d{1,2}:\d{2}(:\d{2})?\]`)
	speakerRe   = regexp.MustCompile(`(?m)^\s*[A-Za-z]+ ?\d*:`)
	fillerRes   = []*regexp.Regexp{
		regexp.MustCompile(`\bum\b`),
		regexp.MustCompile(`\buh\b`),
		regexp.MustCompile(`\byou know\b`),
		regexp.MustCompile(`\blike\b`),
		regexp.MustCompile(`\bokay\b`),
		regexp.MustCompile(`\bso\b`),
		regexp.MustCompile(`\bwell\b`),
	}
	specialCharRe = regexp.MustCompile(`[^\p{L}\p{N}_\s.,?!]`)
)

// CleanTranscript normalizes raw meeting text: NFKC folding, lowercasing,
// contraction expansion, timestamp and speaker-tag removal, filler-word
// removal, punctuation reduction, and whitespace collapse, in that order.
func CleanTranscript(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ToLower(text)
	for _, c := range contractions {
		text = strings.ReplaceAll(text, c.from, c.to)
	}
	text = timestampRe.ReplaceAllString(text, "")
	text = speakerRe.ReplaceAllString(text, "")
	for _, re := range fillerRes {
		text = re.ReplaceAllString(text, "")
	}
	text = specialCharRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// TranscriptTool cleans raw transcripts and chunks them into word-bounded
// pieces sized for the summarizer.
type TranscriptTool struct {
	chunkSize int
	logger    *slog.Logger
}

func NewTranscriptTool(cfg config.TranscriptConfig, logger *slog.Logger) *TranscriptTool {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	return &TranscriptTool{
		chunkSize: chunk,
		logger:    telemetry.Component(logger, "tools.transcript"),
	}
}

func (t *TranscriptTool) Definition() mcp.Definition {
	return mcp.Definition{
		ToolID:      "transcript",
		Kind:        mcp.KindPreprocessing,
		Name:        "Transcript Preprocessing Tool",
		Description: "Preprocess meeting transcripts (cleaning, chunking).",
		APIPath:     "/mcp/transcript",
		Parameters:  map[string]string{"transcripts": "list[str]", "chunk_size": "int"},
	}
}

func (t *TranscriptTool) Execute(ctx context.Context, params mcp.Params) (mcp.Result, error) {
	transcripts := params.Strings("transcripts")
	if len(transcripts) == 0 {
		transcripts = params.Strings("data")
	}
	chunkSize := params.Int("chunk_size", t.chunkSize)
	if chunkSize <= 0 {
		chunkSize = t.chunkSize
	}

	processed := make([]string, 0, len(transcripts))
	totalWords := 0
	for _, raw := range transcripts {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		words := strings.Fields(CleanTranscript(raw))
		totalWords += len(words)
		for i := 0; i < len(words); i += chunkSize {
			end := min(i+chunkSize, len(words))
			processed = append(processed, strings.Join(words[i:end], " "))
		}
	}

	t.logger.Debug("transcripts processed",
		"inputs", len(transcripts),
		"total_words", totalWords,
		"chunk_size", chunkSize,
		"chunks", len(processed),
	)

	return mcp.Result{
		"status":    mcp.StatusSuccess,
		"processed": processed,
		"debug": map[string]any{
			"input_transcripts": len(transcripts),
			"total_words":       totalWords,
			"chunk_size":        chunkSize,
			"chunks_produced":   len(processed),
			"sample_chunks":     processed[:min(3, len(processed))],
		},
	}, nil
}
