package mcp

import "context"

// Kind classifies what a tool does. The host treats kinds as opaque
// labels; routing tables and UI grouping are built on top of them.
type Kind string

const (
	KindCalendar      Kind = "calendar"
	KindPreprocessing Kind = "data_preprocessing"
	KindSummarization Kind = "summarization"
	KindNotification  Kind = "notification"
	KindRiskDetection Kind = "risk_detection"
	KindJira          Kind = "jira"
	KindOther         Kind = "other"
)

// Result statuses tools report in-band. Tools return StatusSkipped when
// they are not configured for the requested work rather than erroring.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Params carries the free-form arguments of one tool invocation.
type Params map[string]any

// String returns the value under key if it is a string, else "".
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Int returns the value under key as an int, accepting the numeric
// types JSON decoding produces. Returns def when absent or non-numeric.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool returns the value under key as a bool, or def when absent.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Strings returns the value under key as a string slice. A bare string
// becomes a one-element slice so callers can pass either shape.
func (p Params) Strings(key string) []string {
	switch v := p[key].(type) {
	case string:
		return []string{v}
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

// Maps returns the value under key as a slice of objects.
func (p Params) Maps(key string) []map[string]any {
	switch v := p[key].(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// Map returns the value under key as an object, or nil.
func (p Params) Map(key string) map[string]any {
	m, _ := p[key].(map[string]any)
	return m
}

// Result is a tool invocation outcome. Errors travel in-band under the
// "status" and "message" keys; the payload shape is tool-specific and
// opaque to the host.
type Result map[string]any

// Status returns the result's status field, or "" when unset.
func (r Result) Status() string {
	s, _ := r["status"].(string)
	return s
}

// ErrorResult builds the structured error shape the host returns for
// every failure mode.
func ErrorResult(message string) Result {
	return Result{"status": StatusError, "message": message}
}

// Definition is a tool's self-description: identity, classification,
// and a documentation-only parameter map (never enforced).
type Definition struct {
	ToolID       string            `json:"tool_id"`
	Kind         Kind              `json:"tool_type"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	APIPath      string            `json:"api_path,omitempty"`
	AuthRequired bool              `json:"auth_required,omitempty"`
	Parameters   map[string]string `json:"parameters"`
}

// Summary is the projection of a Definition served to session clients.
type Summary struct {
	ToolID      string            `json:"tool_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Kind        Kind              `json:"tool_type"`
	Parameters  map[string]string `json:"parameters"`
}

// Tool is the contract every adapter registered with the host must
// implement. Execute should return status "error" or "skipped" results
// for expected failure modes and reserve returned errors for genuinely
// unexpected faults; the host converts those to error results so one
// misbehaving tool never crashes the batch.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, params Params) (Result, error)
}
