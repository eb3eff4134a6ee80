package a2a

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PartKind tags how a part's content must be interpreted. The values are
// wire-level and shared with every agent that speaks the protocol.
type PartKind string

const (
	PartText       PartKind = "text/plain"
	PartJSON       PartKind = "application/json"
	PartMeetingID  PartKind = "meeting_id"
	PartSummary    PartKind = "summary"
	PartTask       PartKind = "task"
	PartActionItem PartKind = "action_item"
	PartProgress   PartKind = "progress"
	PartResult     PartKind = "result"
	PartRisk       PartKind = "risk"
)

// ParsePartKind maps a wire tag to its kind. Unknown or empty tags fall back
// to PartText so loosely-typed callers can never produce an invalid part.
func ParsePartKind(s string) PartKind {
	switch k := PartKind(s); k {
	case PartText, PartJSON, PartMeetingID, PartSummary, PartTask, PartActionItem, PartProgress, PartResult, PartRisk:
		return k
	default:
		return PartText
	}
}

const (
	RoleUser   = "user"
	RoleAgent  = "agent"
	RoleSystem = "system"
	RoleClient = "client"
)

// Part is one tagged unit of content within a message. Parts are immutable
// once constructed.
type Part struct {
	ID      string   `json:"part_id"`
	Kind    PartKind `json:"content_type"`
	Content any      `json:"content"`
}

// UnmarshalJSON normalizes the loose shapes peers put on the wire: a full
// part object (tag under "content_type" or "type"), or any bare value,
// which is coerced to a text part.
func (p *Part) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var raw struct {
			PartID      string `json:"part_id"`
			ContentType any    `json:"content_type"`
			Type        any    `json:"type"`
			Content     any    `json:"content"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		tag := raw.ContentType
		if tag == nil {
			tag = raw.Type
		}
		kind := PartText
		if s, ok := tag.(string); ok {
			kind = ParsePartKind(s)
		}
		id := raw.PartID
		if id == "" {
			id = uuid.NewString()
		}
		*p = Part{ID: id, Kind: kind, Content: raw.Content}
		return nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if s, ok := v.(string); ok {
		*p = Part{ID: uuid.NewString(), Kind: PartText, Content: s}
		return nil
	}
	*p = Part{ID: uuid.NewString(), Kind: PartText, Content: fmt.Sprint(v)}
	return nil
}

// Message is the envelope exchanged between callers, tools, and agents.
type Message struct {
	ID    string `json:"message_id"`
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// NewMessage builds an envelope, normalizing each entry into a well-formed
// Part: typed parts are kept as-is, map descriptors are converted (tag under
// "content_type" or "type", payload under "content"), and anything else is
// coerced into a text part. Feeding already-normalized parts back through is
// a no-op.
func NewMessage(role string, parts ...any) *Message {
	m := &Message{ID: uuid.NewString(), Role: role}
	for _, p := range parts {
		m.Parts = append(m.Parts, normalizePart(p))
	}
	return m
}

func normalizePart(v any) Part {
	switch p := v.(type) {
	case Part:
		return p
	case *Part:
		return *p
	case map[string]any:
		id, _ := p["part_id"].(string)
		if id == "" {
			id = uuid.NewString()
		}
		tag, ok := p["content_type"]
		if !ok {
			tag = p["type"]
		}
		kind := PartText
		switch t := tag.(type) {
		case PartKind:
			kind = t
		case string:
			kind = ParsePartKind(t)
		}
		return Part{ID: id, Kind: kind, Content: p["content"]}
	default:
		return Part{ID: uuid.NewString(), Kind: PartText, Content: fmt.Sprint(v)}
	}
}

// AddPart appends a part of the given kind and returns its id.
func (m *Message) AddPart(kind PartKind, content any) string {
	p := Part{ID: uuid.NewString(), Kind: kind, Content: content}
	m.Parts = append(m.Parts, p)
	return p.ID
}

// AddTextPart appends a text part and returns its id.
func (m *Message) AddTextPart(text string) string {
	return m.AddPart(PartText, text)
}

// AddJSONPart appends a JSON part and returns its id. The data must be a
// tree of primitives, maps, and sequences; no schema is enforced here.
func (m *Message) AddJSONPart(data any) string {
	return m.AddPart(PartJSON, data)
}

// Capability describes one operation an agent offers, for discovery only.
type Capability struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters"`
}

// AgentCard is the static self-description served for discovery. Immutable
// after construction.
type AgentCard struct {
	AgentID      string       `json:"agent_id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Version      string       `json:"version"`
	BaseURL      string       `json:"base_url"`
	Capabilities []Capability `json:"capabilities"`
}

// DefaultCard is the orchestrator's self-description when the deployment
// does not configure its own.
func DefaultCard(baseURL string) *AgentCard {
	return &AgentCard{
		AgentID:     "orchestrator",
		Name:        "Meeting Orchestrator",
		Description: "Routes meeting-intelligence requests to transcript, summarization, jira, risk, calendar and notification tools.",
		Version:     "1.0",
		BaseURL:     baseURL,
		Capabilities: []Capability{
			{
				Name:        "orchestrate",
				Description: "Detect the intent of a message and run the matching tool pipeline.",
				Parameters:  map[string]string{"message": "string: natural language request", "params": "object: tool parameters"},
			},
			{
				Name:        "preprocess_transcripts",
				Description: "Clean and chunk raw meeting transcripts.",
				Parameters:  map[string]string{"data": "array: raw transcript strings", "chunk_size": "int: words per chunk"},
			},
			{
				Name:        "summarize",
				Description: "Summarize processed transcripts and extract action items.",
				Parameters:  map[string]string{"processed": "array: cleaned transcript chunks", "mode": "string: auto|extractive|llm"},
			},
			{
				Name:        "detect_risks",
				Description: "Flag risks from meeting summaries and the issue tracker.",
				Parameters:  map[string]string{"meeting_id": "string: meeting identifier", "include_jira": "bool: also scan jira"},
			},
		},
	}
}

// Describe projects the card into a plain map, the payload served at
// /.well-known/agentcard.
func (c *AgentCard) Describe() map[string]any {
	caps := make([]map[string]any, 0, len(c.Capabilities))
	for _, cc := range c.Capabilities {
		caps = append(caps, map[string]any{
			"name":        cc.Name,
			"description": cc.Description,
			"parameters":  cc.Parameters,
		})
	}
	return map[string]any{
		"agent_id":     c.AgentID,
		"name":         c.Name,
		"description":  c.Description,
		"version":      c.Version,
		"base_url":     c.BaseURL,
		"capabilities": caps,
	}
}

type TaskState string

const (
	TaskStateSubmitted TaskState = "submitted"
	TaskStateWorking   TaskState = "working"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCanceled  TaskState = "canceled"
)

// Task tracks one inbound request through the working/completed lifecycle.
type Task struct {
	ID        string    `json:"task_id"`
	SessionID string    `json:"session_id,omitempty"`
	State     TaskState `json:"state"`
	Messages  []Message `json:"messages"`
	Artifacts []any     `json:"artifacts"`
}

type TaskStatus struct {
	ID    string    `json:"task_id"`
	State TaskState `json:"state"`
}
