package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/NaveenPalisetti/meetingmcp/pkg/audit"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

// Session tracks one agent's execution window. Ended sessions stay in
// the table for audit; execute_tool rejects them but never removes them.
type Session struct {
	ID        string         `json:"session_id"`
	AgentID   string         `json:"agent_id"`
	CreatedAt time.Time      `json:"created_at"`
	Active    bool           `json:"active"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// SessionRecorder persists session lifecycle transitions. Persistence
// is best-effort: the in-memory table stays authoritative and a write
// failure is logged, not propagated.
type SessionRecorder interface {
	RecordSessionStart(ctx context.Context, id, agentID string, at time.Time) error
	RecordSessionEnd(ctx context.Context, id string, at time.Time) error
}

// AuditSink receives host events. *audit.Logger satisfies it.
type AuditSink interface {
	Log(ctx context.Context, eventType, sessionID, agentID, actor string, detail any) error
}

type HostConfig struct {
	Store  SessionRecorder
	Audit  AuditSink
	Logger *slog.Logger
}

// Host is the authoritative execution surface for all tools and the
// single source of truth for session validity.
type Host struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	order    []string
	sessions map[string]*Session

	store  SessionRecorder
	audit  AuditSink
	logger *slog.Logger
}

func NewHost(cfg HostConfig) *Host {
	return &Host{
		tools:    map[string]Tool{},
		sessions: map[string]*Session{},
		store:    cfg.Store,
		audit:    cfg.Audit,
		logger:   telemetry.Component(cfg.Logger, "host"),
	}
}

// RegisterTool inserts or overwrites the tool keyed by its tool_id.
// Overwriting is allowed: last registration wins, and the tool keeps
// its original position in listing order.
func (h *Host) RegisterTool(tool Tool) {
	def := tool.Definition()

	h.mu.Lock()
	if _, seen := h.tools[def.ToolID]; !seen {
		h.order = append(h.order, def.ToolID)
	}
	h.tools[def.ToolID] = tool
	h.mu.Unlock()

	h.logger.Debug("tool registered", "tool_id", def.ToolID, "kind", def.Kind)
}

// CreateSession allocates a fresh session for agentID. It always
// succeeds; the returned value is a snapshot.
func (h *Host) CreateSession(ctx context.Context, agentID string) *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		CreatedAt: time.Now().UTC(),
		Active:    true,
		Context:   map[string]any{},
	}

	h.mu.Lock()
	h.sessions[sess.ID] = sess
	h.mu.Unlock()

	telemetry.Metrics.SessionsCreated.Inc()
	telemetry.Metrics.ActiveSessions.Inc()

	if h.store != nil {
		if err := h.store.RecordSessionStart(ctx, sess.ID, agentID, sess.CreatedAt); err != nil {
			h.logger.Warn("session not persisted", "session_id", sess.ID, "error", err)
		}
	}
	if h.audit != nil {
		_ = h.audit.Log(ctx, audit.EventSessionNew, sess.ID, agentID, "host", "")
	}

	h.logger.Info("session created", "session_id", sess.ID, "agent_id", agentID)
	return snapshot(sess)
}

// EndSession flips the session to inactive. Unknown ids return false;
// ending an already-ended session returns true and changes nothing.
func (h *Host) EndSession(ctx context.Context, sessionID string) bool {
	h.mu.Lock()
	sess, ok := h.sessions[sessionID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	wasActive := sess.Active
	var endedAt time.Time
	if wasActive {
		endedAt = time.Now().UTC()
		sess.Active = false
		sess.EndedAt = &endedAt
	}
	agentID := sess.AgentID
	h.mu.Unlock()

	if !wasActive {
		return true
	}

	telemetry.Metrics.SessionsEnded.Inc()
	telemetry.Metrics.ActiveSessions.Dec()

	if h.store != nil {
		if err := h.store.RecordSessionEnd(ctx, sessionID, endedAt); err != nil {
			h.logger.Warn("session end not persisted", "session_id", sessionID, "error", err)
		}
	}
	if h.audit != nil {
		_ = h.audit.Log(ctx, audit.EventSessionEnd, sessionID, agentID, "host", "")
	}

	h.logger.Info("session ended", "session_id", sessionID, "agent_id", agentID)
	return true
}

// Session returns a snapshot of the session, if known.
func (h *Host) Session(sessionID string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sess, ok := h.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return snapshot(sess), true
}

// Sessions returns snapshots of every session the host has seen,
// newest first.
func (h *Host) Sessions() []*Session {
	h.mu.RLock()
	out := make([]*Session, 0, len(h.sessions))
	for _, sess := range h.sessions {
		out = append(out, snapshot(sess))
	}
	h.mu.RUnlock()

	sortSessions(out)
	return out
}

// ExecuteTool validates the session, looks up the tool, and invokes it.
// Every failure mode comes back as a structured error result; this
// method never returns an unhandled fault to the caller. Validation
// order: unknown session, inactive session, unknown tool, then the
// tool's own outcome. The host imposes no timeout; tools own theirs.
func (h *Host) ExecuteTool(ctx context.Context, sessionID, toolID string, params Params) Result {
	h.mu.RLock()
	sess, sessOK := h.sessions[sessionID]
	var (
		active  bool
		agentID string
	)
	if sessOK {
		active = sess.Active
		agentID = sess.AgentID
	}
	tool, toolOK := h.tools[toolID]
	h.mu.RUnlock()

	switch {
	case !sessOK:
		h.logger.Warn("execute rejected", "session_id", sessionID, "tool_id", toolID, "reason", "unknown session")
		telemetry.Metrics.ToolExecutions.WithLabelValues(toolID, StatusError).Inc()
		return ErrorResult("Invalid session ID")
	case !active:
		h.logger.Warn("execute rejected", "session_id", sessionID, "tool_id", toolID, "reason", "session ended")
		telemetry.Metrics.ToolExecutions.WithLabelValues(toolID, StatusError).Inc()
		return ErrorResult("Session not active")
	case !toolOK:
		h.logger.Warn("execute rejected", "session_id", sessionID, "tool_id", toolID, "reason", "unknown tool")
		telemetry.Metrics.ToolExecutions.WithLabelValues(toolID, StatusError).Inc()
		return ErrorResult("Tool not found")
	}

	ctx, span := telemetry.StartSpan(ctx, "mcp.execute_tool",
		attribute.String("tool_id", toolID),
		attribute.String("session_id", sessionID),
	)
	defer span.End()

	start := time.Now()
	result, err := invoke(ctx, tool, params)
	elapsed := time.Since(start)

	if err != nil {
		result = ErrorResult(err.Error())
	}
	if result == nil {
		result = Result{"status": StatusSuccess}
	}

	status := result.Status()
	if status == "" {
		status = StatusSuccess
	}

	telemetry.Metrics.ToolExecutions.WithLabelValues(toolID, status).Inc()
	telemetry.Metrics.ToolDuration.WithLabelValues(toolID).Observe(elapsed.Seconds())

	if h.audit != nil {
		event := audit.EventToolExec
		if status == StatusError {
			event = audit.EventToolError
		}
		detail := map[string]any{"tool_id": toolID, "status": status, "duration_ms": elapsed.Milliseconds()}
		if msg, ok := result["message"].(string); ok && msg != "" {
			detail["message"] = msg
		}
		_ = h.audit.Log(ctx, event, sessionID, agentID, "host", detail)
	}

	h.logger.Info("tool executed",
		"session_id", sessionID,
		"tool_id", toolID,
		"status", status,
		"duration_ms", elapsed.Milliseconds(),
	)
	return result
}

// AvailableTools lists tool summaries visible to the session, in
// registration order. Unknown or inactive sessions get an empty list,
// not an error.
func (h *Host) AvailableTools(sessionID string) []Summary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sess, ok := h.sessions[sessionID]
	if !ok || !sess.Active {
		return []Summary{}
	}

	out := make([]Summary, 0, len(h.order))
	for _, id := range h.order {
		def := h.tools[id].Definition()
		out = append(out, Summary{
			ToolID:      def.ToolID,
			Name:        def.Name,
			Description: def.Description,
			Kind:        def.Kind,
			Parameters:  def.Parameters,
		})
	}
	return out
}

// Definitions lists every registered tool's full definition in
// registration order, independent of any session.
func (h *Host) Definitions() []Definition {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Definition, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.tools[id].Definition())
	}
	return out
}

// invoke shields the host from a panicking tool.
func invoke(ctx context.Context, tool Tool, params Params) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%v", r)
		}
	}()
	return tool.Execute(ctx, params)
}

func snapshot(s *Session) *Session {
	copied := *s
	if s.EndedAt != nil {
		endedAt := *s.EndedAt
		copied.EndedAt = &endedAt
	}
	copied.Context = make(map[string]any, len(s.Context))
	for k, v := range s.Context {
		copied.Context[k] = v
	}
	return &copied
}

func sortSessions(sessions []*Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
}
