package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NaveenPalisetti/meetingmcp/pkg/audit"
	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
	"github.com/NaveenPalisetti/meetingmcp/pkg/orchestrator"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

// Handler serves the agent-to-agent surface: the public agent card, a
// JSON-RPC endpoint, and REST message endpoints. Every inbound message
// becomes a task whose reply carries the orchestration outcome in a
// result part.
type Handler struct {
	router    chi.Router
	card      *AgentCard
	store     *TaskStore
	orch      *orchestrator.Orchestrator
	audit     mcp.AuditSink
	logger    *slog.Logger
	authToken string
}

type HandlerConfig struct {
	Card         *AgentCard
	Orchestrator *orchestrator.Orchestrator
	Audit        mcp.AuditSink
	Logger       *slog.Logger
	AuthToken    string
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Card == nil {
		cfg.Card = DefaultCard("")
	}
	h := &Handler{
		card:      cfg.Card,
		store:     NewTaskStore(),
		orch:      cfg.Orchestrator,
		audit:     cfg.Audit,
		logger:    telemetry.Component(cfg.Logger, "a2a"),
		authToken: cfg.AuthToken,
	}
	h.buildRouter()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) buildRouter() {
	r := chi.NewRouter()

	// The card is discovery metadata and stays public even when the rest
	// of the surface requires a token.
	r.Get("/.well-known/agentcard", h.handleAgentCard)

	r.Group(func(r chi.Router) {
		if h.authToken != "" {
			r.Use(h.authMiddleware)
		}
		r.Post("/a2a", h.handleJSONRPC)
		r.Post("/a2a/messages", h.handleSendMessage)
		r.Post("/a2a/messages:stream", h.handleSendMessageStream)
		r.Get("/a2a/tasks/{id}", h.handleGetTask)
		r.Get("/a2a/tasks", h.handleListTasks)
		r.Post("/a2a/tasks/{id}:cancel", h.handleCancelTask)
	})
	h.router = r
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header || token != h.authToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.card.Describe())
}

func (h *Handler) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, NewJSONRPCError(nil, ErrCodeParse, "parse error"))
		return
	}
	if req.JSONRPC != jsonrpcVersion {
		writeJSON(w, http.StatusOK, NewJSONRPCError(req.ID, ErrCodeInvalidReq, "invalid jsonrpc version"))
		return
	}

	switch req.Method {
	case MethodSendTask:
		h.rpcSendTask(w, r, req)
	case MethodGetTask:
		h.rpcGetTask(w, req)
	case MethodCancelTask:
		h.rpcCancelTask(w, r, req)
	default:
		writeJSON(w, http.StatusOK, NewJSONRPCError(req.ID, ErrCodeNotFound, fmt.Sprintf("method %q not found", req.Method)))
	}
}

func (h *Handler) rpcSendTask(w http.ResponseWriter, r *http.Request, req JSONRPCRequest) {
	var params struct {
		TaskID    string  `json:"id"`
		SessionID string  `json:"session_id"`
		Message   Message `json:"message"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSON(w, http.StatusOK, NewJSONRPCError(req.ID, ErrCodeParse, "invalid params"))
		return
	}

	task, err := h.processMessage(r.Context(), params.TaskID, params.SessionID, params.Message)
	if err != nil {
		writeJSON(w, http.StatusOK, NewJSONRPCError(req.ID, ErrCodeInternal, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, NewJSONRPCResponse(req.ID, task))
}

func (h *Handler) rpcGetTask(w http.ResponseWriter, req JSONRPCRequest) {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSON(w, http.StatusOK, NewJSONRPCError(req.ID, ErrCodeParse, "invalid params"))
		return
	}

	task, err := h.store.Get(params.ID)
	if err != nil {
		writeJSON(w, http.StatusOK, NewJSONRPCError(req.ID, ErrCodeTaskNotFound, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, NewJSONRPCResponse(req.ID, task))
}

func (h *Handler) rpcCancelTask(w http.ResponseWriter, r *http.Request, req JSONRPCRequest) {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSON(w, http.StatusOK, NewJSONRPCError(req.ID, ErrCodeParse, "invalid params"))
		return
	}

	task, err := h.cancelTask(r.Context(), params.ID)
	if err != nil {
		writeJSON(w, http.StatusOK, NewJSONRPCError(req.ID, ErrCodeTaskNotFound, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, NewJSONRPCResponse(req.ID, task))
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	task, err := h.processMessage(r.Context(), r.URL.Query().Get("taskId"), r.URL.Query().Get("sessionId"), msg)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) handleSendMessageStream(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(msg.Parts) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty message"})
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	task := h.getOrCreateTask(r.Context(), r.URL.Query().Get("taskId"), sessionID, msg)
	_ = h.store.Update(task.ID, TaskStateWorking)

	flusher, canFlush := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeSSE(w, flusher, canFlush, "status", TaskStatus{ID: task.ID, State: TaskStateWorking})

	prompt, params := ExtractRequest(&msg)
	var outcome *orchestrator.Outcome
	for ev := range h.orch.Stream(r.Context(), prompt, params, sessionID) {
		if ev.Kind == orchestrator.EventDone {
			outcome = ev.Outcome
		}
		writeSSE(w, flusher, canFlush, string(ev.Kind), ev)
	}

	if r.Context().Err() != nil || outcome == nil {
		_ = h.store.Update(task.ID, TaskStateFailed)
		h.auditEvent(r.Context(), audit.EventA2ATaskFail, task)
		return
	}

	_ = h.store.AppendMessage(task.ID, *replyMessage(outcome))
	_ = h.store.Update(task.ID, TaskStateCompleted)
	h.auditEvent(r.Context(), audit.EventA2ATaskDone, task)
	writeSSE(w, flusher, canFlush, "status", TaskStatus{ID: task.ID, State: TaskStateCompleted})
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.List())
}

func (h *Handler) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.cancelTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) cancelTask(ctx context.Context, id string) (*Task, error) {
	task, err := h.store.Get(id)
	if err != nil {
		return nil, err
	}
	if err := h.store.Update(id, TaskStateCanceled); err != nil {
		return nil, err
	}
	h.auditEvent(ctx, audit.EventA2ATaskCancel, task)
	return task, nil
}

// processMessage runs one inbound message end to end: record it on a task,
// orchestrate, append the agent reply, and mark the task completed. The
// orchestrator reports tool failures in-band, so the task only fails when
// the message itself is unusable.
func (h *Handler) processMessage(ctx context.Context, taskID, sessionID string, msg Message) (*Task, error) {
	if len(msg.Parts) == 0 {
		return nil, fmt.Errorf("a2a: message has no parts")
	}

	task := h.getOrCreateTask(ctx, taskID, sessionID, msg)
	_ = h.store.Update(task.ID, TaskStateWorking)

	prompt, params := ExtractRequest(&msg)
	h.logger.Info("task message received",
		"task_id", task.ID,
		"parts", len(msg.Parts),
	)

	outcome := h.orch.Orchestrate(ctx, prompt, params, sessionID)

	_ = h.store.AppendMessage(task.ID, *replyMessage(outcome))
	_ = h.store.Update(task.ID, TaskStateCompleted)
	h.auditEvent(ctx, audit.EventA2ATaskDone, task)

	return h.store.Get(task.ID)
}

func (h *Handler) getOrCreateTask(ctx context.Context, taskID, sessionID string, msg Message) *Task {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Role == "" {
		msg.Role = RoleUser
	}

	if taskID != "" {
		if task, err := h.store.Get(taskID); err == nil {
			_ = h.store.AppendMessage(taskID, msg)
			return task
		}
	}

	id := taskID
	if id == "" {
		id = uuid.NewString()
	}
	task := &Task{
		ID:        id,
		SessionID: sessionID,
		State:     TaskStateSubmitted,
		Messages:  []Message{msg},
		Artifacts: []any{},
	}
	h.store.Create(task)
	h.auditEvent(ctx, audit.EventA2ATaskNew, task)
	return task
}

// replyMessage wraps an orchestration outcome in the agent's reply
// envelope: one result part carrying {intent, results}.
func replyMessage(outcome *orchestrator.Outcome) *Message {
	reply := NewMessage(RoleAgent)
	reply.AddPart(PartResult, map[string]any{
		"intent":  outcome.Intent,
		"results": outcome.Results,
	})
	return reply
}

// ExtractRequest flattens a message into an orchestration prompt and
// params. Text parts join into the prompt; JSON object parts merge into
// params; semantic parts land under well-known keys so tools can read
// them without re-scanning the envelope.
func ExtractRequest(msg *Message) (string, mcp.Params) {
	var text []string
	params := mcp.Params{}

	for _, p := range msg.Parts {
		switch p.Kind {
		case PartText:
			if s, ok := p.Content.(string); ok && s != "" {
				text = append(text, s)
			}
		case PartJSON:
			if m, ok := p.Content.(map[string]any); ok {
				for k, v := range m {
					params[k] = v
				}
			}
		case PartMeetingID:
			params["meeting_id"] = p.Content
		case PartSummary:
			params["summary"] = p.Content
		case PartTask, PartActionItem:
			tasks, _ := params["tasks"].([]any)
			params["tasks"] = append(tasks, p.Content)
		case PartRisk:
			risks, _ := params["risks"].([]any)
			params["risks"] = append(risks, p.Content)
		case PartProgress:
			params["progress"] = p.Content
		}
	}
	return strings.Join(text, "\n"), params
}

func (h *Handler) auditEvent(ctx context.Context, eventType string, task *Task) {
	if h.audit == nil {
		return
	}
	_ = h.audit.Log(ctx, eventType, task.SessionID, "", "a2a", map[string]any{"task_id": task.ID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, canFlush bool, event string, data any) {
	b, _ := json.Marshal(data)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	if canFlush {
		flusher.Flush()
	}
}
