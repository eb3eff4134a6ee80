package gateway

import (
	"cmp"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
)

func (g *Gateway) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "meetingmcp",
		"endpoints": []string{
			"/health",
			"/session/create",
			"/session/{id}/end",
			"/mcp/orchestrate",
			"/mcp/tools",
			"/mcp/transcript",
			"/mcp/summarize",
			"/mcp/jira",
			"/mcp/risk",
			"/mcp/calendar",
			"/mcp/notify",
			"/ws",
		},
	})
}

func (g *Gateway) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID string `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sess := g.host.CreateSession(r.Context(), cmp.Or(req.AgentID, ephemeralAgentID))
	writeJSON(w, http.StatusOK, map[string]string{"session_id": sess.ID})
}

// handleSessionEnd reports success even for unknown or already-ended
// sessions; ending is idempotent from the caller's point of view.
func (g *Gateway) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	g.host.EndSession(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]bool{"ended": true})
}

func (g *Gateway) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt    string         `json:"prompt"`
		Message   string         `json:"message"`
		Params    map[string]any `json:"params"`
		SessionID string         `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	prompt := cmp.Or(req.Prompt, req.Message)
	outcome := g.orch.Orchestrate(r.Context(), prompt, mcp.Params(req.Params), req.SessionID)
	writeJSON(w, http.StatusOK, outcome)
}

func (g *Gateway) handleTools(w http.ResponseWriter, r *http.Request) {
	sess := g.host.CreateSession(r.Context(), ephemeralAgentID)
	defer g.host.EndSession(r.Context(), sess.ID)

	writeJSON(w, http.StatusOK, g.host.AvailableTools(sess.ID))
}

// toolHandler exposes a single tool as a REST endpoint. The request body
// becomes the tool parameters verbatim; each tool resolves its own aliases.
func (g *Gateway) toolHandler(toolID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		sess := g.host.CreateSession(r.Context(), ephemeralAgentID)
		defer g.host.EndSession(r.Context(), sess.ID)

		res := g.host.ExecuteTool(r.Context(), sess.ID, toolID, mcp.Params(body))
		writeJSON(w, http.StatusOK, res)
	}
}
