package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
	"github.com/NaveenPalisetti/meetingmcp/pkg/orchestrator"
)

type stubTool struct {
	id string
	mu sync.Mutex
	// last params seen, for assertions
	params mcp.Params
}

func (s *stubTool) Definition() mcp.Definition {
	return mcp.Definition{ToolID: s.id, Kind: mcp.KindOther, Name: s.id}
}

func (s *stubTool) Execute(_ context.Context, params mcp.Params) (mcp.Result, error) {
	s.mu.Lock()
	s.params = params
	s.mu.Unlock()
	return mcp.Result{"status": mcp.StatusSuccess, "tool": s.id}, nil
}

func (s *stubTool) lastParams() mcp.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

type testEnv struct {
	handler       *Handler
	summarization *stubTool
	transcript    *stubTool
}

func newTestEnv(t *testing.T, authToken string) *testEnv {
	t.Helper()

	env := &testEnv{
		summarization: &stubTool{id: "summarization"},
		transcript:    &stubTool{id: "transcript"},
	}

	host := mcp.NewHost(mcp.HostConfig{})
	host.RegisterTool(env.summarization)
	host.RegisterTool(env.transcript)
	host.RegisterTool(&stubTool{id: "risk"})

	orch := orchestrator.New(orchestrator.Config{Host: host})

	env.handler = NewHandler(HandlerConfig{
		Card:         DefaultCard("http://localhost:18790"),
		Orchestrator: orch,
		AuthToken:    authToken,
	})
	return env
}

func testHandler(t *testing.T) *Handler {
	t.Helper()
	return newTestEnv(t, "").handler
}

func postMessage(t *testing.T, h *Handler, path string, msg any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAgentCard(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest("GET", "/.well-known/agentcard", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var card map[string]any
	if err := json.NewDecoder(w.Body).Decode(&card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if card["agent_id"] != "orchestrator" {
		t.Errorf("agent_id = %v, want orchestrator", card["agent_id"])
	}
	if card["base_url"] != "http://localhost:18790" {
		t.Errorf("base_url = %v", card["base_url"])
	}
	caps, _ := card["capabilities"].([]any)
	if len(caps) == 0 {
		t.Error("capabilities missing from card")
	}
}

func TestAgentCardIsPublic(t *testing.T) {
	env := newTestEnv(t, "secret-token")
	req := httptest.NewRequest("GET", "/.well-known/agentcard", nil)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("agent card should be public, got status %d", w.Code)
	}
}

func TestSendMessageCreatesTask(t *testing.T) {
	h := testHandler(t)

	msg := NewMessage(RoleUser, "give me a summary of the standup")
	w := postMessage(t, h, "/a2a/messages", msg)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
	}

	var task Task
	if err := json.NewDecoder(w.Body).Decode(&task); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.ID == "" {
		t.Error("task has no id")
	}
	if task.State != TaskStateCompleted {
		t.Errorf("State = %q, want %q", task.State, TaskStateCompleted)
	}
	if len(task.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want request + reply", len(task.Messages))
	}

	reply := task.Messages[1]
	if reply.Role != RoleAgent {
		t.Errorf("reply role = %q, want agent", reply.Role)
	}
	if len(reply.Parts) != 1 || reply.Parts[0].Kind != PartResult {
		t.Fatalf("reply parts = %+v, want one result part", reply.Parts)
	}
	content, _ := reply.Parts[0].Content.(map[string]any)
	if content["intent"] != "summarize" {
		t.Errorf("intent = %v, want summarize", content["intent"])
	}
	results, _ := content["results"].(map[string]any)
	if _, ok := results["summarization"]; !ok {
		t.Errorf("results = %v, want summarization entry", results)
	}
}

func TestSendMessageLiftsPartsIntoParams(t *testing.T) {
	env := newTestEnv(t, "")

	msg := NewMessage(RoleUser,
		"summarize this meeting",
		map[string]any{"content_type": "application/json", "content": map[string]any{"processed": []any{"chunk one"}}},
		map[string]any{"content_type": "meeting_id", "content": "meet-42"},
		map[string]any{"content_type": "task", "content": map[string]any{"summary": "ship the fix"}},
		map[string]any{"content_type": "task", "content": map[string]any{"summary": "write the doc"}},
	)
	w := postMessage(t, env.handler, "/a2a/messages", msg)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	params := env.summarization.lastParams()
	if params.String("meeting_id") != "meet-42" {
		t.Errorf("meeting_id = %q, want meet-42", params.String("meeting_id"))
	}
	if got := params.Strings("processed"); len(got) != 1 || got[0] != "chunk one" {
		t.Errorf("processed = %v", got)
	}
	tasks, _ := params["tasks"].([]any)
	if len(tasks) != 2 {
		t.Errorf("tasks = %v, want both task parts appended", tasks)
	}
}

func TestGetTask(t *testing.T) {
	h := testHandler(t)

	createW := postMessage(t, h, "/a2a/messages", NewMessage(RoleUser, "hello"))
	var created Task
	_ = json.NewDecoder(createW.Body).Decode(&created)

	getReq := httptest.NewRequest("GET", "/a2a/tasks/"+created.ID, nil)
	getW := httptest.NewRecorder()
	h.ServeHTTP(getW, getReq)

	if getW.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", getW.Code, http.StatusOK)
	}

	var got Task
	_ = json.NewDecoder(getW.Body).Decode(&got)
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest("GET", "/a2a/tasks/nonexistent", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestListTasks(t *testing.T) {
	h := testHandler(t)

	for i := 0; i < 3; i++ {
		postMessage(t, h, "/a2a/messages", NewMessage(RoleUser, "hello"))
	}

	listReq := httptest.NewRequest("GET", "/a2a/tasks", nil)
	listW := httptest.NewRecorder()
	h.ServeHTTP(listW, listReq)

	if listW.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", listW.Code, http.StatusOK)
	}

	var tasks []*Task
	_ = json.NewDecoder(listW.Body).Decode(&tasks)
	if len(tasks) != 3 {
		t.Errorf("tasks len = %d, want 3", len(tasks))
	}
}

func TestCancelTask(t *testing.T) {
	h := testHandler(t)

	createW := postMessage(t, h, "/a2a/messages", NewMessage(RoleUser, "hello"))
	var created Task
	_ = json.NewDecoder(createW.Body).Decode(&created)

	cancelReq := httptest.NewRequest("POST", "/a2a/tasks/"+created.ID+":cancel", nil)
	cancelW := httptest.NewRecorder()
	h.ServeHTTP(cancelW, cancelReq)

	if cancelW.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", cancelW.Code, http.StatusOK)
	}

	var canceled Task
	_ = json.NewDecoder(cancelW.Body).Decode(&canceled)
	if canceled.State != TaskStateCanceled {
		t.Errorf("State = %q, want %q", canceled.State, TaskStateCanceled)
	}
}

func TestCancelTaskNotFound(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest("POST", "/a2a/tasks/nonexistent:cancel", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestJSONRPCSendTask(t *testing.T) {
	h := testHandler(t)

	rpcReq := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  MethodSendTask,
		Params:  json.RawMessage(`{"message":{"role":"user","parts":[{"content_type":"text/plain","content":"what are the risks"}]}}`),
	}
	w := postMessage(t, h, "/a2a", rpcReq)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp JSONRPCResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if resp.JSONRPC != "2.0" {
		t.Errorf("JSONRPC = %q, want 2.0", resp.JSONRPC)
	}

	data, _ := json.Marshal(resp.Result)
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		t.Fatalf("result is not a task: %v", err)
	}
	if task.State != TaskStateCompleted {
		t.Errorf("State = %q, want completed", task.State)
	}
}

func TestJSONRPCGetTask(t *testing.T) {
	h := testHandler(t)

	createW := postMessage(t, h, "/a2a/messages", NewMessage(RoleUser, "hello"))
	var created Task
	_ = json.NewDecoder(createW.Body).Decode(&created)

	rpcReq := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  MethodGetTask,
		Params:  json.RawMessage(`{"id":"` + created.ID + `"}`),
	}
	w := postMessage(t, h, "/a2a", rpcReq)

	var resp JSONRPCResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestJSONRPCGetTaskNotFound(t *testing.T) {
	h := testHandler(t)

	rpcReq := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      3,
		Method:  MethodGetTask,
		Params:  json.RawMessage(`{"id":"missing"}`),
	}
	w := postMessage(t, h, "/a2a", rpcReq)

	var resp JSONRPCResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error == nil {
		t.Fatal("expected task-not-found error")
	}
	if resp.Error.Code != ErrCodeTaskNotFound {
		t.Errorf("Code = %d, want %d", resp.Error.Code, ErrCodeTaskNotFound)
	}
}

func TestJSONRPCUnknownMethod(t *testing.T) {
	h := testHandler(t)

	rpcReq := JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "tasks/destroy"}
	w := postMessage(t, h, "/a2a", rpcReq)

	var resp JSONRPCResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("Code = %d, want %d", resp.Error.Code, ErrCodeNotFound)
	}
}

func TestJSONRPCInvalidVersion(t *testing.T) {
	h := testHandler(t)

	rpcReq := JSONRPCRequest{JSONRPC: "1.0", ID: 1, Method: MethodGetTask}
	w := postMessage(t, h, "/a2a", rpcReq)

	var resp JSONRPCResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error == nil {
		t.Fatal("expected error for invalid version")
	}
	if resp.Error.Code != ErrCodeInvalidReq {
		t.Errorf("Code = %d, want %d", resp.Error.Code, ErrCodeInvalidReq)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, "secret-token")

	req := httptest.NewRequest("GET", "/a2a/tasks", nil)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d (no auth)", w.Code, http.StatusUnauthorized)
	}

	req2 := httptest.NewRequest("GET", "/a2a/tasks", nil)
	req2.Header.Set("Authorization", "Bearer wrong-token")
	w2 := httptest.NewRecorder()
	env.handler.ServeHTTP(w2, req2)
	if w2.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d (wrong token)", w2.Code, http.StatusUnauthorized)
	}

	req3 := httptest.NewRequest("GET", "/a2a/tasks", nil)
	req3.Header.Set("Authorization", "Bearer secret-token")
	w3 := httptest.NewRecorder()
	env.handler.ServeHTTP(w3, req3)
	if w3.Code != http.StatusOK {
		t.Errorf("status = %d, want %d (valid token)", w3.Code, http.StatusOK)
	}
}

func TestSendMessageStream(t *testing.T) {
	h := testHandler(t)

	msg := NewMessage(RoleUser, "summarize the planning call")
	body, _ := json.Marshal(msg)
	req := httptest.NewRequest("POST", "/a2a/messages:stream", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	respBody, _ := io.ReadAll(w.Body)
	sse := string(respBody)

	for _, want := range []string{
		"event: status",
		"event: orchestrate_started",
		"event: tool_started",
		"event: tool_finished",
		"event: orchestrate_done",
		`"state":"completed"`,
	} {
		if !strings.Contains(sse, want) {
			t.Errorf("SSE stream missing %q\n%s", want, sse)
		}
	}
}

func TestSendMessageEmpty(t *testing.T) {
	h := testHandler(t)

	w := postMessage(t, h, "/a2a/messages", Message{Role: RoleUser})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSendMessageContinuesTask(t *testing.T) {
	h := testHandler(t)

	createW := postMessage(t, h, "/a2a/messages", NewMessage(RoleUser, "hello"))
	var created Task
	_ = json.NewDecoder(createW.Body).Decode(&created)

	followW := postMessage(t, h, "/a2a/messages?taskId="+created.ID, NewMessage(RoleUser, "and the risks?"))
	var followed Task
	_ = json.NewDecoder(followW.Body).Decode(&followed)

	if followed.ID != created.ID {
		t.Fatalf("task id changed: %q vs %q", followed.ID, created.ID)
	}
	// initial request+reply, then follow-up request+reply
	if len(followed.Messages) != 4 {
		t.Errorf("len(Messages) = %d, want 4", len(followed.Messages))
	}
}

func TestExtractRequest(t *testing.T) {
	msg := NewMessage(RoleUser,
		"first line",
		"second line",
		map[string]any{"content_type": "application/json", "content": map[string]any{"chunk_size": 500}},
		map[string]any{"content_type": "summary", "content": map[string]any{"summary_text": "done"}},
		map[string]any{"content_type": "risk", "content": map[string]any{"severity": "high"}},
		map[string]any{"content_type": "progress", "content": "50%"},
	)

	prompt, params := ExtractRequest(msg)

	if prompt != "first line\nsecond line" {
		t.Errorf("prompt = %q", prompt)
	}
	if params.Int("chunk_size", 0) != 500 {
		t.Errorf("chunk_size = %d, want 500", params.Int("chunk_size", 0))
	}
	if _, ok := params["summary"]; !ok {
		t.Error("summary part not lifted")
	}
	risks, _ := params["risks"].([]any)
	if len(risks) != 1 {
		t.Errorf("risks = %v, want one entry", risks)
	}
	if params["progress"] != "50%" {
		t.Errorf("progress = %v", params["progress"])
	}
}
