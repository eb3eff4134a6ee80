package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
	"github.com/NaveenPalisetti/meetingmcp/pkg/store"
)

type stubTool struct {
	def mcp.Definition
	fn  func(ctx context.Context, params mcp.Params) (mcp.Result, error)
}

func (s *stubTool) Definition() mcp.Definition { return s.def }

func (s *stubTool) Execute(ctx context.Context, params mcp.Params) (mcp.Result, error) {
	return s.fn(ctx, params)
}

func newStubTool(id string, fn func(ctx context.Context, params mcp.Params) (mcp.Result, error)) *stubTool {
	return &stubTool{
		def: mcp.Definition{ToolID: id, Kind: mcp.KindOther, Name: id},
		fn:  fn,
	}
}

func okTool(id string) *stubTool {
	return newStubTool(id, func(context.Context, mcp.Params) (mcp.Result, error) {
		return mcp.Result{"status": mcp.StatusSuccess, "tool": id}, nil
	})
}

type captureAudit struct {
	mu     sync.Mutex
	events []string
}

func (c *captureAudit) Log(_ context.Context, eventType, _, _, _ string, _ any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, eventType)
	return nil
}

func newTestOrchestrator(t *testing.T, tools ...mcp.Tool) (*Orchestrator, *mcp.Host) {
	t.Helper()
	host := mcp.NewHost(mcp.HostConfig{})
	for _, tool := range tools {
		host.RegisterTool(tool)
	}
	o := New(Config{Host: host})
	return o, host
}

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Please preprocess the meeting recordings", "preprocess"},
		{"run pre-processing on this", "preprocess"},
		{"process the raw data", "preprocess"},
		{"clean these up", "preprocess"},
		{"please summarize the transcript and fetch my calendar", "preprocess"},
		{"summarize the discussion", "summarize"},
		{"give me a summary and fetch my calendar", "summarize"},
		{"SUMMARIZE everything", "summarize"},
		{"what risks came out of the meeting", "risk"},
		{"detect risk in the current sprint", "risk"},
		{"fetch my calendar events for next week", "calendar"},
		{"what events do we have", "calendar"},
		{"create a jira ticket for this", "jira"},
		{"open an issue", "jira"},
		{"notify the team", "notify"},
		{"send an email to stakeholders", "notify"},
		{"hello there", "default"},
		{"", "default"},
	}

	for _, tt := range tests {
		if got := DetectIntent(tt.text); got != tt.want {
			t.Errorf("DetectIntent(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		intent string
		want   []string
	}{
		{"calendar", []string{"calendar"}},
		{"preprocess", []string{"transcript"}},
		{"summarize", []string{"summarization"}},
		{"risk", []string{"risk"}},
		{"jira", []string{"jira"}},
		{"notify", []string{"notification"}},
		{"default", []string{"summarization"}},
		{"no-such-intent", []string{"summarization"}},
	}

	for _, tt := range tests {
		if got := Route(tt.intent); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Route(%q) = %v, want %v", tt.intent, got, tt.want)
		}
	}
}

func TestRouteReturnsCopy(t *testing.T) {
	got := Route("risk")
	got[0] = "mutated"
	if again := Route("risk"); again[0] != "risk" {
		t.Errorf("Route table was mutated through a returned slice: %v", again)
	}
}

func TestOrchestrateCreatesAndEndsSession(t *testing.T) {
	o, host := newTestOrchestrator(t, okTool("summarization"))

	outcome := o.Orchestrate(t.Context(), "give me a summary", nil, "")

	if outcome.Intent != "summarize" {
		t.Errorf("Intent = %q, want summarize", outcome.Intent)
	}
	res, ok := outcome.Results.Get("summarization")
	if !ok {
		t.Fatal("no result recorded for summarization")
	}
	if res.Status() != mcp.StatusSuccess {
		t.Errorf("status = %q, want success", res.Status())
	}

	sessions := host.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("len(Sessions) = %d, want 1", len(sessions))
	}
	if sessions[0].Active {
		t.Error("short-lived session still active after Orchestrate")
	}
	if sessions[0].AgentID != DefaultAgentID {
		t.Errorf("AgentID = %q, want %q", sessions[0].AgentID, DefaultAgentID)
	}
}

func TestOrchestrateReusesCallerSession(t *testing.T) {
	o, host := newTestOrchestrator(t, okTool("summarization"))

	sess := host.CreateSession(t.Context(), "caller")
	o.Orchestrate(t.Context(), "give me a summary", nil, sess.ID)

	got, ok := host.Session(sess.ID)
	if !ok {
		t.Fatal("session vanished")
	}
	if !got.Active {
		t.Error("caller-supplied session was ended by Orchestrate")
	}
	if n := len(host.Sessions()); n != 1 {
		t.Errorf("len(Sessions) = %d, want 1 (no extra session created)", n)
	}
}

func TestOrchestrateInvalidCallerSession(t *testing.T) {
	o, host := newTestOrchestrator(t, okTool("summarization"))

	outcome := o.Orchestrate(t.Context(), "give me a summary", nil, "no-such-session")

	res, ok := outcome.Results.Get("summarization")
	if !ok {
		t.Fatal("no result recorded")
	}
	if res.Status() != mcp.StatusError {
		t.Errorf("status = %q, want error", res.Status())
	}
	if msg, _ := res["message"].(string); msg != "Invalid session ID" {
		t.Errorf("message = %q, want Invalid session ID", msg)
	}
	if n := len(host.Sessions()); n != 0 {
		t.Errorf("len(Sessions) = %d, want 0", n)
	}
}

func TestOrchestrateContinuesAfterToolError(t *testing.T) {
	failing := newStubTool("transcript", func(context.Context, mcp.Params) (mcp.Result, error) {
		return nil, errors.New("cleaning failed")
	})
	host := mcp.NewHost(mcp.HostConfig{})
	host.RegisterTool(failing)
	host.RegisterTool(okTool("summarization"))

	o := New(Config{
		Host:   host,
		Routes: map[string][]string{"preprocess": {"transcript", "summarization"}},
	})

	outcome := o.Orchestrate(t.Context(), "process the transcripts", mcp.Params{"data": "hello"}, "")

	if got := outcome.Results.ToolIDs(); !reflect.DeepEqual(got, []string{"transcript", "summarization"}) {
		t.Fatalf("ToolIDs = %v, want both tools in call order", got)
	}
	first, _ := outcome.Results.Get("transcript")
	if first.Status() != mcp.StatusError {
		t.Errorf("transcript status = %q, want error", first.Status())
	}
	if msg, _ := first["message"].(string); msg != "cleaning failed" {
		t.Errorf("transcript message = %q, want cleaning failed", msg)
	}
	second, _ := outcome.Results.Get("summarization")
	if second.Status() != mcp.StatusSuccess {
		t.Errorf("summarization status = %q, want success (batch must continue)", second.Status())
	}
}

func TestOrchestrateEndsSessionAfterPanic(t *testing.T) {
	panicking := newStubTool("summarization", func(context.Context, mcp.Params) (mcp.Result, error) {
		panic("tool blew up")
	})
	o, host := newTestOrchestrator(t, panicking)

	outcome := o.Orchestrate(t.Context(), "summary please", nil, "")

	res, _ := outcome.Results.Get("summarization")
	if res.Status() != mcp.StatusError {
		t.Errorf("status = %q, want error", res.Status())
	}
	sessions := host.Sessions()
	if len(sessions) != 1 || sessions[0].Active {
		t.Error("short-lived session not ended after tool panic")
	}
}

func TestOrchestratePassesParamsThrough(t *testing.T) {
	var got mcp.Params
	echo := newStubTool("calendar", func(_ context.Context, params mcp.Params) (mcp.Result, error) {
		got = params
		return mcp.Result{"status": mcp.StatusSuccess}, nil
	})
	o, _ := newTestOrchestrator(t, echo)

	o.Orchestrate(t.Context(), "fetch my calendar events", mcp.Params{"action": "fetch", "max_results": 5}, "")

	if got.String("action") != "fetch" {
		t.Errorf("action = %q, want fetch", got.String("action"))
	}
	if got.Int("max_results", 0) != 5 {
		t.Errorf("max_results = %d, want 5", got.Int("max_results", 0))
	}
}

func TestStreamEmitsOrderedEvents(t *testing.T) {
	o, _ := newTestOrchestrator(t, okTool("risk"))

	var kinds []EventKind
	var done *Event
	for ev := range o.Stream(t.Context(), "any risks?", nil, "") {
		kinds = append(kinds, ev.Kind)
		if ev.Kind == EventDone {
			copied := ev
			done = &copied
		}
	}

	want := []EventKind{EventStarted, EventToolStarted, EventToolFinished, EventDone}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("event kinds = %v, want %v", kinds, want)
	}
	if done == nil || done.Outcome == nil {
		t.Fatal("orchestrate_done carries no outcome")
	}
	if done.Outcome.Intent != "risk" {
		t.Errorf("outcome intent = %q, want risk", done.Outcome.Intent)
	}
	if done.At.IsZero() {
		t.Error("event timestamp not set")
	}
}

func TestOrchestrateRecordsHistoryAndAudit(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer s.Close()

	sink := &captureAudit{}
	host := mcp.NewHost(mcp.HostConfig{})
	host.RegisterTool(okTool("jira"))
	o := New(Config{Host: host, Store: s, Audit: sink})

	o.Orchestrate(t.Context(), "file a jira ticket", mcp.Params{"items": []any{}}, "")

	rows, err := s.RecentOrchestrations(t.Context(), 10)
	if err != nil {
		t.Fatalf("RecentOrchestrations: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].Intent != "jira" {
		t.Errorf("Intent = %q, want jira", rows[0].Intent)
	}
	if rows[0].Prompt != "file a jira ticket" {
		t.Errorf("Prompt = %q", rows[0].Prompt)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(rows[0].Results), &decoded); err != nil {
		t.Fatalf("results column is not JSON: %v", err)
	}
	if _, ok := decoded["jira"]; !ok {
		t.Errorf("results JSON missing jira key: %s", rows[0].Results)
	}

	joined := strings.Join(sink.events, ",")
	if !strings.Contains(joined, "orchestrate") {
		t.Errorf("audit events = %v, want an orchestrate entry", sink.events)
	}
}

func TestOutcomeSerializesIntentAndResults(t *testing.T) {
	o, _ := newTestOrchestrator(t, okTool("summarization"))

	outcome := o.Orchestrate(t.Context(), "tldr please", nil, "")

	data, err := json.Marshal(outcome)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded struct {
		Intent  string                    `json:"intent"`
		Results map[string]map[string]any `json:"results"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Intent != "default" {
		t.Errorf("intent = %q, want default", decoded.Intent)
	}
	if decoded.Results["summarization"]["status"] != "success" {
		t.Errorf("results = %v", decoded.Results)
	}
}
