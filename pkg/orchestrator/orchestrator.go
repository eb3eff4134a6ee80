// Package orchestrator turns a natural-language request into a sequence of
// tool executions: detect the intent, resolve the tool route, run each tool
// through the host, and aggregate the per-tool results.
package orchestrator

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/NaveenPalisetti/meetingmcp/pkg/audit"
	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
	"github.com/NaveenPalisetti/meetingmcp/pkg/store"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

// DefaultAgentID identifies sessions the orchestrator opens for itself.
const DefaultAgentID = "orchestrator"

// IntentDefault is returned when no keyword rule matches.
const IntentDefault = "default"

type intentRule struct {
	intent   string
	keywords []string
}

// intentRules is scanned top to bottom; the first keyword hit wins.
// Preprocessing keywords outrank the generic calendar verbs on purpose:
// "process the transcript and fetch my calendar" is a preprocess request.
var intentRules = []intentRule{
	{"preprocess", []string{"preprocess", "pre-processing", "process", "transcript", "transcripts", "clean"}},
	{"summarize", []string{"summar"}},
	{"risk", []string{"risk"}},
	{"calendar", []string{"calendar", "events", "fetch"}},
	{"jira", []string{"jira", "ticket", "issue"}},
	{"notify", []string{"notify", "email"}},
}

// routes maps an intent to the tool ids that serve it, in call order.
var routes = map[string][]string{
	"calendar":    {"calendar"},
	"preprocess":  {"transcript"},
	"summarize":   {"summarization"},
	"risk":        {"risk"},
	"jira":        {"jira"},
	"notify":      {"notification"},
	IntentDefault: {"summarization"},
}

// DetectIntent classifies text by substring keyword scan over the
// lowercased input. Deterministic and cheap; swapping in an LLM-backed
// classifier only needs to preserve the intent names.
func DetectIntent(text string) string {
	t := strings.ToLower(text)
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(t, kw) {
				return rule.intent
			}
		}
	}
	return IntentDefault
}

// Route resolves an intent to tool ids. Unknown intents take the default
// route.
func Route(intent string) []string {
	ids, ok := routes[intent]
	if !ok {
		ids = routes[IntentDefault]
	}
	return append([]string(nil), ids...)
}

type Config struct {
	Host    *mcp.Host
	AgentID string
	Store   *store.Store
	Audit   mcp.AuditSink
	Bus     *Bus
	Logger  *slog.Logger

	// Routes overrides the built-in route table when non-nil. Entries may
	// list several tool ids; they run sequentially in list order.
	Routes map[string][]string
}

type Orchestrator struct {
	host    *mcp.Host
	agentID string
	store   *store.Store
	audit   mcp.AuditSink
	bus     *Bus
	routes  map[string][]string
	logger  *slog.Logger
}

func New(cfg Config) *Orchestrator {
	if cfg.AgentID == "" {
		cfg.AgentID = DefaultAgentID
	}
	if cfg.Bus == nil {
		cfg.Bus = NewBus()
	}
	return &Orchestrator{
		host:    cfg.Host,
		agentID: cfg.AgentID,
		store:   cfg.Store,
		audit:   cfg.Audit,
		bus:     cfg.Bus,
		routes:  cfg.Routes,
		logger:  telemetry.Component(cfg.Logger, "orchestrator"),
	}
}

// Bus exposes the event bus so transports can stream orchestration
// progress to watchers.
func (o *Orchestrator) Bus() *Bus {
	return o.bus
}

// Orchestrate runs the full pipeline synchronously and returns the
// aggregated outcome. It never returns an error: tool failures, including
// an invalid caller-supplied session, land as structured error results
// under the failing tool's id and the remaining tools still run.
//
// When sessionID is empty a short-lived session is opened around the call
// and ended afterwards, ended even if a tool panics. A caller-supplied
// session is left untouched.
func (o *Orchestrator) Orchestrate(ctx context.Context, prompt string, params mcp.Params, sessionID string) *Outcome {
	return o.run(ctx, prompt, params, sessionID, func(Event) {})
}

// Stream runs the same pipeline and delivers progress events on the
// returned channel, closed when the orchestration finishes. The final
// orchestrate_done event carries the outcome.
func (o *Orchestrator) Stream(ctx context.Context, prompt string, params mcp.Params, sessionID string) <-chan Event {
	out := make(chan Event, 64)
	go func() {
		defer close(out)
		o.run(ctx, prompt, params, sessionID, func(ev Event) {
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		})
	}()
	return out
}

func (o *Orchestrator) route(intent string) []string {
	if o.routes == nil {
		return Route(intent)
	}
	ids, ok := o.routes[intent]
	if !ok {
		ids = o.routes[IntentDefault]
	}
	if len(ids) == 0 {
		ids = routes[IntentDefault]
	}
	return append([]string(nil), ids...)
}

func (o *Orchestrator) run(ctx context.Context, prompt string, params mcp.Params, sessionID string, emit func(Event)) *Outcome {
	intent := DetectIntent(prompt)
	toolIDs := o.route(intent)

	ctx, span := telemetry.StartSpan(ctx, "orchestrator.run",
		attribute.String("intent", intent),
	)
	defer span.End()

	telemetry.Metrics.Orchestrations.WithLabelValues(intent).Inc()

	created := false
	if sessionID == "" {
		sessionID = o.host.CreateSession(ctx, o.agentID).ID
		created = true
	}
	defer func() {
		if created {
			o.host.EndSession(ctx, sessionID)
		}
	}()

	o.logger.Info("orchestrating",
		"intent", intent,
		"session_id", sessionID,
		"tools", strings.Join(toolIDs, ","),
	)

	results := NewResults()
	outcome := &Outcome{Intent: intent, Results: results}

	o.send(emit, Event{Kind: EventStarted, SessionID: sessionID, Intent: intent})

	if params == nil {
		params = mcp.Params{}
	}
	for _, toolID := range toolIDs {
		o.send(emit, Event{Kind: EventToolStarted, SessionID: sessionID, Intent: intent, ToolID: toolID})

		res := o.host.ExecuteTool(ctx, sessionID, toolID, params)
		results.Set(toolID, res)

		o.send(emit, Event{Kind: EventToolFinished, SessionID: sessionID, Intent: intent, ToolID: toolID, Result: res})
	}

	o.record(ctx, sessionID, intent, prompt, results)
	o.send(emit, Event{Kind: EventDone, SessionID: sessionID, Intent: intent, Outcome: outcome})

	return outcome
}

func (o *Orchestrator) send(emit func(Event), ev Event) {
	ev.At = time.Now().UTC()
	emit(ev)
	o.bus.Publish(ev)
}

// record persists the orchestration for history and the daily digest, and
// writes the audit trail. Both are best-effort.
func (o *Orchestrator) record(ctx context.Context, sessionID, intent, prompt string, results *Results) {
	if o.store != nil {
		data, err := json.Marshal(results)
		if err != nil {
			data = []byte("{}")
		}
		rec := &store.Orchestration{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Intent:    intent,
			Prompt:    prompt,
			Results:   string(data),
			CreatedAt: time.Now().UTC(),
		}
		if err := o.store.InsertOrchestration(ctx, rec); err != nil {
			o.logger.Warn("orchestration not persisted", "session_id", sessionID, "error", err)
		}
	}

	if o.audit != nil {
		_ = o.audit.Log(ctx, audit.EventOrchestrate, sessionID, o.agentID, "orchestrator", map[string]any{
			"intent": intent,
			"tools":  results.ToolIDs(),
		})
	}
}
