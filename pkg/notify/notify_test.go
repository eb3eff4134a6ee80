package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NaveenPalisetti/meetingmcp/pkg/config"
)

type fakeSink struct {
	name string
	err  error

	mu  sync.Mutex
	got []Notification
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Send(_ context.Context, n Notification) error {
	f.mu.Lock()
	f.got = append(f.got, n)
	f.mu.Unlock()
	return f.err
}

func TestBroadcastFansOut(t *testing.T) {
	a := &fakeSink{name: "a"}
	b := &fakeSink{name: "b"}
	bc := NewBroadcaster(nil, a, b)

	n := Notification{MeetingID: "meet-1", Summary: "all good"}
	delivered, failed := bc.Broadcast(t.Context(), n)

	if len(delivered) != 2 || delivered[0] != "a" || delivered[1] != "b" {
		t.Errorf("delivered = %v, want [a b]", delivered)
	}
	if len(failed) != 0 {
		t.Errorf("failed = %v, want none", failed)
	}
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Errorf("sink deliveries = %d/%d, want 1/1", len(a.got), len(b.got))
	}
	if a.got[0].MeetingID != "meet-1" {
		t.Errorf("MeetingID = %q", a.got[0].MeetingID)
	}
}

func TestBroadcastIsolatesFailures(t *testing.T) {
	bad := &fakeSink{name: "bad", err: errors.New("boom")}
	good := &fakeSink{name: "good"}
	bc := NewBroadcaster(nil, bad, good)

	delivered, failed := bc.Broadcast(t.Context(), Notification{Summary: "x"})

	if len(delivered) != 1 || delivered[0] != "good" {
		t.Errorf("delivered = %v, want [good]", delivered)
	}
	if len(failed) != 1 || failed[0] != "bad" {
		t.Errorf("failed = %v, want [bad]", failed)
	}
	if len(good.got) != 1 {
		t.Error("failure in one sink blocked delivery to the next")
	}
}

func TestBroadcastEmpty(t *testing.T) {
	bc := NewBroadcaster(nil)

	delivered, failed := bc.Broadcast(t.Context(), Notification{})
	if len(delivered) != 0 || len(failed) != 0 {
		t.Errorf("delivered = %v, failed = %v, want empty", delivered, failed)
	}
	if bc.Len() != 0 {
		t.Errorf("Len() = %d, want 0", bc.Len())
	}
}

func TestBroadcasterNames(t *testing.T) {
	bc := NewBroadcaster(nil, &fakeSink{name: "slack"}, &fakeSink{name: "discord"})
	names := bc.Names()
	if len(names) != 2 || names[0] != "slack" || names[1] != "discord" {
		t.Errorf("Names() = %v", names)
	}
}

func TestNotificationRender(t *testing.T) {
	n := Notification{
		MeetingID: "meet-7",
		Summary:   "Shipped the beta.",
		NumTasks:  2,
		Risks:     []string{"deadline slip", "unassigned work"},
	}

	want := "Meeting digest: meet-7\n\nShipped the beta.\n\nAction items: 2\n\nRisks:\n- deadline slip\n- unassigned work"
	if got := n.Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestNotificationRenderMinimal(t *testing.T) {
	n := Notification{Summary: "Quick sync, nothing blocking."}

	want := "Meeting digest\n\nQuick sync, nothing blocking."
	if got := n.Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestNotificationPayload(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	n := Notification{MeetingID: "m1", Summary: "s", NumTasks: 3, Risks: []string{"r"}, Timestamp: ts}

	p := n.Payload()
	if p["meeting_id"] != "m1" {
		t.Errorf("meeting_id = %v", p["meeting_id"])
	}
	if p["num_tasks"] != 3 {
		t.Errorf("num_tasks = %v", p["num_tasks"])
	}
	if p["timestamp"] != "2026-03-14T09:30:00Z" {
		t.Errorf("timestamp = %v", p["timestamp"])
	}
}

type fakeSecrets map[string]string

func (f fakeSecrets) Get(_ context.Context, name string) (string, error) {
	v, ok := f[name]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestBuildSinks(t *testing.T) {
	t.Setenv("SLACK_WEBHOOK_URL", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	cfgs := map[string]config.SinkConfig{
		"slack":    {Enabled: true, WebhookURL: "https://hooks.slack.example/T/B/x"},
		"telegram": {Enabled: true, Channel: "12345"},
		"discord":  {Enabled: false, Token: "tok", Channel: "c1"},
		"bogus":    {Enabled: true},
	}
	secrets := fakeSecrets{"telegram_token": "tg-token"}

	sinks := BuildSinks(t.Context(), cfgs, secrets, nil)

	if len(sinks) != 2 {
		t.Fatalf("len(sinks) = %d, want slack + telegram", len(sinks))
	}
	// map keys are built in sorted order
	if sinks[0].Name() != "slack" || sinks[1].Name() != "telegram" {
		t.Errorf("sinks = [%s %s]", sinks[0].Name(), sinks[1].Name())
	}
}

func TestBuildSinksSkipsUnconfigured(t *testing.T) {
	t.Setenv("SLACK_WEBHOOK_URL", "")

	cfgs := map[string]config.SinkConfig{
		"slack": {Enabled: true},
	}
	sinks := BuildSinks(t.Context(), cfgs, nil, nil)
	if len(sinks) != 0 {
		t.Errorf("len(sinks) = %d, want 0 for a sink with no webhook anywhere", len(sinks))
	}
}

func TestNewTelegramSinkParsesChatID(t *testing.T) {
	s, err := NewTelegramSink("tok", "987654")
	if err != nil {
		t.Fatalf("NewTelegramSink: %v", err)
	}
	if id, ok := s.chatID.(int64); !ok || id != 987654 {
		t.Errorf("chatID = %v (%T), want int64 987654", s.chatID, s.chatID)
	}

	s, err = NewTelegramSink("tok", "@standup")
	if err != nil {
		t.Fatalf("NewTelegramSink: %v", err)
	}
	if name, ok := s.chatID.(string); !ok || name != "@standup" {
		t.Errorf("chatID = %v (%T), want string @standup", s.chatID, s.chatID)
	}
}

func TestNewSlackSinkRequiresWebhook(t *testing.T) {
	t.Setenv("SLACK_WEBHOOK_URL", "")
	if _, err := NewSlackSink(""); err == nil {
		t.Error("expected error when no webhook url is configured")
	}
}
