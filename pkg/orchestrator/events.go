package orchestrator

import (
	"sync"
	"time"

	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
)

type EventKind string

const (
	EventStarted      EventKind = "orchestrate_started"
	EventToolStarted  EventKind = "tool_started"
	EventToolFinished EventKind = "tool_finished"
	EventDone         EventKind = "orchestrate_done"
)

// Event is one step of an orchestration, streamed to SSE and WebSocket
// watchers. Fields are populated per kind: ToolID and Result only on tool
// events, Outcome only on orchestrate_done.
type Event struct {
	Kind      EventKind  `json:"kind"`
	SessionID string     `json:"session_id,omitempty"`
	Intent    string     `json:"intent,omitempty"`
	ToolID    string     `json:"tool_id,omitempty"`
	Result    mcp.Result `json:"result,omitempty"`
	Outcome   *Outcome   `json:"outcome,omitempty"`
	At        time.Time  `json:"at"`
}

// Bus fans orchestration events out to any number of watchers. Publish
// never blocks: a watcher that falls behind its buffer loses events rather
// than stalling the orchestration.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewBus() *Bus {
	return &Bus{subs: map[int]chan Event{}}
}

// Subscribe registers a watcher. The returned cancel func must be called
// when done; it closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, 64)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
