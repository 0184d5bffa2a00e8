package streamstore

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bigsoczeq/ai-chatbot2/internal/domain/stream"
)

func newTestManager() *RedisManager {
	return &RedisManager{log: zerolog.Nop()}
}

func encodedEvent(t *testing.T, ev stream.Event) string {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return string(data)
}

func liveFrame(t *testing.T, seq int64, ev stream.Event) *redis.Message {
	t.Helper()
	data, err := json.Marshal(envelope{Seq: seq, Event: ev})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return &redis.Message{Payload: string(data)}
}

func drainPump(t *testing.T, ch <-chan stream.Event) []stream.Event {
	t.Helper()
	var out []stream.Event
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("pump did not finish; got %d events", len(out))
		}
	}
}

func TestPumpDeduplicatesReplayAgainstLive(t *testing.T) {
	m := newTestManager()
	first := stream.NewEvent(stream.EventTextDelta, stream.TextDeltaPayload{Delta: "Hel"})
	second := stream.NewEvent(stream.EventTextDelta, stream.TextDeltaPayload{Delta: "lo"})
	done := stream.NewEvent(stream.EventDone, stream.DonePayload{MessageID: "msg-1"})

	backlog := []string{encodedEvent(t, first), encodedEvent(t, second)}
	msgs := make(chan *redis.Message, 4)
	// The producer published frames 1 and 2 while the backlog read was in
	// flight; only frame 3 is new to this attacher.
	msgs <- liveFrame(t, 1, first)
	msgs <- liveFrame(t, 2, second)
	msgs <- liveFrame(t, 3, done)

	ch := make(chan stream.Event, 8)
	go m.pump("stream-1", stateActive, backlog, msgs, ch, make(chan struct{}))

	events := drainPump(t, ch)
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3 (2 replayed + 1 live)", len(events))
	}
	if events[0].Type != stream.EventTextDelta || events[1].Type != stream.EventTextDelta {
		t.Errorf("replayed types = %s, %s", events[0].Type, events[1].Type)
	}
	if events[2].Type != stream.EventDone {
		t.Errorf("final type = %s, want done", events[2].Type)
	}
}

func TestPumpTerminalInBacklogEndsStream(t *testing.T) {
	m := newTestManager()
	backlog := []string{
		encodedEvent(t, stream.NewEvent(stream.EventTextDelta, stream.TextDeltaPayload{Delta: "hi"})),
		encodedEvent(t, stream.NewEvent(stream.EventDone, stream.DonePayload{MessageID: "msg-1"})),
	}

	// No live channel read should be needed; an unbuffered never-written
	// channel hangs the test if the pump reaches it.
	msgs := make(chan *redis.Message)
	ch := make(chan stream.Event, 4)
	go m.pump("stream-1", stateCompleted, backlog, msgs, ch, make(chan struct{}))

	events := drainPump(t, ch)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[1].Type != stream.EventDone {
		t.Errorf("final type = %s, want done", events[1].Type)
	}
}

func TestPumpSynthesizesTerminalForDeadProducer(t *testing.T) {
	m := newTestManager()
	backlog := []string{
		encodedEvent(t, stream.NewEvent(stream.EventTextDelta, stream.TextDeltaPayload{Delta: "partial"})),
	}

	msgs := make(chan *redis.Message)
	ch := make(chan stream.Event, 4)
	go m.pump("stream-1", stateCompleted, backlog, msgs, ch, make(chan struct{}))

	events := drainPump(t, ch)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[1].Type != stream.EventDone {
		t.Errorf("final type = %s, want synthesized done", events[1].Type)
	}
}

func TestPumpSkipsCorruptBacklogEntries(t *testing.T) {
	m := newTestManager()
	backlog := []string{
		"{not json",
		encodedEvent(t, stream.NewEvent(stream.EventDone, stream.DonePayload{})),
	}

	msgs := make(chan *redis.Message)
	ch := make(chan stream.Event, 4)
	go m.pump("stream-1", stateCompleted, backlog, msgs, ch, make(chan struct{}))

	events := drainPump(t, ch)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Type != stream.EventDone {
		t.Errorf("type = %s, want done", events[0].Type)
	}
}

func TestQuitSubscriptionConcurrentClose(t *testing.T) {
	ch := make(chan stream.Event)
	quit := make(chan struct{})
	sub := newQuitSubscription(ch, quit)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.Close()
		}()
	}
	wg.Wait()

	select {
	case <-quit:
	default:
		t.Fatal("quit channel not closed")
	}
}

func TestPumpQuitDetachesWithoutTerminal(t *testing.T) {
	m := newTestManager()
	msgs := make(chan *redis.Message)
	quit := make(chan struct{})
	ch := make(chan stream.Event, 4)
	go m.pump("stream-1", stateActive, nil, msgs, ch, quit)

	close(quit)
	events := drainPump(t, ch)
	if len(events) != 0 {
		t.Fatalf("events = %d, want 0", len(events))
	}
}
