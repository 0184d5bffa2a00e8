package stream

import (
	"context"
	"sync"
)

const (
	// maxBacklog bounds the events retained per stream. When exceeded the
	// oldest events are dropped and late attachers start from the oldest
	// retained event (a synchronized tail rather than a full replay).
	maxBacklog = 4096

	subscriberBuffer = 32
)

// Hub is the in-process broadcast point. A single producer publishes each
// event once; every attacher observes events in identical relative order,
// delivered from its own pump goroutine so a slow consumer never blocks the
// producer or other attachers.
type Hub struct {
	mu      sync.Mutex
	streams map[string]*hubStream
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{streams: make(map[string]*hubStream)}
}

type hubStream struct {
	mu             sync.Mutex
	cond           *sync.Cond
	conversationID string
	events         []Event
	dropped        int
	completed      bool
	terminal       *Event
}

func newHubStream(conversationID string) *hubStream {
	s := &hubStream{conversationID: conversationID}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Register makes the stream attachable. Registering an existing id resets
// nothing; the first registration wins.
func (h *Hub) Register(_ context.Context, streamID, conversationID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.streams[streamID]; !ok {
		h.streams[streamID] = newHubStream(conversationID)
	}
	return nil
}

// Publish appends the event to the stream backlog and wakes all attachers.
func (h *Hub) Publish(_ context.Context, streamID string, ev Event) error {
	s := h.lookup(streamID)
	if s == nil {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return ErrStreamClosed
	}
	s.events = append(s.events, ev)
	if len(s.events) > maxBacklog {
		trim := len(s.events) - maxBacklog
		s.events = s.events[trim:]
		s.dropped += trim
	}
	if ev.Type.Terminal() {
		terminal := ev
		s.terminal = &terminal
	}
	s.cond.Broadcast()
	return nil
}

// Complete marks the stream finished. Attached pumps drain the remaining
// backlog and close; later Attach calls yield only the terminal event.
func (h *Hub) Complete(_ context.Context, streamID string) error {
	s := h.lookup(streamID)
	if s == nil {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = true
	if s.terminal == nil {
		terminal := Event{Type: EventDone}
		s.terminal = &terminal
	}
	s.cond.Broadcast()
	return nil
}

// Attach subscribes to the stream. A live stream delivers the retained
// backlog followed by live events; a completed stream delivers the terminal
// event and closes immediately.
func (h *Hub) Attach(_ context.Context, streamID string) (*Subscription, error) {
	s := h.lookup(streamID)
	if s == nil {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	if s.completed {
		terminal := s.terminal
		s.mu.Unlock()
		ch := make(chan Event, 1)
		if terminal != nil {
			ch <- *terminal
		}
		close(ch)
		return NewSubscription(ch, func() {}), nil
	}
	cursor := s.dropped
	s.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	quit := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(quit)
			s.cond.Broadcast()
		})
	}

	go s.pump(ch, quit, cursor)
	return NewSubscription(ch, cancel), nil
}

// Enabled always reports true; the hub itself is the backing store for
// in-process attachers.
func (h *Hub) Enabled() bool {
	return true
}

// Has reports whether the stream is registered in this process.
func (h *Hub) Has(streamID string) bool {
	return h.lookup(streamID) != nil
}

// ConversationID returns the conversation owning the stream, if registered.
func (h *Hub) ConversationID(streamID string) (string, bool) {
	s := h.lookup(streamID)
	if s == nil {
		return "", false
	}
	return s.conversationID, true
}

func (h *Hub) lookup(streamID string) *hubStream {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.streams[streamID]
}

// pump delivers events to one subscriber in order from cursor.
func (s *hubStream) pump(ch chan<- Event, quit <-chan struct{}, cursor int) {
	defer close(ch)
	for {
		s.mu.Lock()
		for cursor >= s.dropped+len(s.events) && !s.completed && !closed(quit) {
			s.cond.Wait()
		}
		if closed(quit) {
			s.mu.Unlock()
			return
		}
		if cursor < s.dropped {
			// Backlog trimmed underneath us; resume from the oldest retained.
			cursor = s.dropped
		}
		var pending []Event
		if cursor < s.dropped+len(s.events) {
			pending = append(pending, s.events[cursor-s.dropped:]...)
			cursor = s.dropped + len(s.events)
		}
		done := s.completed && cursor >= s.dropped+len(s.events)
		s.mu.Unlock()

		for _, ev := range pending {
			select {
			case ch <- ev:
			case <-quit:
				return
			}
		}
		if done {
			return
		}
	}
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

var _ Manager = (*Hub)(nil)
