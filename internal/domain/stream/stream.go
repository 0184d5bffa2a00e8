package stream

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound is returned when no stream is registered under the id.
	ErrNotFound = errors.New("stream not found")
	// ErrResumeDisabled is returned by the disabled manager so callers can
	// fall back to a fresh turn instead of hanging.
	ErrResumeDisabled = errors.New("resumable streaming is disabled")
	// ErrStreamClosed is returned when publishing to a completed stream.
	ErrStreamClosed = errors.New("stream already completed")
)

// EventType identifies a streamed event.
type EventType string

const (
	EventTextDelta     EventType = "text-delta"
	EventToolCall      EventType = "tool-call"
	EventToolResult    EventType = "tool-result"
	EventError         EventType = "error"
	EventDone          EventType = "done"
	EventAppendMessage EventType = "append-message"
)

// Terminal reports whether the event ends a stream.
func (t EventType) Terminal() bool {
	return t == EventDone || t == EventError
}

// Event is one unit of streamed output. Data carries the JSON payload for
// the event type.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals the payload into an Event. Marshal failures collapse to
// an empty payload rather than breaking the stream.
func NewEvent(t EventType, payload any) Event {
	if payload == nil {
		return Event{Type: t}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{Type: t}
	}
	return Event{Type: t, Data: data}
}

// Subscription is one attacher's view of a stream. Events delivers the
// synchronized tail followed by live events; the channel closes after a
// terminal event or Close.
type Subscription struct {
	events <-chan Event
	cancel func()
}

// Events returns the receive channel.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close detaches the subscriber. The underlying stream keeps running.
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewSubscription wraps a channel and detach callback. Used by manager
// implementations.
func NewSubscription(events <-chan Event, cancel func()) *Subscription {
	return &Subscription{events: events, cancel: cancel}
}

// Manager is the broadcast point for in-flight generations. The producer
// publishes each event once; any number of attachers receive every event
// from their attach point forward, in identical relative order.
type Manager interface {
	// Register makes the stream discoverable before the first event is
	// published.
	Register(ctx context.Context, streamID, conversationID string) error
	// Publish fans an event out to all attachers of the stream.
	Publish(ctx context.Context, streamID string, ev Event) error
	// Complete transitions the stream to its terminal state. Later Attach
	// calls still succeed but close immediately.
	Complete(ctx context.Context, streamID string) error
	// Attach subscribes to the stream's remaining events. Returns ErrNotFound
	// for unknown ids and ErrResumeDisabled when no backing store exists.
	Attach(ctx context.Context, streamID string) (*Subscription, error)
	// Enabled reports whether resumable streaming has a backing store.
	Enabled() bool
}

// Payload types carried in Event.Data.

// TextDeltaPayload carries one incremental text chunk.
type TextDeltaPayload struct {
	Delta string `json:"delta"`
}

// ToolCallPayload announces a model-initiated tool invocation.
type ToolCallPayload struct {
	CallID    string          `json:"call_id"`
	ToolName  string          `json:"tool_name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResultPayload carries a tool invocation's structured outcome.
type ToolResultPayload struct {
	CallID   string          `json:"call_id"`
	ToolName string          `json:"tool_name"`
	Output   json.RawMessage `json:"output,omitempty"`
	Error    *ToolErrorInfo  `json:"error,omitempty"`
}

// ToolErrorInfo is the structured error inside a tool result.
type ToolErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorPayload terminates a stream abnormally.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DonePayload terminates a stream cleanly.
type DonePayload struct {
	MessageID string `json:"message_id,omitempty"`
}

// AppendMessagePayload carries the full persisted assistant message for a
// post-completion resume within the recency window.
type AppendMessagePayload struct {
	Message json.RawMessage `json:"message"`
}
