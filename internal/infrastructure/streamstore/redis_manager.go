package streamstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bigsoczeq/ai-chatbot2/internal/domain/stream"
)

// DefaultTTL bounds how long a finished stream's events stay replayable.
const DefaultTTL = 24 * time.Hour

const (
	stateActive    = "active"
	stateCompleted = "completed"
)

// RedisManager is a stream manager that survives process restarts. Local
// attachers ride the in-process hub; every event is also appended to a Redis
// list and fanned out over pub/sub so another process can replay the backlog
// and follow live. The producer is a single goroutine per stream, which
// keeps list order and publish order aligned.
type RedisManager struct {
	rdb *redis.Client
	hub *stream.Hub
	ttl time.Duration
	log zerolog.Logger
}

// NewRedisManager builds a manager on top of an in-process hub.
func NewRedisManager(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisManager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisManager{
		rdb: rdb,
		hub: stream.NewHub(),
		ttl: ttl,
		log: log.With().Str("component", "stream-store").Logger(),
	}
}

// envelope is the pub/sub frame. Seq is the event's 1-based position in the
// backlog list, letting a late attacher deduplicate replay against live.
type envelope struct {
	Seq   int64        `json:"seq"`
	Event stream.Event `json:"event"`
}

func eventsKey(streamID string) string { return fmt.Sprintf("chatstream:%s:events", streamID) }
func stateKey(streamID string) string  { return fmt.Sprintf("chatstream:%s:state", streamID) }
func liveKey(streamID string) string   { return fmt.Sprintf("chatstream:%s:live", streamID) }

// Register implements stream.Manager.
func (m *RedisManager) Register(ctx context.Context, streamID, conversationID string) error {
	if err := m.hub.Register(ctx, streamID, conversationID); err != nil {
		return err
	}
	if err := m.rdb.Set(ctx, stateKey(streamID), stateActive, m.ttl).Err(); err != nil {
		return fmt.Errorf("register stream %s: %w", streamID, err)
	}
	return nil
}

// Publish implements stream.Manager. The event is durable in the list before
// the pub/sub fan-out, so a crash between the two leaves replay intact.
func (m *RedisManager) Publish(ctx context.Context, streamID string, ev stream.Event) error {
	if err := m.hub.Publish(ctx, streamID, ev); err != nil && !errors.Is(err, stream.ErrNotFound) {
		return err
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode stream event: %w", err)
	}

	seq, err := m.rdb.RPush(ctx, eventsKey(streamID), data).Result()
	if err != nil {
		return fmt.Errorf("append stream event: %w", err)
	}
	m.rdb.Expire(ctx, eventsKey(streamID), m.ttl)

	frame, err := json.Marshal(envelope{Seq: seq, Event: ev})
	if err != nil {
		return fmt.Errorf("encode stream frame: %w", err)
	}
	if err := m.rdb.Publish(ctx, liveKey(streamID), frame).Err(); err != nil {
		// Backlog already holds the event; a lost live frame only delays
		// remote attachers until their next replay.
		m.log.Warn().Err(err).Str("stream_id", streamID).Msg("live publish failed")
	}
	return nil
}

// Complete implements stream.Manager.
func (m *RedisManager) Complete(ctx context.Context, streamID string) error {
	if err := m.hub.Complete(ctx, streamID); err != nil && !errors.Is(err, stream.ErrNotFound) {
		return err
	}
	if err := m.rdb.Set(ctx, stateKey(streamID), stateCompleted, m.ttl).Err(); err != nil {
		return fmt.Errorf("complete stream %s: %w", streamID, err)
	}
	return nil
}

// Attach implements stream.Manager. A stream produced by this process is
// served from the hub; otherwise the Redis backlog is replayed and pub/sub
// supplies the live tail.
func (m *RedisManager) Attach(ctx context.Context, streamID string) (*stream.Subscription, error) {
	if m.hub.Has(streamID) {
		return m.hub.Attach(ctx, streamID)
	}
	return m.attachRemote(ctx, streamID)
}

func (m *RedisManager) attachRemote(ctx context.Context, streamID string) (*stream.Subscription, error) {
	state, err := m.rdb.Get(ctx, stateKey(streamID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, stream.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read stream state: %w", err)
	}

	// Subscribe before reading the backlog so no event falls between them.
	pubsub := m.rdb.Subscribe(ctx, liveKey(streamID))
	backlog, err := m.rdb.LRange(ctx, eventsKey(streamID), 0, -1).Result()
	if err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("read stream backlog: %w", err)
	}

	ch := make(chan stream.Event, 64)
	quit := make(chan struct{})
	go m.pumpRemote(streamID, state, backlog, pubsub, ch, quit)

	return newQuitSubscription(ch, quit), nil
}

// newQuitSubscription wraps the event channel with a detach callback that is
// safe to invoke from multiple goroutines.
func newQuitSubscription(ch <-chan stream.Event, quit chan struct{}) *stream.Subscription {
	var once sync.Once
	return stream.NewSubscription(ch, func() {
		once.Do(func() { close(quit) })
	})
}

func (m *RedisManager) pumpRemote(
	streamID, state string,
	backlog []string,
	pubsub *redis.PubSub,
	ch chan<- stream.Event,
	quit <-chan struct{},
) {
	defer pubsub.Close()
	m.pump(streamID, state, backlog, pubsub.Channel(), ch, quit)
}

// pump replays the backlog, then follows live frames, deduplicating by
// sequence number. It owns closing ch; the caller owns the pub/sub handle.
func (m *RedisManager) pump(
	streamID, state string,
	backlog []string,
	msgs <-chan *redis.Message,
	ch chan<- stream.Event,
	quit <-chan struct{},
) {
	defer close(ch)

	var lastSeq int64
	for _, raw := range backlog {
		var ev stream.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			m.log.Warn().Err(err).Str("stream_id", streamID).Msg("corrupt backlog event")
			continue
		}
		lastSeq++
		select {
		case ch <- ev:
		case <-quit:
			return
		}
		if ev.Type.Terminal() {
			return
		}
	}

	// Completed without a terminal event in the backlog means the producer
	// died mid-stream; close out so the client does not wait forever.
	if state == stateCompleted {
		select {
		case ch <- stream.NewEvent(stream.EventDone, stream.DonePayload{}):
		case <-quit:
		}
		return
	}

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var frame envelope
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				m.log.Warn().Err(err).Str("stream_id", streamID).Msg("corrupt live frame")
				continue
			}
			if frame.Seq <= lastSeq {
				continue
			}
			lastSeq = frame.Seq
			select {
			case ch <- frame.Event:
			case <-quit:
				return
			}
			if frame.Event.Type.Terminal() {
				return
			}
		case <-quit:
			return
		}
	}
}

// Enabled implements stream.Manager.
func (m *RedisManager) Enabled() bool {
	return true
}

var _ stream.Manager = (*RedisManager)(nil)
