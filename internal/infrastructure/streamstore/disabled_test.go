package streamstore

import (
	"context"
	"testing"
	"time"

	"github.com/bigsoczeq/ai-chatbot2/internal/domain/stream"
)

func TestDisabledStillStreamsToLocalAttacher(t *testing.T) {
	m := NewDisabled()
	if m.Enabled() {
		t.Fatal("Enabled() = true, want false")
	}

	ctx := context.Background()
	if err := m.Register(ctx, "stream-1", "conv-1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	sub, err := m.Attach(ctx, "stream-1")
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	if err := m.Publish(ctx, "stream-1", stream.NewEvent(stream.EventTextDelta, stream.TextDeltaPayload{Delta: "hi"})); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := m.Publish(ctx, "stream-1", stream.NewEvent(stream.EventDone, stream.DonePayload{})); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := m.Complete(ctx, "stream-1"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	var got []stream.EventType
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				if len(got) != 2 || got[0] != stream.EventTextDelta || got[1] != stream.EventDone {
					t.Errorf("events = %v", got)
				}
				return
			}
			got = append(got, ev.Type)
		case <-deadline:
			t.Fatalf("timed out; events = %v", got)
		}
	}
}

func TestDisabledAttachUnknownStream(t *testing.T) {
	m := NewDisabled()
	if _, err := m.Attach(context.Background(), "missing"); err != stream.ErrNotFound {
		t.Fatalf("Attach() error = %v, want ErrNotFound", err)
	}
}
