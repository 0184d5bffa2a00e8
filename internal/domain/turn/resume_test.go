package turn

import (
	"context"
	"testing"
	"time"

	"github.com/bigsoczeq/ai-chatbot2/internal/apperrors"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/stream"
)

type disabledManager struct{}

func (disabledManager) Register(context.Context, string, string) error      { return nil }
func (disabledManager) Publish(context.Context, string, stream.Event) error { return nil }
func (disabledManager) Complete(context.Context, string) error              { return nil }
func (disabledManager) Attach(context.Context, string) (*stream.Subscription, error) {
	return nil, stream.ErrResumeDisabled
}
func (disabledManager) Enabled() bool { return false }

func seedConversation(t *testing.T, f *fixture) *chat.Conversation {
	t.Helper()
	conv := &chat.Conversation{
		PublicID: "conv-1", UserID: "user-1",
		Title: "Seeded", Visibility: chat.VisibilityPrivate,
	}
	if err := f.conversations.Create(context.Background(), conv); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	return conv
}

func seedHandle(t *testing.T, f *fixture, conv *chat.Conversation, state chat.StreamHandleState) *chat.StreamHandle {
	t.Helper()
	handle := &chat.StreamHandle{
		PublicID: "stream-1", ConversationID: conv.ID, State: state,
	}
	if err := f.handles.Create(context.Background(), handle); err != nil {
		t.Fatalf("seed handle: %v", err)
	}
	return handle
}

func seedAssistantMessage(t *testing.T, f *fixture, conv *chat.Conversation, age time.Duration) {
	t.Helper()
	err := f.messages.Append(context.Background(), []chat.Message{{
		PublicID:       "msg-assistant",
		ConversationID: conv.ID,
		Role:           chat.RoleAssistant,
		Parts:          []chat.Part{{Type: chat.PartTypeText, Text: "earlier answer"}},
		CreatedAt:      time.Now().Add(-age),
	}})
	if err != nil {
		t.Fatalf("seed assistant message: %v", err)
	}
}

func TestResumeDisabled(t *testing.T) {
	f := newFixture(t)
	f.orchestrator.streams = disabledManager{}

	res, err := f.orchestrator.Resume(context.Background(), "conv-1", "user-1")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if res.Mode != ResumeModeDisabled {
		t.Errorf("mode = %q, want disabled", res.Mode)
	}
}

func TestResumeUnknownConversation(t *testing.T) {
	f := newFixture(t)
	_, err := f.orchestrator.Resume(context.Background(), "missing", "user-1")
	if !apperrors.IsType(err, apperrors.TypeNotFound) {
		t.Fatalf("Resume() error = %v, want not found", err)
	}
}

func TestResumePrivateConversationForbidden(t *testing.T) {
	f := newFixture(t)
	seedConversation(t, f)

	_, err := f.orchestrator.Resume(context.Background(), "conv-1", "intruder")
	if !apperrors.IsType(err, apperrors.TypeForbidden) {
		t.Fatalf("Resume() error = %v, want forbidden", err)
	}
}

func TestResumeNoHandle(t *testing.T) {
	f := newFixture(t)
	seedConversation(t, f)

	_, err := f.orchestrator.Resume(context.Background(), "conv-1", "user-1")
	if !apperrors.IsType(err, apperrors.TypeNotFound) {
		t.Fatalf("Resume() error = %v, want not found", err)
	}
}

func TestResumeLiveStream(t *testing.T) {
	f := newFixture(t)
	conv := seedConversation(t, f)
	handle := seedHandle(t, f, conv, chat.StreamStateActive)
	ctx := context.Background()
	if err := f.hub.Register(ctx, handle.PublicID, conv.PublicID); err != nil {
		t.Fatalf("register stream: %v", err)
	}

	res, err := f.orchestrator.Resume(ctx, "conv-1", "user-1")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if res.Mode != ResumeModeLive {
		t.Fatalf("mode = %q, want live", res.Mode)
	}

	// Events published after attach reach the resumed subscriber.
	f.hub.Publish(ctx, handle.PublicID, stream.NewEvent(stream.EventTextDelta, stream.TextDeltaPayload{Delta: "hi"}))
	f.hub.Publish(ctx, handle.PublicID, stream.NewEvent(stream.EventDone, stream.DonePayload{}))
	f.hub.Complete(ctx, handle.PublicID)

	events := collectEvents(t, res.Subscription)
	if len(events) != 2 || events[0].Type != stream.EventTextDelta || events[1].Type != stream.EventDone {
		t.Errorf("events = %v", eventTypes(events))
	}
}

func TestResumeActiveHandleWithoutStreamFallsBack(t *testing.T) {
	// The process restarted: the handle row says active but the hub has no
	// stream. Resume degrades to the snapshot logic instead of failing.
	f := newFixture(t)
	conv := seedConversation(t, f)
	seedHandle(t, f, conv, chat.StreamStateActive)
	seedAssistantMessage(t, f, conv, 2*time.Second)

	res, err := f.orchestrator.Resume(context.Background(), "conv-1", "user-1")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if res.Mode != ResumeModeSnapshot {
		t.Errorf("mode = %q, want snapshot", res.Mode)
	}
}

func TestResumeCompletedWithinWindow(t *testing.T) {
	f := newFixture(t)
	conv := seedConversation(t, f)
	seedHandle(t, f, conv, chat.StreamStateCompleted)
	seedAssistantMessage(t, f, conv, 5*time.Second)

	res, err := f.orchestrator.Resume(context.Background(), "conv-1", "user-1")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if res.Mode != ResumeModeSnapshot {
		t.Fatalf("mode = %q, want snapshot", res.Mode)
	}
	if res.Message == nil || res.Message.PublicID != "msg-assistant" {
		t.Errorf("message = %+v, want seeded assistant message", res.Message)
	}
}

func TestResumeCompletedOutsideWindow(t *testing.T) {
	f := newFixture(t)
	conv := seedConversation(t, f)
	seedHandle(t, f, conv, chat.StreamStateCompleted)
	seedAssistantMessage(t, f, conv, time.Minute)

	res, err := f.orchestrator.Resume(context.Background(), "conv-1", "user-1")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if res.Mode != ResumeModeEmpty {
		t.Errorf("mode = %q, want empty", res.Mode)
	}
}

func TestResumeCompletedLastMessageFromUser(t *testing.T) {
	f := newFixture(t)
	conv := seedConversation(t, f)
	seedHandle(t, f, conv, chat.StreamStateCompleted)
	err := f.messages.Append(context.Background(), []chat.Message{{
		PublicID: "msg-user", ConversationID: conv.ID, Role: chat.RoleUser,
		Parts: []chat.Part{{Type: chat.PartTypeText, Text: "still waiting"}},
	}})
	if err != nil {
		t.Fatalf("seed user message: %v", err)
	}

	res, err := f.orchestrator.Resume(context.Background(), "conv-1", "user-1")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if res.Mode != ResumeModeEmpty {
		t.Errorf("mode = %q, want empty when last message is not from the assistant", res.Mode)
	}
}

func TestResumePublicConversationReadableByAnyone(t *testing.T) {
	f := newFixture(t)
	conv := &chat.Conversation{
		PublicID: "conv-pub", UserID: "user-1",
		Title: "Public", Visibility: chat.VisibilityPublic,
	}
	if err := f.conversations.Create(context.Background(), conv); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	seedHandle(t, f, conv, chat.StreamStateCompleted)
	seedAssistantMessage(t, f, conv, 2*time.Second)

	res, err := f.orchestrator.Resume(context.Background(), "conv-pub", "stranger")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if res.Mode != ResumeModeSnapshot {
		t.Errorf("mode = %q, want snapshot", res.Mode)
	}
}
