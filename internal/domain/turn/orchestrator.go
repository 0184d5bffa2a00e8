package turn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bigsoczeq/ai-chatbot2/internal/apperrors"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/llm"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/stream"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/tool"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/metrics"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/observability"
)

// Model selectors accepted from clients. The reasoning selector maps to the
// reasoning-tuned model and runs without tools.
const (
	SelectorChat      = "chat-model"
	SelectorReasoning = "chat-model-reasoning"
)

// QuotaGuard admits or rejects a user message before anything is persisted.
type QuotaGuard interface {
	CheckAndAdmit(ctx context.Context, userID string, class chat.UserClass) error
}

// TitleGenerator names a new conversation from its first message.
type TitleGenerator interface {
	Generate(ctx context.Context, firstMessage string) string
}

// ToolGateway exposes tool declarations and validated execution.
type ToolGateway interface {
	Definitions() []llm.ToolDefinition
	Invoke(ctx context.Context, callID, name string, args json.RawMessage) *tool.Result
}

// Options bundles the generation tunables.
type Options struct {
	ChatModel         string
	ReasoningModel    string
	SystemPrompt      string
	MaxToolRounds     int
	ToolTimeout       time.Duration
	GenerationTimeout time.Duration
	ResumeWindow      time.Duration
}

// Orchestrator runs the full turn lifecycle: admission, persistence of the
// user message, the streamed model call with bounded tool rounds, and the
// exactly-once persistence of the assistant response. Generation is detached
// from the submitting request so a dropped connection never aborts a turn.
type Orchestrator struct {
	conversations chat.ConversationRepository
	messages      chat.MessageRepository
	handles       chat.StreamHandleRepository
	provider      llm.Provider
	gateway       ToolGateway
	streams       stream.Manager
	quota         QuotaGuard
	titles        TitleGenerator
	opts          Options
	log           zerolog.Logger
}

// NewOrchestrator wires the turn orchestrator.
func NewOrchestrator(
	conversations chat.ConversationRepository,
	messages chat.MessageRepository,
	handles chat.StreamHandleRepository,
	provider llm.Provider,
	gateway ToolGateway,
	streams stream.Manager,
	quota QuotaGuard,
	titles TitleGenerator,
	opts Options,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		conversations: conversations,
		messages:      messages,
		handles:       handles,
		provider:      provider,
		gateway:       gateway,
		streams:       streams,
		quota:         quota,
		titles:        titles,
		opts:          opts,
		log:           log.With().Str("component", "turn-orchestrator").Logger(),
	}
}

// SubmitParams carries one user turn.
type SubmitParams struct {
	ConversationID string
	UserID         string
	UserClass      chat.UserClass
	SelectedModel  string
	Visibility     chat.Visibility
	MessageID      string
	Text           string
	Attachments    []chat.Attachment
}

// StartedTurn is the caller's view of an admitted turn: the conversation,
// the durable stream id, and a live subscription to the generation.
type StartedTurn struct {
	Conversation *chat.Conversation
	StreamID     string
	Subscription *stream.Subscription
}

// Submit admits a turn and starts generation. On return the user message and
// stream handle are durable and the caller holds a live subscription; the
// model call continues on a detached context even if the caller goes away.
func (o *Orchestrator) Submit(ctx context.Context, params SubmitParams) (*StartedTurn, error) {
	if strings.TrimSpace(params.Text) == "" {
		return nil, apperrors.New(apperrors.LayerDomain, apperrors.TypeBadRequest,
			"message text must not be empty")
	}
	if params.Visibility == "" {
		params.Visibility = chat.VisibilityPrivate
	}
	if !params.Visibility.Valid() {
		return nil, apperrors.New(apperrors.LayerDomain, apperrors.TypeBadRequest,
			"visibility must be private or public")
	}

	if err := o.quota.CheckAndAdmit(ctx, params.UserID, params.UserClass); err != nil {
		return nil, err
	}

	conv, err := o.resolveConversation(ctx, params)
	if err != nil {
		return nil, err
	}

	history, err := o.messages.ListByConversationID(ctx, conv.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.LayerDomain, apperrors.TypeInternal,
			"failed to load conversation history", err)
	}

	userMsg := chat.Message{
		PublicID:       params.MessageID,
		ConversationID: conv.ID,
		Role:           chat.RoleUser,
		Parts:          []chat.Part{{Type: chat.PartTypeText, Text: params.Text}},
		Attachments:    params.Attachments,
	}
	if userMsg.PublicID == "" {
		userMsg.PublicID = newPublicID("msg")
	}
	if err := o.messages.Append(ctx, []chat.Message{userMsg}); err != nil {
		return nil, apperrors.Wrap(apperrors.LayerDomain, apperrors.TypeInternal,
			"failed to save the user message", err)
	}

	handle := &chat.StreamHandle{
		PublicID:       newPublicID("stream"),
		ConversationID: conv.ID,
		State:          chat.StreamStateActive,
	}
	if err := o.handles.Create(ctx, handle); err != nil {
		return nil, apperrors.Wrap(apperrors.LayerDomain, apperrors.TypeInternal,
			"failed to create the stream handle", err)
	}
	if err := o.streams.Register(ctx, handle.PublicID, conv.PublicID); err != nil {
		return nil, apperrors.Wrap(apperrors.LayerDomain, apperrors.TypeInternal,
			"failed to register the stream", err)
	}

	sub, err := o.streams.Attach(ctx, handle.PublicID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.LayerDomain, apperrors.TypeInternal,
			"failed to attach to the stream", err)
	}

	model, withTools := o.selectModel(params.SelectedModel)
	modelMessages := o.buildModelMessages(history, params.Text)

	// The turn outlives the submitting request.
	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.GenerationTimeout)
	metrics.ActiveStreams.Inc()
	go func() {
		defer cancel()
		defer metrics.ActiveStreams.Dec()
		o.generate(genCtx, conv, handle, model, withTools, modelMessages)
	}()

	return &StartedTurn{
		Conversation: conv,
		StreamID:     handle.PublicID,
		Subscription: sub,
	}, nil
}

func (o *Orchestrator) resolveConversation(ctx context.Context, params SubmitParams) (*chat.Conversation, error) {
	conv, err := o.conversations.FindByPublicID(ctx, params.ConversationID)
	if err == nil {
		if conv.UserID != params.UserID {
			return nil, apperrors.New(apperrors.LayerDomain, apperrors.TypeForbidden,
				"you do not have access to this conversation")
		}
		return conv, nil
	}
	if !apperrors.IsType(err, apperrors.TypeNotFound) {
		return nil, err
	}

	conv = &chat.Conversation{
		PublicID:   params.ConversationID,
		UserID:     params.UserID,
		Title:      o.titles.Generate(ctx, params.Text),
		Visibility: params.Visibility,
	}
	if conv.PublicID == "" {
		conv.PublicID = newPublicID("conv")
	}
	if err := o.conversations.Create(ctx, conv); err != nil {
		return nil, apperrors.Wrap(apperrors.LayerDomain, apperrors.TypeInternal,
			"failed to create the conversation", err)
	}
	return conv, nil
}

func newPublicID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

func (o *Orchestrator) selectModel(selector string) (model string, withTools bool) {
	if selector == SelectorReasoning {
		return o.opts.ReasoningModel, false
	}
	return o.opts.ChatModel, true
}

func (o *Orchestrator) buildModelMessages(history []chat.Message, text string) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(history)+2)
	out = append(out, llm.ChatMessage{Role: "system", Content: o.opts.SystemPrompt})
	for _, m := range history {
		switch m.Role {
		case chat.RoleUser:
			if content := m.Text(); content != "" {
				out = append(out, llm.ChatMessage{Role: "user", Content: content})
			}
		case chat.RoleAssistant:
			out = append(out, rebuildAssistantContext(m)...)
		}
	}
	return append(out, llm.ChatMessage{Role: "user", Content: text})
}

// rebuildAssistantContext replays a persisted assistant message into the
// model context in the shape the provider originally saw: one assistant
// message carrying the text and tool calls, followed by a tool message per
// recorded result.
func rebuildAssistantContext(m chat.Message) []llm.ChatMessage {
	assistant := llm.ChatMessage{Role: "assistant", Content: m.Text()}
	var results []llm.ChatMessage
	for _, p := range m.Parts {
		switch {
		case p.Type == chat.PartTypeToolInvocation && p.ToolInvocation != nil:
			assistant.ToolCalls = append(assistant.ToolCalls, llm.ToolCall{
				ID:   p.ToolInvocation.CallID,
				Type: "function",
				Function: llm.ToolFunction{
					Name:      p.ToolInvocation.ToolName,
					Arguments: p.ToolInvocation.Arguments,
				},
			})
		case p.Type == chat.PartTypeToolResult && p.ToolResult != nil:
			callID := p.ToolResult.CallID
			results = append(results, llm.ChatMessage{
				Role:       "tool",
				Content:    toolResultContent(p.ToolResult),
				ToolCallID: &callID,
			})
		}
	}

	if assistant.Content == "" && len(assistant.ToolCalls) == 0 {
		return results
	}
	return append([]llm.ChatMessage{assistant}, results...)
}

func toolResultContent(r *chat.ToolResult) string {
	if r.Error != nil {
		payload, _ := json.Marshal(map[string]string{"error": r.Error.Message})
		return string(payload)
	}
	if len(r.Output) > 0 {
		return string(r.Output)
	}
	return "[tool execution completed]"
}

// generate drives the bounded tool-round loop and finishes the stream. All
// outcomes end with a terminal event and a completed handle; the assistant
// message is persisted at most once, and only when generation produced
// content.
func (o *Orchestrator) generate(
	ctx context.Context,
	conv *chat.Conversation,
	handle *chat.StreamHandle,
	model string,
	withTools bool,
	messages []llm.ChatMessage,
) {
	started := time.Now()
	status := "success"
	defer func() {
		metrics.RecordTurn(model, status, time.Since(started).Seconds())
	}()

	ctx, span := observability.StartTurnSpan(ctx, conv.PublicID, handle.PublicID, model)
	defer span.End()

	log := o.log.With().
		Str("conversation_id", conv.PublicID).
		Str("stream_id", handle.PublicID).
		Str("model", model).
		Logger()

	var tools []llm.ToolDefinition
	if withTools {
		tools = o.gateway.Definitions()
	}

	var parts []chat.Part
	for round := 0; round < o.opts.MaxToolRounds; round++ {
		choice, err := o.streamCompletion(ctx, handle.PublicID, llm.ChatCompletionRequest{
			Model:    model,
			Messages: messages,
			Tools:    tools,
			Stream:   true,
		})
		if err != nil {
			status = "upstream_error"
			observability.RecordError(span, err)
			log.Error().Err(err).Int("round", round).Msg("model call failed")
			o.failTurn(ctx, handle, string(apperrors.TypeUpstream),
				"the model provider is currently unavailable; please try again later")
			return
		}

		messages = append(messages, choice.Message)
		if choice.Message.Content != "" {
			parts = append(parts, chat.Part{Type: chat.PartTypeText, Text: choice.Message.Content})
		}

		if len(choice.Message.ToolCalls) == 0 {
			break
		}

		for _, call := range choice.Message.ToolCalls {
			result := o.runToolCall(ctx, handle.PublicID, call)
			parts = append(parts, toolParts(call, result)...)
			callID := call.ID
			messages = append(messages, llm.ChatMessage{
				Role:       "tool",
				Content:    result.ModelContent(),
				ToolCallID: &callID,
			})
		}
		// Exhausting the round budget ends the turn with whatever content
		// accumulated; the next user message can pick the thread back up.
	}

	o.finishTurn(ctx, conv, handle, parts, &status, log)
}

func (o *Orchestrator) finishTurn(
	ctx context.Context,
	conv *chat.Conversation,
	handle *chat.StreamHandle,
	parts []chat.Part,
	status *string,
	log zerolog.Logger,
) {
	var messageID string
	if len(parts) > 0 {
		assistant := chat.Message{
			PublicID:       newPublicID("msg"),
			ConversationID: conv.ID,
			Role:           chat.RoleAssistant,
			Parts:          parts,
		}
		if err := o.messages.Append(ctx, []chat.Message{assistant}); err != nil {
			*status = "persist_error"
			log.Error().Err(err).Msg("failed to persist assistant message")
			o.failTurn(ctx, handle, string(apperrors.TypeInternal),
				"the response could not be saved; please try again")
			return
		}
		messageID = assistant.PublicID
	}

	o.publish(ctx, handle.PublicID, stream.NewEvent(stream.EventDone, stream.DonePayload{MessageID: messageID}))
	o.closeStream(ctx, handle, log)
}

// failTurn terminates the stream abnormally. The handle still transitions to
// completed so a later resume takes the snapshot path instead of hanging.
func (o *Orchestrator) failTurn(ctx context.Context, handle *chat.StreamHandle, code, message string) {
	o.publish(ctx, handle.PublicID, stream.NewEvent(stream.EventError, stream.ErrorPayload{
		Code:    code,
		Message: message,
	}))
	o.closeStream(ctx, handle, o.log)
}

func (o *Orchestrator) closeStream(ctx context.Context, handle *chat.StreamHandle, log zerolog.Logger) {
	if err := o.streams.Complete(ctx, handle.PublicID); err != nil {
		log.Warn().Err(err).Msg("failed to complete stream")
	}
	if err := o.handles.UpdateState(ctx, handle.PublicID, chat.StreamStateCompleted); err != nil {
		log.Warn().Err(err).Msg("failed to mark stream handle completed")
	}
}

func (o *Orchestrator) publish(ctx context.Context, streamID string, ev stream.Event) {
	if err := o.streams.Publish(ctx, streamID, ev); err != nil {
		o.log.Warn().Err(err).Str("stream_id", streamID).
			Str("event", string(ev.Type)).Msg("failed to publish stream event")
	}
}

func (o *Orchestrator) streamCompletion(ctx context.Context, streamID string, req llm.ChatCompletionRequest) (*llm.ChatCompletionChoice, error) {
	s, err := o.provider.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	acc := newStreamAccumulator()
	for {
		delta, err := s.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		acc.Apply(delta)
		for _, choice := range delta.Choices {
			if choice.Delta.Content != "" {
				o.publish(ctx, streamID, stream.NewEvent(stream.EventTextDelta,
					stream.TextDeltaPayload{Delta: choice.Delta.Content}))
			}
		}
	}

	choice := acc.Result()
	if choice == nil {
		return nil, errors.New("stream produced no choices")
	}
	return choice, nil
}

func (o *Orchestrator) runToolCall(ctx context.Context, streamID string, call llm.ToolCall) *tool.Result {
	o.publish(ctx, streamID, stream.NewEvent(stream.EventToolCall, stream.ToolCallPayload{
		CallID:    call.ID,
		ToolName:  call.Function.Name,
		Arguments: call.Function.Arguments,
	}))

	callCtx, span := observability.StartToolSpan(ctx, call.ID, call.Function.Name)
	var cancel context.CancelFunc
	if o.opts.ToolTimeout > 0 {
		callCtx, cancel = context.WithTimeout(callCtx, o.opts.ToolTimeout)
	}
	result := o.gateway.Invoke(callCtx, call.ID, call.Function.Name, call.Function.Arguments)
	if cancel != nil {
		cancel()
	}
	if result.Error != nil {
		observability.RecordError(span, result.Error)
	}
	span.End()

	payload := stream.ToolResultPayload{
		CallID:   result.CallID,
		ToolName: result.ToolName,
		Output:   result.Output,
	}
	if result.Error != nil {
		payload.Error = &stream.ToolErrorInfo{
			Code:    string(result.Error.Code),
			Message: result.Error.Message,
		}
	}
	o.publish(ctx, streamID, stream.NewEvent(stream.EventToolResult, payload))
	return result
}

func toolParts(call llm.ToolCall, result *tool.Result) []chat.Part {
	invocation := chat.Part{
		Type: chat.PartTypeToolInvocation,
		ToolInvocation: &chat.ToolInvocation{
			CallID:    call.ID,
			ToolName:  call.Function.Name,
			Arguments: call.Function.Arguments,
		},
	}
	resultPart := chat.Part{
		Type: chat.PartTypeToolResult,
		ToolResult: &chat.ToolResult{
			CallID:   result.CallID,
			ToolName: result.ToolName,
			Output:   result.Output,
		},
	}
	if result.Error != nil {
		resultPart.ToolResult.Error = &chat.ToolResultError{
			Code:    string(result.Error.Code),
			Message: result.Error.Message,
		}
	}
	return []chat.Part{invocation, resultPart}
}
