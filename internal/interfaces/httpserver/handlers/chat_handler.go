package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bigsoczeq/ai-chatbot2/internal/apperrors"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/stream"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/turn"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/auth"
	"github.com/bigsoczeq/ai-chatbot2/internal/interfaces/httpserver/dto"
)

// TurnService is the turn lifecycle surface the handler depends on.
type TurnService interface {
	Submit(ctx context.Context, params turn.SubmitParams) (*turn.StartedTurn, error)
	Resume(ctx context.Context, conversationID, userID string) (*turn.ResumeResult, error)
}

// ConversationService covers conversation reads and deletes.
type ConversationService interface {
	Get(ctx context.Context, publicID, userID string) (*chat.ConversationWithMessages, error)
	Delete(ctx context.Context, publicID, userID string) (*chat.Conversation, error)
}

// ChatHandler exposes the chat HTTP entrypoints.
type ChatHandler struct {
	turns         TurnService
	conversations ConversationService
	log           zerolog.Logger
}

// NewChatHandler constructs the handler.
func NewChatHandler(turns TurnService, conversations ConversationService, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		turns:         turns,
		conversations: conversations,
		log:           log.With().Str("handler", "chat").Logger(),
	}
}

// Submit handles POST /v1/chat
// @Summary Submit a chat turn
// @Description Admits a user message and streams the assistant's response as server-sent events.
// @Tags Chat
// @Accept json
// @Produce text/event-stream
// @Param request body dto.SubmitChatRequest true "Turn request"
// @Success 200 {string} string "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /v1/chat [post]
func (h *ChatHandler) Submit(c *gin.Context) {
	var req dto.SubmitChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  string(apperrors.TypeBadRequest),
		})
		return
	}

	identity := auth.IdentityFromContext(c)
	attachments := make([]chat.Attachment, 0, len(req.Message.Attachments))
	for _, a := range req.Message.Attachments {
		attachments = append(attachments, chat.Attachment{
			URL:         a.URL,
			Name:        a.Name,
			ContentType: a.ContentType,
		})
	}

	started, err := h.turns.Submit(c.Request.Context(), turn.SubmitParams{
		ConversationID: req.ID,
		UserID:         identity.UserID,
		UserClass:      identity.Class,
		SelectedModel:  req.SelectedChatModel,
		Visibility:     chat.Visibility(req.SelectedVisibilityType),
		MessageID:      req.Message.ID,
		Text:           req.Message.Content,
		Attachments:    attachments,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("X-Conversation-Id", started.Conversation.PublicID)
	c.Header("X-Stream-Id", started.StreamID)
	h.streamEvents(c, started.Subscription)
}

// Resume handles GET /v1/chat/stream
// @Summary Resume a chat stream
// @Description Reattaches to an in-flight generation or replays a recently finished one.
// @Tags Chat
// @Produce text/event-stream
// @Param chat_id query string true "Conversation id"
// @Success 200 {string} string "SSE stream"
// @Success 204 {string} string "Resumable streaming disabled"
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chat/stream [get]
func (h *ChatHandler) Resume(c *gin.Context) {
	chatID := c.Query("chat_id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "chat_id is required",
			Code:  string(apperrors.TypeBadRequest),
		})
		return
	}

	identity := auth.IdentityFromContext(c)
	res, err := h.turns.Resume(c.Request.Context(), chatID, identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	switch res.Mode {
	case turn.ResumeModeDisabled:
		c.Status(http.StatusNoContent)
	case turn.ResumeModeLive:
		h.streamEvents(c, res.Subscription)
	case turn.ResumeModeSnapshot:
		h.streamSnapshot(c, res.Message)
	default:
		h.streamEmpty(c)
	}
}

// Get handles GET /v1/chat
// @Summary Fetch a conversation
// @Tags Chat
// @Produce json
// @Param chat_id query string true "Conversation id"
// @Success 200 {object} dto.ConversationWithMessagesResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chat [get]
func (h *ChatHandler) Get(c *gin.Context) {
	chatID := c.Query("chat_id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "chat_id is required",
			Code:  string(apperrors.TypeBadRequest),
		})
		return
	}

	identity := auth.IdentityFromContext(c)
	result, err := h.conversations.Get(c.Request.Context(), chatID, identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ConversationWithMessagesResponse{
		Conversation: dto.NewConversationResponse(result.Conversation),
		Messages:     result.Messages,
	})
}

// Delete handles DELETE /v1/chat
// @Summary Delete a conversation
// @Tags Chat
// @Produce json
// @Param chat_id query string true "Conversation id"
// @Success 200 {object} dto.ConversationResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chat [delete]
func (h *ChatHandler) Delete(c *gin.Context) {
	chatID := c.Query("chat_id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "chat_id is required",
			Code:  string(apperrors.TypeBadRequest),
		})
		return
	}

	identity := auth.IdentityFromContext(c)
	deleted, err := h.conversations.Delete(c.Request.Context(), chatID, identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewConversationResponse(deleted))
}

// streamEvents pumps a subscription to the client as SSE. A dropped client
// detaches the subscription; generation keeps running on its own context.
func (h *ChatHandler) streamEvents(c *gin.Context, sub *stream.Subscription) {
	writer, flusher, ok := h.sseHeaders(c)
	if !ok {
		return
	}
	defer sub.Close()

	for {
		select {
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			writeSSE(writer, flusher, ev)
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *ChatHandler) streamSnapshot(c *gin.Context, msg *chat.Message) {
	writer, flusher, ok := h.sseHeaders(c)
	if !ok {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal snapshot message")
		h.streamEmpty(c)
		return
	}

	writeSSE(writer, flusher, stream.NewEvent(stream.EventAppendMessage,
		stream.AppendMessagePayload{Message: payload}))
	writeSSE(writer, flusher, stream.NewEvent(stream.EventDone,
		stream.DonePayload{MessageID: msg.PublicID}))
}

func (h *ChatHandler) streamEmpty(c *gin.Context) {
	writer, flusher, ok := h.sseHeaders(c)
	if !ok {
		return
	}
	writeSSE(writer, flusher, stream.NewEvent(stream.EventDone, stream.DonePayload{}))
}

func (h *ChatHandler) sseHeaders(c *gin.Context) (http.ResponseWriter, http.Flusher, bool) {
	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		h.log.Error().Msg("response writer does not support flushing")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "streaming unsupported",
			Code:  string(apperrors.TypeInternal),
		})
		return nil, nil, false
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	flusher.Flush()
	return writer, flusher, true
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev stream.Event) {
	data := ev.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	fmt.Fprintf(w, "event: %s\n", ev.Type)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func respondError(c *gin.Context, err error) {
	errType := apperrors.TypeOf(err)
	c.JSON(apperrors.HTTPStatus(errType), dto.ErrorResponse{
		Error: apperrors.MessageOf(err),
		Code:  string(errType),
	})
}
