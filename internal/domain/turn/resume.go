package turn

import (
	"context"
	"time"

	"github.com/bigsoczeq/ai-chatbot2/internal/apperrors"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/stream"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/metrics"
)

// ResumeMode tells the caller how to render a resume request.
type ResumeMode string

const (
	// ResumeModeDisabled means no stream store is configured; the client
	// should fall back to non-resumable behavior.
	ResumeModeDisabled ResumeMode = "disabled"
	// ResumeModeLive attaches to an in-flight generation.
	ResumeModeLive ResumeMode = "live"
	// ResumeModeSnapshot replays the just-finished assistant message that the
	// client likely missed.
	ResumeModeSnapshot ResumeMode = "snapshot"
	// ResumeModeEmpty means the turn finished long enough ago that the client
	// already has the result; the stream closes immediately.
	ResumeModeEmpty ResumeMode = "empty"
)

// ResumeResult is the outcome of a resume request. Subscription is set for
// ResumeModeLive; Message is set for ResumeModeSnapshot.
type ResumeResult struct {
	Mode         ResumeMode
	Subscription *stream.Subscription
	Message      *chat.Message
}

// Resume reattaches a client to the most recent stream of a conversation.
// An in-flight generation yields a live subscription; a generation that
// completed within the resume window yields the persisted assistant message
// as a snapshot; anything older yields an empty stream.
func (o *Orchestrator) Resume(ctx context.Context, conversationID, userID string) (*ResumeResult, error) {
	if !o.streams.Enabled() {
		metrics.RecordStreamAttach(string(ResumeModeDisabled))
		return &ResumeResult{Mode: ResumeModeDisabled}, nil
	}

	conv, err := o.conversations.FindByPublicID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Visibility == chat.VisibilityPrivate && conv.UserID != userID {
		return nil, apperrors.New(apperrors.LayerDomain, apperrors.TypeForbidden,
			"you do not have access to this conversation")
	}

	handle, err := o.handles.LatestByConversationID(ctx, conv.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.LayerDomain, apperrors.TypeInternal,
			"failed to look up the stream handle", err)
	}
	if handle == nil {
		return nil, apperrors.New(apperrors.LayerDomain, apperrors.TypeNotFound,
			"no resumable stream found for this conversation")
	}

	if handle.State == chat.StreamStateActive {
		sub, err := o.streams.Attach(ctx, handle.PublicID)
		if err == nil {
			metrics.RecordStreamAttach(string(ResumeModeLive))
			return &ResumeResult{Mode: ResumeModeLive, Subscription: sub}, nil
		}
		// The producer may have finished (or its process died) between the
		// handle read and the attach; fall through to the snapshot path.
		o.log.Debug().Err(err).Str("stream_id", handle.PublicID).
			Msg("active handle no longer attachable")
	}

	return o.resumeCompleted(ctx, conv)
}

func (o *Orchestrator) resumeCompleted(ctx context.Context, conv *chat.Conversation) (*ResumeResult, error) {
	latest, err := o.messages.Latest(ctx, conv.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.LayerDomain, apperrors.TypeInternal,
			"failed to load the latest message", err)
	}

	if latest != nil &&
		latest.Role == chat.RoleAssistant &&
		time.Since(latest.CreatedAt) <= o.opts.ResumeWindow {
		metrics.RecordStreamAttach(string(ResumeModeSnapshot))
		return &ResumeResult{Mode: ResumeModeSnapshot, Message: latest}, nil
	}

	metrics.RecordStreamAttach(string(ResumeModeEmpty))
	return &ResumeResult{Mode: ResumeModeEmpty}, nil
}
