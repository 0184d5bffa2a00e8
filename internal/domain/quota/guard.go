package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bigsoczeq/ai-chatbot2/internal/apperrors"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/metrics"
)

// Window is the rolling period a quota ceiling applies to.
const Window = 24 * time.Hour

// Guard enforces the per-class daily message ceiling. Admission counts the
// user's messages across all conversations over the rolling window, so the
// check is naturally reset without any scheduled job.
type Guard struct {
	messages chat.MessageRepository
	ceilings map[chat.UserClass]int
	log      zerolog.Logger
}

// NewGuard builds a guard with per-class ceilings.
func NewGuard(messages chat.MessageRepository, guestDaily, regularDaily int, log zerolog.Logger) *Guard {
	return &Guard{
		messages: messages,
		ceilings: map[chat.UserClass]int{
			chat.ClassGuest:   guestDaily,
			chat.ClassRegular: regularDaily,
		},
		log: log.With().Str("component", "quota-guard").Logger(),
	}
}

// CheckAndAdmit admits one user message or returns a RateLimited error.
// The check runs before the message is persisted, so a rejected turn leaves
// no trace in the conversation.
func (g *Guard) CheckAndAdmit(ctx context.Context, userID string, class chat.UserClass) error {
	ceiling, ok := g.ceilings[class]
	if !ok {
		return apperrors.New(apperrors.LayerDomain, apperrors.TypeForbidden,
			fmt.Sprintf("unknown user class: %s", class))
	}

	count, err := g.messages.CountUserMessagesSince(ctx, userID, time.Now().Add(-Window))
	if err != nil {
		return apperrors.Wrap(apperrors.LayerDomain, apperrors.TypeInternal,
			"failed to check message quota", err)
	}

	if count >= int64(ceiling) {
		g.log.Info().
			Str("user_id", userID).
			Str("class", string(class)).
			Int64("count", count).
			Int("ceiling", ceiling).
			Msg("turn rejected by quota")
		metrics.RecordQuotaRejection(string(class))
		return apperrors.New(apperrors.LayerDomain, apperrors.TypeRateLimited,
			"you have exceeded your maximum number of messages for the day; please try again later")
	}
	return nil
}
