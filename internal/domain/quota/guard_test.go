package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bigsoczeq/ai-chatbot2/internal/apperrors"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
)

type mockMessageRepository struct {
	chat.MessageRepository
	countUserMessagesSinceFunc func(ctx context.Context, userID string, since time.Time) (int64, error)
}

func (m *mockMessageRepository) CountUserMessagesSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	return m.countUserMessagesSinceFunc(ctx, userID, since)
}

func TestCheckAndAdmit(t *testing.T) {
	tests := []struct {
		name     string
		class    chat.UserClass
		count    int64
		countErr error
		wantType apperrors.Type
		wantOK   bool
	}{
		{name: "guest under ceiling", class: chat.ClassGuest, count: 19, wantOK: true},
		{name: "guest at ceiling", class: chat.ClassGuest, count: 20, wantType: apperrors.TypeRateLimited},
		{name: "guest over ceiling", class: chat.ClassGuest, count: 35, wantType: apperrors.TypeRateLimited},
		{name: "regular under guest ceiling limit", class: chat.ClassRegular, count: 50, wantOK: true},
		{name: "regular at ceiling", class: chat.ClassRegular, count: 100, wantType: apperrors.TypeRateLimited},
		{name: "unknown class", class: chat.UserClass("vip"), count: 0, wantType: apperrors.TypeForbidden},
		{name: "repository failure", class: chat.ClassGuest, countErr: errors.New("db down"), wantType: apperrors.TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockMessageRepository{
				countUserMessagesSinceFunc: func(ctx context.Context, userID string, since time.Time) (int64, error) {
					if userID != "user-1" {
						t.Errorf("userID = %q, want user-1", userID)
					}
					if window := time.Since(since); window < 23*time.Hour || window > 25*time.Hour {
						t.Errorf("since = %v, want roughly 24h ago", since)
					}
					return tt.count, tt.countErr
				},
			}
			guard := NewGuard(repo, 20, 100, zerolog.Nop())

			err := guard.CheckAndAdmit(context.Background(), "user-1", tt.class)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("CheckAndAdmit() error = %v, want admit", err)
				}
				return
			}
			if err == nil {
				t.Fatal("CheckAndAdmit() admitted, want rejection")
			}
			if got := apperrors.TypeOf(err); got != tt.wantType {
				t.Errorf("error type = %q, want %q", got, tt.wantType)
			}
		})
	}
}
