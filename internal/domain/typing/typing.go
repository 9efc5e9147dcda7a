package typing

import (
	"context"
	"errors"
	"time"

	"talentsync/internal/domain/conversation"
	"talentsync/internal/domain/user"
)

var (
	ErrConversationRequired = errors.New("typing: conversation id is required")
	ErrUserRequired         = errors.New("typing: user id is required")
)

const (
	// TTL is how long a typing record survives in the store without refresh.
	TTL = 5 * time.Second
	// IdleWindow is the keystroke-silence period after which the writer
	// deletes its own record.
	IdleWindow = 3 * time.Second
)

// Indicator is an ephemeral "user is typing" record. It carries an explicit
// expiry so readers can drop stale entries by clock comparison even when the
// delete event was missed.
type Indicator struct {
	ConversationID conversation.ID
	UserID         user.ID
	ExpiresAt      time.Time
}

func (i Indicator) Expired(at time.Time) bool {
	if at.IsZero() {
		at = time.Now()
	}
	return !i.ExpiresAt.After(at.UTC())
}

// Store keeps indicators with TTL semantics. Set refreshes the expiry of an
// existing record for the same (conversation, user) pair.
type Store interface {
	Set(ctx context.Context, ind Indicator) error
	Clear(ctx context.Context, convID conversation.ID, userID user.ID) error
	Active(ctx context.Context, convID conversation.ID) ([]Indicator, error)
}
