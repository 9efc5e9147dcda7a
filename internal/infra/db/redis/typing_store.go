// Package redis holds the ephemeral stores backed by Redis. Typing
// indicators live here because their whole contract is a key with a TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domainconv "talentsync/internal/domain/conversation"
	domaintyping "talentsync/internal/domain/typing"
	domainuser "talentsync/internal/domain/user"
)

type TypingStore struct {
	Client *goredis.Client
	Now    func() time.Time
}

var _ domaintyping.Store = (*TypingStore)(nil)

type typingRecord struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func (s *TypingStore) Set(ctx context.Context, ind domaintyping.Indicator) error {
	if ind.ConversationID == "" {
		return domaintyping.ErrConversationRequired
	}
	if ind.UserID == "" {
		return domaintyping.ErrUserRequired
	}
	ttl := ind.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Clear(ctx, ind.ConversationID, ind.UserID)
	}
	payload, err := json.Marshal(typingRecord{
		ConversationID: string(ind.ConversationID),
		UserID:         string(ind.UserID),
		ExpiresAt:      ind.ExpiresAt.UTC(),
	})
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, typingKey(ind.ConversationID, ind.UserID), payload, ttl).Err()
}

func (s *TypingStore) Clear(ctx context.Context, convID domainconv.ID, userID domainuser.ID) error {
	return s.Client.Del(ctx, typingKey(convID, userID)).Err()
}

// Active lists non-expired indicators for one conversation. Redis expires the
// keys itself; the scan only sees live ones.
func (s *TypingStore) Active(ctx context.Context, convID domainconv.ID) ([]domaintyping.Indicator, error) {
	var (
		indicators []domaintyping.Indicator
		cursor     uint64
	)
	pattern := "typing:" + string(convID) + ":*"
	for {
		keys, next, err := s.Client.Scan(ctx, cursor, pattern, 64).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			raw, err := s.Client.Get(ctx, key).Bytes()
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if err != nil {
				return nil, err
			}
			var rec typingRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				continue
			}
			indicators = append(indicators, domaintyping.Indicator{
				ConversationID: domainconv.ID(rec.ConversationID),
				UserID:         domainuser.ID(rec.UserID),
				ExpiresAt:      rec.ExpiresAt,
			})
		}
		cursor = next
		if cursor == 0 {
			return indicators, nil
		}
	}
}

func (s *TypingStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func typingKey(convID domainconv.ID, userID domainuser.ID) string {
	return "typing:" + string(convID) + ":" + string(userID)
}
