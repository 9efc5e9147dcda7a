package memory

import (
	"context"
	"sync"
	"time"

	domainconv "talentsync/internal/domain/conversation"
	domaintyping "talentsync/internal/domain/typing"
	domainuser "talentsync/internal/domain/user"
)

// TypingStore keeps typing indicators in memory with lazy expiry.
type TypingStore struct {
	Now func() time.Time

	mu    sync.Mutex
	items map[string]domaintyping.Indicator
}

func NewTypingStore() *TypingStore {
	return &TypingStore{items: make(map[string]domaintyping.Indicator)}
}

func (s *TypingStore) Set(ctx context.Context, ind domaintyping.Indicator) error {
	if ind.ConversationID == "" {
		return domaintyping.ErrConversationRequired
	}
	if ind.UserID == "" {
		return domaintyping.ErrUserRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[typingKey(ind.ConversationID, ind.UserID)] = ind
	return nil
}

func (s *TypingStore) Clear(ctx context.Context, convID domainconv.ID, userID domainuser.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, typingKey(convID, userID))
	return nil
}

func (s *TypingStore) Active(ctx context.Context, convID domainconv.ID) ([]domaintyping.Indicator, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domaintyping.Indicator
	for key, ind := range s.items {
		if ind.Expired(now) {
			delete(s.items, key)
			continue
		}
		if ind.ConversationID == convID {
			out = append(out, ind)
		}
	}
	return out, nil
}

func (s *TypingStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func typingKey(convID domainconv.ID, userID domainuser.ID) string {
	return string(convID) + ":" + string(userID)
}

var _ domaintyping.Store = (*TypingStore)(nil)
