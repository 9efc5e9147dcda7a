package memory

import (
	"context"
	"sort"
	"sync"

	domainconv "talentsync/internal/domain/conversation"
	domainmsg "talentsync/internal/domain/message"
)

// MessageStore stores message history in memory. Not suitable for production.
type MessageStore struct {
	mu      sync.RWMutex
	byConv  map[domainconv.ID][]*domainmsg.Message
	indexed map[domainmsg.ID]*domainmsg.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		byConv:  make(map[domainconv.ID][]*domainmsg.Message),
		indexed: make(map[domainmsg.ID]*domainmsg.Message),
	}
}

func (s *MessageStore) Append(ctx context.Context, msg *domainmsg.Message) error {
	if msg == nil || msg.ID == "" {
		return domainmsg.ErrIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneMessage(msg)
	s.byConv[msg.ConversationID] = append(s.byConv[msg.ConversationID], stored)
	s.indexed[msg.ID] = stored
	return nil
}

func (s *MessageStore) Get(ctx context.Context, convID domainconv.ID, id domainmsg.ID) (*domainmsg.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.indexed[id]
	if !ok || msg.ConversationID != convID {
		return nil, domainmsg.ErrNotFound
	}
	return cloneMessage(msg), nil
}

func (s *MessageStore) ListByConversation(ctx context.Context, convID domainconv.ID) ([]*domainmsg.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.byConv[convID]
	out := make([]*domainmsg.Message, 0, len(stored))
	for _, msg := range stored {
		out = append(out, cloneMessage(msg))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MessageStore) Update(ctx context.Context, msg *domainmsg.Message) error {
	if msg == nil || msg.ID == "" {
		return domainmsg.ErrIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.indexed[msg.ID]
	if !ok || existing.ConversationID != msg.ConversationID {
		return domainmsg.ErrNotFound
	}
	*existing = *cloneMessage(msg)
	return nil
}

func cloneMessage(m *domainmsg.Message) *domainmsg.Message {
	if m == nil {
		return nil
	}
	copyMsg := *m
	return &copyMsg
}

var _ domainmsg.Store = (*MessageStore)(nil)
