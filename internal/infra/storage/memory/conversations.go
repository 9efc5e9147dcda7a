package memory

import (
	"context"
	"sync"

	domainconv "talentsync/internal/domain/conversation"
	domainuser "talentsync/internal/domain/user"
)

// ConversationRepository stores conversations in memory. Not suitable for production.
type ConversationRepository struct {
	mu    sync.RWMutex
	items map[domainconv.ID]*domainconv.Conversation
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{items: make(map[domainconv.ID]*domainconv.Conversation)}
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainconv.ID) (*domainconv.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if conv, ok := r.items[id]; ok {
		return cloneConversation(conv), nil
	}
	return nil, domainconv.ErrNotFound
}

func (r *ConversationRepository) ForParticipant(ctx context.Context, id domainuser.ID) ([]*domainconv.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainconv.Conversation
	for _, conv := range r.items {
		if conv.IsParticipant(id) {
			out = append(out, cloneConversation(conv))
		}
	}
	return out, nil
}

func (r *ConversationRepository) ByParticipantsAndRelation(ctx context.Context, businessID, talentID domainuser.ID, relation domainconv.RelationType, relationID string) (*domainconv.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conv := range r.items {
		if conv.BusinessID == businessID && conv.TalentID == talentID &&
			conv.Relation == relation && conv.RelationID == relationID {
			return cloneConversation(conv), nil
		}
	}
	return nil, domainconv.ErrNotFound
}

func (r *ConversationRepository) Save(ctx context.Context, conv *domainconv.Conversation) error {
	if conv == nil || conv.ID == "" {
		return domainconv.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[conv.ID] = cloneConversation(conv)
	return nil
}

func cloneConversation(c *domainconv.Conversation) *domainconv.Conversation {
	if c == nil {
		return nil
	}
	copyConv := *c
	copyConv.States = make(map[domainuser.ID]*domainconv.ParticipantState, len(c.States))
	for uid, st := range c.States {
		stCopy := *st
		copyConv.States[uid] = &stCopy
	}
	return &copyConv
}

var _ domainconv.Repository = (*ConversationRepository)(nil)
