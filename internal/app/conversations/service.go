// Package conversations keeps each participant's thread list in sync: load
// with per-viewer unread counters, last-activity ordering, read/unread
// toggles, and targeted change-feed events so clients refresh one thread
// instead of reloading the list.
package conversations

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	appfeed "talentsync/internal/app/feed"
	appoutbox "talentsync/internal/app/outbox"
	domainconv "talentsync/internal/domain/conversation"
	"talentsync/internal/domain/shared/events"
	domainuser "talentsync/internal/domain/user"
)

var ErrRepositoryRequired = errors.New("conversations: repository required")

type Service struct {
	Conversations domainconv.Repository
	Feed          appfeed.Bus
	Outbox        appoutbox.Outbox
	Encoder       appoutbox.EventEncoder
	Logger        *slog.Logger
	Now           func() time.Time
}

type CreateParams struct {
	BusinessID domainuser.ID
	TalentID   domainuser.ID
	Relation   domainconv.RelationType
	RelationID string
}

// ListForUser returns every thread the user participates in, ordered by last
// message time descending; threads with no messages yet sort last. A thread
// with zero messages is a valid empty state, not an error.
func (s *Service) ListForUser(ctx context.Context, userID domainuser.ID) ([]*domainconv.Conversation, error) {
	if s.Conversations == nil {
		return nil, ErrRepositoryRequired
	}
	items, err := s.Conversations.ForParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].LastActivity(), items[j].LastActivity()
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		if !a.Equal(b) {
			return a.After(b)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// Get loads one thread and verifies the viewer participates in it.
func (s *Service) Get(ctx context.Context, id domainconv.ID, viewer domainuser.ID) (*domainconv.Conversation, error) {
	if s.Conversations == nil {
		return nil, ErrRepositoryRequired
	}
	conv, err := s.Conversations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(viewer) {
		return nil, domainconv.ErrNotParticipant
	}
	return conv, nil
}

// GetOrCreate is idempotent per (participants, relation): first contact
// creates the thread, later calls return the existing one.
func (s *Service) GetOrCreate(ctx context.Context, params CreateParams) (*domainconv.Conversation, error) {
	if s.Conversations == nil {
		return nil, ErrRepositoryRequired
	}
	existing, err := s.Conversations.ByParticipantsAndRelation(ctx, params.BusinessID, params.TalentID, params.Relation, params.RelationID)
	if err == nil && existing != nil {
		return existing, nil
	}
	if err != nil && !errors.Is(err, domainconv.ErrNotFound) {
		return nil, err
	}
	now := s.now()
	conv, err := domainconv.New(domainconv.CreateParams{
		ID:         domainconv.ID(uuid.NewString()),
		BusinessID: params.BusinessID,
		TalentID:   params.TalentID,
		Relation:   params.Relation,
		RelationID: params.RelationID,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Conversations.Save(ctx, conv); err != nil {
		return nil, err
	}
	s.recordEvent(ctx, domainconv.Created{
		ConversationID: conv.ID,
		BusinessID:     conv.BusinessID,
		TalentID:       conv.TalentID,
		Relation:       conv.Relation,
		RelationID:     conv.RelationID,
		At:             now,
	})
	s.publishChange(ctx, conv, appfeed.Insert)
	if s.Logger != nil {
		s.Logger.Info("conversation created", "conversation_id", conv.ID, "relation", conv.Relation, "relation_id", conv.RelationID)
	}
	return conv, nil
}

// MarkRead zeroes the acting participant's unread counter. The counter stays
// zero until the peer posts again.
func (s *Service) MarkRead(ctx context.Context, id domainconv.ID, userID domainuser.ID) (*domainconv.Conversation, error) {
	return s.mutate(ctx, id, userID, func(conv *domainconv.Conversation, now time.Time) error {
		if err := conv.MarkRead(userID, now); err != nil {
			return err
		}
		s.recordEvent(ctx, domainconv.Read{ConversationID: id, UserID: userID, At: now})
		return nil
	})
}

// MarkUnread flags the thread with the sentinel counter value.
func (s *Service) MarkUnread(ctx context.Context, id domainconv.ID, userID domainuser.ID) (*domainconv.Conversation, error) {
	return s.mutate(ctx, id, userID, func(conv *domainconv.Conversation, now time.Time) error {
		if err := conv.MarkUnread(userID, now); err != nil {
			return err
		}
		s.recordEvent(ctx, domainconv.MarkedUnread{ConversationID: id, UserID: userID, At: now})
		return nil
	})
}

func (s *Service) SetArchived(ctx context.Context, id domainconv.ID, userID domainuser.ID, archived bool) (*domainconv.Conversation, error) {
	return s.mutate(ctx, id, userID, func(conv *domainconv.Conversation, now time.Time) error {
		if err := conv.SetArchived(userID, archived, now); err != nil {
			return err
		}
		s.recordEvent(ctx, domainconv.Archived{ConversationID: id, UserID: userID, Archived: archived, At: now})
		return nil
	})
}

// ApplyMessage records a posted message on the thread: bumps the peer's
// unread counter and the last-activity snapshot, then emits the targeted
// UPDATE event. Called by the message service inside its send path.
func (s *Service) ApplyMessage(ctx context.Context, id domainconv.ID, senderID domainuser.ID, text string, at time.Time) (*domainconv.Conversation, error) {
	if s.Conversations == nil {
		return nil, ErrRepositoryRequired
	}
	conv, err := s.Conversations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := conv.RecordMessage(senderID, text, at); err != nil {
		return nil, err
	}
	if err := s.Conversations.Save(ctx, conv); err != nil {
		return nil, err
	}
	s.publishChange(ctx, conv, appfeed.Update)
	return conv, nil
}

func (s *Service) mutate(ctx context.Context, id domainconv.ID, userID domainuser.ID, fn func(*domainconv.Conversation, time.Time) error) (*domainconv.Conversation, error) {
	conv, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := fn(conv, now); err != nil {
		return nil, err
	}
	if err := s.Conversations.Save(ctx, conv); err != nil {
		return nil, err
	}
	s.publishChange(ctx, conv, appfeed.Update)
	return conv, nil
}

// publishChange emits a thin row: clients re-fetch the one conversation's
// metadata rather than trusting event payloads for ordering or counters.
func (s *Service) publishChange(ctx context.Context, conv *domainconv.Conversation, kind appfeed.EventType) {
	if s.Feed == nil {
		return
	}
	ev := appfeed.Event{
		ID:         uuid.NewString(),
		Table:      appfeed.TableConversations,
		Type:       kind,
		Recipients: []string{string(conv.BusinessID), string(conv.TalentID)},
		Row: appfeed.MarshalRow(struct {
			ID string `json:"id"`
		}{ID: string(conv.ID)}),
		OccurredAt: s.now(),
	}
	if err := s.Feed.Publish(ctx, ev); err != nil && s.Logger != nil {
		s.Logger.Warn("conversation feed publish failed", "conversation_id", conv.ID, "error", err)
	}
}

func (s *Service) recordEvent(ctx context.Context, ev events.DomainEvent) {
	if s.Outbox == nil {
		return
	}
	if err := appoutbox.RecordDomainEvents(ctx, s.Outbox, s.Encoder, []events.DomainEvent{ev}); err != nil && s.Logger != nil {
		s.Logger.Warn("conversation outbox record failed", "event", ev.EventName(), "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
