// Package messages loads and mutates message history. Loading is idempotent
// by construction (the store returns the full ordered list, callers replace
// rather than append); sending validates locally, persists, bumps the
// conversation, and echoes the client correlation id back over the feed so
// optimistic entries reconcile.
package messages

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"talentsync/internal/app/conversations"
	"talentsync/internal/app/dto"
	appfeed "talentsync/internal/app/feed"
	"talentsync/internal/app/idempotency"
	appoutbox "talentsync/internal/app/outbox"
	domainconv "talentsync/internal/domain/conversation"
	domainmsg "talentsync/internal/domain/message"
	"talentsync/internal/domain/shared/events"
	domainuser "talentsync/internal/domain/user"
)

var (
	ErrStoreRequired         = errors.New("messages: store required")
	ErrConversationsRequired = errors.New("messages: conversation service required")
)

type Service struct {
	Messages      domainmsg.Store
	Conversations *conversations.Service
	Idempotency   idempotency.Store
	Feed          appfeed.Bus
	Outbox        appoutbox.Outbox
	Encoder       appoutbox.EventEncoder
	Logger        *slog.Logger
	Now           func() time.Time
}

type SendParams struct {
	ConversationID domainconv.ID
	SenderID       domainuser.ID
	Body           string
	Attachment     domainmsg.Attachment
	// ClientID correlates the stored row with the sender's optimistic entry.
	ClientID string
}

type EditParams struct {
	ConversationID domainconv.ID
	MessageID      domainmsg.ID
	UserID         domainuser.ID
	Body           string
}

// Load returns the full ordered history, oldest first. Calling it twice
// without intervening writes yields the same list both times.
func (s *Service) Load(ctx context.Context, convID domainconv.ID, viewer domainuser.ID) ([]*domainmsg.Message, error) {
	if s.Messages == nil {
		return nil, ErrStoreRequired
	}
	if s.Conversations == nil {
		return nil, ErrConversationsRequired
	}
	if _, err := s.Conversations.Get(ctx, convID, viewer); err != nil {
		return nil, err
	}
	return s.Messages.ListByConversation(ctx, convID)
}

// Send validates before touching storage: an empty trimmed body with no
// attachment never reaches the store. A retried send with the same client id
// returns the original row.
func (s *Service) Send(ctx context.Context, params SendParams) (*domainmsg.Message, error) {
	if s.Messages == nil {
		return nil, ErrStoreRequired
	}
	if s.Conversations == nil {
		return nil, ErrConversationsRequired
	}
	conv, err := s.Conversations.Get(ctx, params.ConversationID, params.SenderID)
	if err != nil {
		return nil, err
	}
	if replay, ok, err := s.replaySend(ctx, params); err != nil {
		return nil, err
	} else if ok {
		return replay, nil
	}

	now := s.now()
	msg, err := domainmsg.New(domainmsg.CreateParams{
		ID:             domainmsg.ID(uuid.NewString()),
		ConversationID: conv.ID,
		SenderID:       params.SenderID,
		Body:           params.Body,
		Attachment:     params.Attachment,
		ClientID:       params.ClientID,
		Now:            now,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Messages.Append(ctx, msg); err != nil {
		return nil, err
	}
	if _, err := s.Conversations.ApplyMessage(ctx, conv.ID, msg.SenderID, previewText(msg), msg.CreatedAt); err != nil {
		// The row is stored, so surfacing the error would fake a failed send.
		// A stale-snapshot event goes through the outbox instead: the unread
		// increment would otherwise be lost for good, since later writes only
		// replace the preview.
		if s.Logger != nil {
			s.Logger.Warn("conversation snapshot update failed", "conversation_id", conv.ID, "error", err)
		}
		s.recordEvent(ctx, domainconv.SnapshotStale{
			ConversationID: conv.ID,
			MessageID:      string(msg.ID),
			At:             msg.CreatedAt,
		})
	}
	s.rememberSend(ctx, params, msg)
	s.publishRow(ctx, conv, msg, appfeed.Insert)
	s.recordEvent(ctx, domainmsg.Posted{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Body:           msg.Body,
		ClientID:       msg.ClientID,
		At:             msg.CreatedAt,
	})
	return msg, nil
}

// Edit mutates the body inside the edit window. Ordering is untouched:
// created_at never changes.
func (s *Service) Edit(ctx context.Context, params EditParams) (*domainmsg.Message, error) {
	if s.Messages == nil {
		return nil, ErrStoreRequired
	}
	conv, err := s.Conversations.Get(ctx, params.ConversationID, params.UserID)
	if err != nil {
		return nil, err
	}
	msg, err := s.Messages.Get(ctx, conv.ID, params.MessageID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := msg.Edit(params.UserID, params.Body, now); err != nil {
		return nil, err
	}
	if err := s.Messages.Update(ctx, msg); err != nil {
		return nil, err
	}
	s.publishRow(ctx, conv, msg, appfeed.Update)
	s.recordEvent(ctx, domainmsg.Edited{MessageID: msg.ID, ConversationID: conv.ID, At: now})
	return msg, nil
}

func (s *Service) Remove(ctx context.Context, convID domainconv.ID, msgID domainmsg.ID, userID domainuser.ID) error {
	if s.Messages == nil {
		return ErrStoreRequired
	}
	conv, err := s.Conversations.Get(ctx, convID, userID)
	if err != nil {
		return err
	}
	msg, err := s.Messages.Get(ctx, conv.ID, msgID)
	if err != nil {
		return err
	}
	now := s.now()
	if err := msg.Delete(userID, now); err != nil {
		return err
	}
	if err := s.Messages.Update(ctx, msg); err != nil {
		return err
	}
	s.publishRow(ctx, conv, msg, appfeed.Delete)
	s.recordEvent(ctx, domainmsg.Removed{MessageID: msg.ID, ConversationID: conv.ID, At: now})
	return nil
}

func (s *Service) replaySend(ctx context.Context, params SendParams) (*domainmsg.Message, bool, error) {
	if s.Idempotency == nil || params.ClientID == "" {
		return nil, false, nil
	}
	rec, found, err := s.Idempotency.Get(ctx, sendKey(params))
	if err != nil || !found {
		return nil, false, err
	}
	if rec.Error != "" {
		return nil, true, errors.New(rec.Error)
	}
	var stored struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(rec.Payload, &stored); err != nil {
		return nil, false, nil
	}
	msg, err := s.Messages.Get(ctx, params.ConversationID, domainmsg.ID(stored.MessageID))
	if err != nil {
		return nil, false, nil
	}
	return msg, true, nil
}

func (s *Service) rememberSend(ctx context.Context, params SendParams, msg *domainmsg.Message) {
	if s.Idempotency == nil || params.ClientID == "" {
		return
	}
	payload, err := json.Marshal(struct {
		MessageID string `json:"message_id"`
	}{MessageID: string(msg.ID)})
	if err != nil {
		return
	}
	rec := idempotency.Record{Key: sendKey(params), Payload: payload, OccurredAt: s.now()}
	if err := s.Idempotency.Save(ctx, rec); err != nil && s.Logger != nil {
		s.Logger.Warn("send idempotency save failed", "key", rec.Key, "error", err)
	}
}

func (s *Service) publishRow(ctx context.Context, conv *domainconv.Conversation, msg *domainmsg.Message, kind appfeed.EventType) {
	if s.Feed == nil {
		return
	}
	ev := appfeed.Event{
		ID:         uuid.NewString(),
		Table:      appfeed.TableMessages,
		Type:       kind,
		Recipients: []string{string(conv.BusinessID), string(conv.TalentID)},
		Row:        appfeed.MarshalRow(dto.MapMessage(msg)),
		OccurredAt: s.now(),
	}
	if err := s.Feed.Publish(ctx, ev); err != nil && s.Logger != nil {
		s.Logger.Warn("message feed publish failed", "message_id", msg.ID, "error", err)
	}
}

func (s *Service) recordEvent(ctx context.Context, ev events.DomainEvent) {
	if s.Outbox == nil {
		return
	}
	if err := appoutbox.RecordDomainEvents(ctx, s.Outbox, s.Encoder, []events.DomainEvent{ev}); err != nil && s.Logger != nil {
		s.Logger.Warn("message outbox record failed", "event", ev.EventName(), "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func sendKey(params SendParams) string {
	return "send:" + string(params.ConversationID) + ":" + string(params.SenderID) + ":" + params.ClientID
}

func previewText(msg *domainmsg.Message) string {
	if msg.Body != "" {
		return msg.Body
	}
	if !msg.Attachment.Empty() {
		if msg.Attachment.Name != "" {
			return msg.Attachment.Name
		}
		return "attachment"
	}
	return ""
}
