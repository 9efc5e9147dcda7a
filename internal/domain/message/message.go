package message

import (
	"context"
	"errors"
	"strings"
	"time"

	"talentsync/internal/domain/conversation"
	"talentsync/internal/domain/user"
)

var (
	ErrIDRequired           = errors.New("message: id is required")
	ErrConversationRequired = errors.New("message: conversation id is required")
	ErrSenderRequired       = errors.New("message: sender id is required")
	ErrEmptyBody            = errors.New("message: body or attachment is required")
	ErrEditWindowClosed     = errors.New("message: edit window has closed")
	ErrDeleted              = errors.New("message: already deleted")
	ErrNotSender            = errors.New("message: only the sender may modify it")
	ErrNotFound             = errors.New("message: not found")
)

// EditWindow bounds how long after creation a body may still be changed.
// Policy constant, not a security boundary.
const EditWindow = 15 * time.Minute

type ID string

type Attachment struct {
	URL         string
	Name        string
	Size        int64
	ContentType string
}

func (a Attachment) Empty() bool {
	return strings.TrimSpace(a.URL) == ""
}

type Message struct {
	ID             ID
	ConversationID conversation.ID
	SenderID       user.ID
	Body           string
	Attachment     Attachment
	// ClientID is the caller-generated correlation id an optimistic entry
	// is reconciled against once the stored row comes back on the feed.
	ClientID  string
	CreatedAt time.Time
	EditedAt  time.Time
	Deleted   bool
}

type CreateParams struct {
	ID             ID
	ConversationID conversation.ID
	SenderID       user.ID
	Body           string
	Attachment     Attachment
	ClientID       string
	Now            time.Time
}

func New(params CreateParams) (*Message, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	convID := strings.TrimSpace(string(params.ConversationID))
	if convID == "" {
		return nil, ErrConversationRequired
	}
	sender := strings.TrimSpace(string(params.SenderID))
	if sender == "" {
		return nil, ErrSenderRequired
	}
	body := strings.TrimSpace(params.Body)
	if body == "" && params.Attachment.Empty() {
		return nil, ErrEmptyBody
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Message{
		ID:             ID(id),
		ConversationID: conversation.ID(convID),
		SenderID:       user.ID(sender),
		Body:           body,
		Attachment:     params.Attachment,
		ClientID:       strings.TrimSpace(params.ClientID),
		CreatedAt:      now.UTC(),
	}, nil
}

// Edit replaces the body. CreatedAt never changes, so history ordering is
// stable across edits.
func (m *Message) Edit(by user.ID, body string, at time.Time) error {
	if m.Deleted {
		return ErrDeleted
	}
	if by != m.SenderID {
		return ErrNotSender
	}
	body = strings.TrimSpace(body)
	if body == "" && m.Attachment.Empty() {
		return ErrEmptyBody
	}
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()
	if at.Sub(m.CreatedAt) > EditWindow {
		return ErrEditWindowClosed
	}
	m.Body = body
	m.EditedAt = at
	return nil
}

// Delete tombstones the row; the slot stays in the stream so ordering and
// counters survive.
func (m *Message) Delete(by user.ID, at time.Time) error {
	if m.Deleted {
		return ErrDeleted
	}
	if by != m.SenderID {
		return ErrNotSender
	}
	if at.IsZero() {
		at = time.Now()
	}
	m.Deleted = true
	m.Body = ""
	m.Attachment = Attachment{}
	m.EditedAt = at.UTC()
	return nil
}

// Store persists message history. ListByConversation returns rows ordered by
// CreatedAt ascending.
type Store interface {
	Append(ctx context.Context, msg *Message) error
	Get(ctx context.Context, convID conversation.ID, id ID) (*Message, error)
	ListByConversation(ctx context.Context, convID conversation.ID) ([]*Message, error)
	Update(ctx context.Context, msg *Message) error
}
