package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"talentsync/internal/domain/user"
)

var (
	ErrIDRequired    = errors.New("notification: id is required")
	ErrUserRequired  = errors.New("notification: recipient is required")
	ErrTypeRequired  = errors.New("notification: type is required")
	ErrTitleRequired = errors.New("notification: title is required")
	ErrAlreadyRead   = errors.New("notification: already read")
	ErrNotFound      = errors.New("notification: not found")
)

type ID string

// Channel is one delivery path of the fan-out.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
)

// AllChannels lists every fan-out path in dispatch order.
var AllChannels = []Channel{ChannelInApp, ChannelPush, ChannelEmail}

// Notification is the in-app row. Its existence is the source of truth;
// channel delivery is a best-effort enhancement layered on top.
// Lifecycle: unprocessed -> processed (fan-out dispatched) -> read.
type Notification struct {
	ID        ID
	UserID    user.ID
	Type      string
	Title     string
	Message   string
	ActionURL string
	Data      map[string]string
	Processed bool
	Read      bool
	CreatedAt time.Time
	ReadAt    time.Time
}

type CreateParams struct {
	ID        ID
	UserID    user.ID
	Type      string
	Title     string
	Message   string
	ActionURL string
	Data      map[string]string
	Now       time.Time
}

func New(params CreateParams) (*Notification, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	uid := strings.TrimSpace(string(params.UserID))
	if uid == "" {
		return nil, ErrUserRequired
	}
	kind := strings.TrimSpace(params.Type)
	if kind == "" {
		return nil, ErrTypeRequired
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	var data map[string]string
	if len(params.Data) > 0 {
		data = make(map[string]string, len(params.Data))
		for k, v := range params.Data {
			data[k] = v
		}
	}
	return &Notification{
		ID:        ID(id),
		UserID:    user.ID(uid),
		Type:      kind,
		Title:     title,
		Message:   strings.TrimSpace(params.Message),
		ActionURL: strings.TrimSpace(params.ActionURL),
		Data:      data,
		CreatedAt: now.UTC(),
	}, nil
}

func (n *Notification) MarkProcessed() {
	n.Processed = true
}

// MarkRead is terminal: a read notification is never resurrected.
func (n *Notification) MarkRead(at time.Time) error {
	if n.Read {
		return ErrAlreadyRead
	}
	if at.IsZero() {
		at = time.Now()
	}
	n.Read = true
	n.ReadAt = at.UTC()
	return nil
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Notification, error)
	ForUser(ctx context.Context, id user.ID) ([]*Notification, error)
	Save(ctx context.Context, n *Notification) error
}
