package scylla

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gocql/gocql"

	domainconv "talentsync/internal/domain/conversation"
	domainmsg "talentsync/internal/domain/message"
	domainuser "talentsync/internal/domain/user"
)

// MessageStore wraps Scylla queries for the message history.
type MessageStore struct {
	session *gocql.Session
	logger  *slog.Logger
}

func NewMessageStore(session *gocql.Session, logger *slog.Logger) *MessageStore {
	return &MessageStore{session: session, logger: logger}
}

var _ domainmsg.Store = (*MessageStore)(nil)

const messageColumns = `conversation_id, message_id, sender_id, body, attachment_url, attachment_name, attachment_size, attachment_content_type, client_id, created_at, edited_at, deleted`

func (s *MessageStore) Append(ctx context.Context, msg *domainmsg.Message) error {
	if s.session == nil {
		return errors.New("scylla session not initialized")
	}
	return s.session.
		Query(`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(msg.ConversationID), string(msg.ID), string(msg.SenderID),
			msg.Body, msg.Attachment.URL, msg.Attachment.Name, msg.Attachment.Size, msg.Attachment.ContentType,
			msg.ClientID, msg.CreatedAt, msg.EditedAt, msg.Deleted).
		WithContext(ctx).
		Consistency(gocql.Quorum).
		Exec()
}

func (s *MessageStore) Get(ctx context.Context, convID domainconv.ID, id domainmsg.ID) (*domainmsg.Message, error) {
	if s.session == nil {
		return nil, errors.New("scylla session not initialized")
	}
	var row messageRow
	err := s.session.
		Query(`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ? AND message_id = ? LIMIT 1 ALLOW FILTERING`,
			string(convID), string(id)).
		WithContext(ctx).
		Consistency(gocql.One).
		Scan(row.scanDest()...)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, domainmsg.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toAggregate(), nil
}

// ListByConversation returns the full thread oldest first; the clustering
// order makes this a single in-order partition read.
func (s *MessageStore) ListByConversation(ctx context.Context, convID domainconv.ID) ([]*domainmsg.Message, error) {
	if s.session == nil {
		return nil, errors.New("scylla session not initialized")
	}
	iter := s.session.
		Query(`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ?`, string(convID)).
		WithContext(ctx).
		Consistency(gocql.One).
		Iter()

	messages := make([]*domainmsg.Message, 0)
	var row messageRow
	for iter.Scan(row.scanDest()...) {
		messages = append(messages, row.toAggregate())
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return messages, nil
}

// Update rewrites a row in place. The primary key includes created_at, which
// never changes after Append, so the insert lands on the same row.
func (s *MessageStore) Update(ctx context.Context, msg *domainmsg.Message) error {
	return s.Append(ctx, msg)
}

type messageRow struct {
	ConversationID        string
	MessageID             string
	SenderID              string
	Body                  string
	AttachmentURL         string
	AttachmentName        string
	AttachmentSize        int64
	AttachmentContentType string
	ClientID              string
	CreatedAt             time.Time
	EditedAt              time.Time
	Deleted               bool
}

func (r *messageRow) scanDest() []any {
	return []any{
		&r.ConversationID, &r.MessageID, &r.SenderID, &r.Body,
		&r.AttachmentURL, &r.AttachmentName, &r.AttachmentSize, &r.AttachmentContentType,
		&r.ClientID, &r.CreatedAt, &r.EditedAt, &r.Deleted,
	}
}

func (r *messageRow) toAggregate() *domainmsg.Message {
	return &domainmsg.Message{
		ID:             domainmsg.ID(r.MessageID),
		ConversationID: domainconv.ID(r.ConversationID),
		SenderID:       domainuser.ID(r.SenderID),
		Body:           r.Body,
		Attachment: domainmsg.Attachment{
			URL:         r.AttachmentURL,
			Name:        r.AttachmentName,
			Size:        r.AttachmentSize,
			ContentType: r.AttachmentContentType,
		},
		ClientID:  r.ClientID,
		CreatedAt: r.CreatedAt.UTC(),
		EditedAt:  r.EditedAt.UTC(),
		Deleted:   r.Deleted,
	}
}
