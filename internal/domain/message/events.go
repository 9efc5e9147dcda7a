package message

import (
	"time"

	"talentsync/internal/domain/conversation"
	"talentsync/internal/domain/user"
)

type Posted struct {
	MessageID      ID
	ConversationID conversation.ID
	SenderID       user.ID
	Body           string
	ClientID       string
	At             time.Time
}

func (e Posted) EventName() string     { return "message.posted" }
func (e Posted) AggregateID() string   { return string(e.ConversationID) }
func (e Posted) OccurredAt() time.Time { return e.At }

type Edited struct {
	MessageID      ID
	ConversationID conversation.ID
	At             time.Time
}

func (e Edited) EventName() string     { return "message.edited" }
func (e Edited) AggregateID() string   { return string(e.ConversationID) }
func (e Edited) OccurredAt() time.Time { return e.At }

type Removed struct {
	MessageID      ID
	ConversationID conversation.ID
	At             time.Time
}

func (e Removed) EventName() string     { return "message.removed" }
func (e Removed) AggregateID() string   { return string(e.ConversationID) }
func (e Removed) OccurredAt() time.Time { return e.At }
