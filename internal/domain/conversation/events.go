package conversation

import (
	"time"

	"talentsync/internal/domain/user"
)

type Created struct {
	ConversationID ID
	BusinessID     user.ID
	TalentID       user.ID
	Relation       RelationType
	RelationID     string
	At             time.Time
}

func (e Created) EventName() string     { return "conversation.created" }
func (e Created) AggregateID() string   { return string(e.ConversationID) }
func (e Created) OccurredAt() time.Time { return e.At }

type Read struct {
	ConversationID ID
	UserID         user.ID
	At             time.Time
}

func (e Read) EventName() string     { return "conversation.read" }
func (e Read) AggregateID() string   { return string(e.ConversationID) }
func (e Read) OccurredAt() time.Time { return e.At }

type MarkedUnread struct {
	ConversationID ID
	UserID         user.ID
	At             time.Time
}

func (e MarkedUnread) EventName() string     { return "conversation.marked_unread" }
func (e MarkedUnread) AggregateID() string   { return string(e.ConversationID) }
func (e MarkedUnread) OccurredAt() time.Time { return e.At }

type Archived struct {
	ConversationID ID
	UserID         user.ID
	Archived       bool
	At             time.Time
}

func (e Archived) EventName() string     { return "conversation.archived" }
func (e Archived) AggregateID() string   { return string(e.ConversationID) }
func (e Archived) OccurredAt() time.Time { return e.At }

// SnapshotStale marks a conversation whose denormalized snapshot (unread
// counters, last-message preview) missed a write and needs recomputing from
// the message history.
type SnapshotStale struct {
	ConversationID ID
	MessageID      string
	At             time.Time
}

func (e SnapshotStale) EventName() string     { return "conversation.snapshot_stale" }
func (e SnapshotStale) AggregateID() string   { return string(e.ConversationID) }
func (e SnapshotStale) OccurredAt() time.Time { return e.At }
