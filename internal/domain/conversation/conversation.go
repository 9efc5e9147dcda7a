package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"talentsync/internal/domain/user"
)

var (
	ErrIDRequired           = errors.New("conversation: id is required")
	ErrParticipantsRequired = errors.New("conversation: business and talent participants are required")
	ErrSameParticipant      = errors.New("conversation: participants must differ")
	ErrNotParticipant       = errors.New("conversation: user is not a participant")
	ErrInvalidRelation      = errors.New("conversation: invalid related entity type")
	ErrNotFound             = errors.New("conversation: not found")
)

type ID string

// RelationType names the marketplace entity a conversation is attached to.
// The relation is structural, set at creation time; it is never derived from
// the conversation id.
type RelationType string

const (
	RelationNone        RelationType = ""
	RelationOpportunity RelationType = "opportunity"
	RelationService     RelationType = "service"
)

// UnreadSentinel is the counter value MarkUnread assigns so a read
// conversation shows up as unread again without inventing message history.
const UnreadSentinel = 1

// ParticipantState holds the per-participant view of a thread. Exactly one
// exists per (conversation, participant) pair.
type ParticipantState struct {
	Unread   int
	Archived bool
}

type Conversation struct {
	ID           ID
	BusinessID   user.ID
	TalentID     user.ID
	Relation     RelationType
	RelationID   string
	LastText     string
	LastSenderID user.ID
	LastAt       time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	States map[user.ID]*ParticipantState
}

type CreateParams struct {
	ID         ID
	BusinessID user.ID
	TalentID   user.ID
	Relation   RelationType
	RelationID string
	Now        time.Time
}

func New(params CreateParams) (*Conversation, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	business := user.ID(strings.TrimSpace(string(params.BusinessID)))
	talent := user.ID(strings.TrimSpace(string(params.TalentID)))
	if business == "" || talent == "" {
		return nil, ErrParticipantsRequired
	}
	if business == talent {
		return nil, ErrSameParticipant
	}
	switch params.Relation {
	case RelationNone, RelationOpportunity, RelationService:
	default:
		return nil, ErrInvalidRelation
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &Conversation{
		ID:         ID(id),
		BusinessID: business,
		TalentID:   talent,
		Relation:   params.Relation,
		RelationID: strings.TrimSpace(params.RelationID),
		CreatedAt:  now,
		UpdatedAt:  now,
		States: map[user.ID]*ParticipantState{
			business: {},
			talent:   {},
		},
	}, nil
}

func (c *Conversation) IsParticipant(id user.ID) bool {
	return id == c.BusinessID || id == c.TalentID
}

// Peer returns the other participant of the thread.
func (c *Conversation) Peer(id user.ID) (user.ID, error) {
	switch id {
	case c.BusinessID:
		return c.TalentID, nil
	case c.TalentID:
		return c.BusinessID, nil
	default:
		return "", ErrNotParticipant
	}
}

// State returns the participant view, creating it lazily for threads loaded
// from storage that predate per-participant state.
func (c *Conversation) State(id user.ID) (*ParticipantState, error) {
	if !c.IsParticipant(id) {
		return nil, ErrNotParticipant
	}
	if c.States == nil {
		c.States = make(map[user.ID]*ParticipantState, 2)
	}
	st, ok := c.States[id]
	if !ok {
		st = &ParticipantState{}
		c.States[id] = st
	}
	return st, nil
}

// RecordMessage updates the last-activity snapshot and bumps the unread
// counter of the sender's peer. The sender's own counter is untouched.
func (c *Conversation) RecordMessage(senderID user.ID, text string, at time.Time) error {
	peer, err := c.Peer(senderID)
	if err != nil {
		return err
	}
	st, err := c.State(peer)
	if err != nil {
		return err
	}
	st.Unread++
	c.LastText = text
	c.LastSenderID = senderID
	c.LastAt = at.UTC()
	c.touch(at)
	return nil
}

// MarkRead zeroes the acting participant's unread counter. Only the
// participant themself resets their counter.
func (c *Conversation) MarkRead(id user.ID, at time.Time) error {
	st, err := c.State(id)
	if err != nil {
		return err
	}
	st.Unread = 0
	c.touch(at)
	return nil
}

// MarkUnread flags the thread for the acting participant using the sentinel
// counter value.
func (c *Conversation) MarkUnread(id user.ID, at time.Time) error {
	st, err := c.State(id)
	if err != nil {
		return err
	}
	if st.Unread == 0 {
		st.Unread = UnreadSentinel
	}
	c.touch(at)
	return nil
}

func (c *Conversation) SetArchived(id user.ID, archived bool, at time.Time) error {
	st, err := c.State(id)
	if err != nil {
		return err
	}
	st.Archived = archived
	c.touch(at)
	return nil
}

// Unread reports the counter for one participant. Unknown users read as zero.
func (c *Conversation) Unread(id user.ID) int {
	if c.States == nil {
		return 0
	}
	if st, ok := c.States[id]; ok {
		return st.Unread
	}
	return 0
}

// LastActivity is what the list ordering keys on: the last message time when
// one exists, otherwise the zero time so empty threads sort last.
func (c *Conversation) LastActivity() time.Time {
	return c.LastAt
}

func (c *Conversation) touch(at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	c.UpdatedAt = at.UTC()
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Conversation, error)
	ForParticipant(ctx context.Context, id user.ID) ([]*Conversation, error)
	// ByParticipantsAndRelation locates an existing thread for the pair and
	// relation, regardless of which side initiated it.
	ByParticipantsAndRelation(ctx context.Context, businessID, talentID user.ID, relation RelationType, relationID string) (*Conversation, error)
	Save(ctx context.Context, conv *Conversation) error
}
