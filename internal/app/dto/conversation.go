package dto

import (
	"time"

	domainconv "talentsync/internal/domain/conversation"
	domainuser "talentsync/internal/domain/user"
)

// Conversation is the per-viewer projection of a thread: the unread counter
// and archived flag belong to the requesting participant.
type Conversation struct {
	ID            string    `json:"id"`
	BusinessID    string    `json:"business_id"`
	TalentID      string    `json:"talent_id"`
	RelationType  string    `json:"related_entity_type,omitempty"`
	RelationID    string    `json:"related_entity_id,omitempty"`
	LastText      string    `json:"last_message_text,omitempty"`
	LastSenderID  string    `json:"last_message_sender_id,omitempty"`
	LastMessageAt time.Time `json:"last_message_at,omitempty"`
	Unread        int       `json:"unread"`
	Archived      bool      `json:"archived,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type ConversationList struct {
	Items []Conversation `json:"items"`
}

func MapConversation(conv *domainconv.Conversation, viewer domainuser.ID) Conversation {
	if conv == nil {
		return Conversation{}
	}
	out := Conversation{
		ID:            string(conv.ID),
		BusinessID:    string(conv.BusinessID),
		TalentID:      string(conv.TalentID),
		RelationType:  string(conv.Relation),
		RelationID:    conv.RelationID,
		LastText:      conv.LastText,
		LastSenderID:  string(conv.LastSenderID),
		LastMessageAt: conv.LastAt,
		CreatedAt:     conv.CreatedAt,
	}
	if viewer != "" {
		out.Unread = conv.Unread(viewer)
		if st, ok := conv.States[viewer]; ok {
			out.Archived = st.Archived
		}
	}
	return out
}
