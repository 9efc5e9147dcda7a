package dto

import (
	"time"

	domainmsg "talentsync/internal/domain/message"
)

type Attachment struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Body           string      `json:"body"`
	Attachment     *Attachment `json:"attachment,omitempty"`
	ClientID       string      `json:"client_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	EditedAt       time.Time   `json:"edited_at,omitempty"`
	Deleted        bool        `json:"deleted,omitempty"`
}

type MessageList struct {
	Items []Message `json:"items"`
}

func MapMessage(msg *domainmsg.Message) Message {
	if msg == nil {
		return Message{}
	}
	out := Message{
		ID:             string(msg.ID),
		ConversationID: string(msg.ConversationID),
		SenderID:       string(msg.SenderID),
		Body:           msg.Body,
		ClientID:       msg.ClientID,
		CreatedAt:      msg.CreatedAt,
		EditedAt:       msg.EditedAt,
		Deleted:        msg.Deleted,
	}
	if !msg.Attachment.Empty() {
		out.Attachment = &Attachment{
			URL:         msg.Attachment.URL,
			Name:        msg.Attachment.Name,
			Size:        msg.Attachment.Size,
			ContentType: msg.Attachment.ContentType,
		}
	}
	return out
}

func MapMessages(msgs []*domainmsg.Message) MessageList {
	out := MessageList{Items: make([]Message, 0, len(msgs))}
	for _, msg := range msgs {
		out.Items = append(out.Items, MapMessage(msg))
	}
	return out
}
