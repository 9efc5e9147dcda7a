package dto

import (
	"time"

	domainnotif "talentsync/internal/domain/notification"
)

type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message,omitempty"`
	ActionURL string            `json:"action_url,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Processed bool              `json:"processed"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
	ReadAt    time.Time         `json:"read_at,omitempty"`
}

type NotificationList struct {
	Items []Notification `json:"items"`
}

func MapNotification(n *domainnotif.Notification) Notification {
	if n == nil {
		return Notification{}
	}
	return Notification{
		ID:        string(n.ID),
		UserID:    string(n.UserID),
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		ActionURL: n.ActionURL,
		Data:      n.Data,
		Processed: n.Processed,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
	}
}
