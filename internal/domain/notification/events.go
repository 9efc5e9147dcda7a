package notification

import (
	"time"

	"talentsync/internal/domain/user"
)

type Created struct {
	NotificationID ID
	UserID         user.ID
	Type           string
	Title          string
	Channels       []Channel
	At             time.Time
}

func (e Created) EventName() string     { return "notification.created" }
func (e Created) AggregateID() string   { return string(e.NotificationID) }
func (e Created) OccurredAt() time.Time { return e.At }

// DeliveryRequested is queued per enabled non-in-app channel; the delivery
// worker consumes it off the broker.
type DeliveryRequested struct {
	NotificationID ID
	UserID         user.ID
	Channel        Channel
	Type           string
	Title          string
	Message        string
	ActionURL      string
	At             time.Time
}

func (e DeliveryRequested) EventName() string {
	return "notification.delivery_requested." + string(e.Channel)
}
func (e DeliveryRequested) AggregateID() string   { return string(e.NotificationID) }
func (e DeliveryRequested) OccurredAt() time.Time { return e.At }
