// Package feed is the change-feed boundary between storage writes and every
// live consumer: services publish row-level events, subscribers (websocket
// hub, profile cache, typing trackers) receive them through channels.
// Delivery is at-least-once and unordered across rows; consumers re-sort or
// re-fetch instead of blind-appending where order matters.
package feed

import (
	"context"
	"encoding/json"
	"time"
)

type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

// Table names mirror the stored collections.
const (
	TableConversations = "conversations"
	TableMessages      = "messages"
	TableTyping        = "typing_indicators"
	TableProfiles      = "profiles"
	TableNotifications = "notifications"
)

// Event is one row-level change. Recipients scopes who may see it; an empty
// list means any subscriber of the table.
type Event struct {
	ID         string          `json:"id"`
	Table      string          `json:"table"`
	Type       EventType       `json:"type"`
	Recipients []string        `json:"recipients,omitempty"`
	Row        json.RawMessage `json:"row,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// DecodeRow unmarshals the row payload into out.
func (e Event) DecodeRow(out any) error {
	return json.Unmarshal(e.Row, out)
}

// Filter selects which events a subscription receives. Empty Tables matches
// every table. When UserID is set, events carrying a recipient list are
// delivered only if the user is listed; internal consumers leave UserID empty
// and see everything.
type Filter struct {
	Tables []string
	UserID string
}

func (f Filter) Matches(ev Event) bool {
	if len(f.Tables) > 0 {
		found := false
		for _, t := range f.Tables {
			if t == ev.Table {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.UserID != "" && len(ev.Recipients) > 0 {
		for _, r := range ev.Recipients {
			if r == f.UserID {
				return true
			}
		}
		return false
	}
	return true
}

// Subscription delivers matching events until Close. Close is idempotent and
// must be called when the consumer goes away, or the handler leaks.
type Subscription struct {
	C      <-chan Event
	cancel func()
}

func NewSubscription(c <-chan Event, cancel func()) *Subscription {
	return &Subscription{C: c, cancel: cancel}
}

func (s *Subscription) Close() {
	if s != nil && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(filter Filter) *Subscription
}

// MarshalRow is a small helper so services do not repeat the error-swallowing
// json dance at every publish site.
func MarshalRow(row any) json.RawMessage {
	data, err := json.Marshal(row)
	if err != nil {
		return nil
	}
	return data
}
