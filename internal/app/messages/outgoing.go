package messages

import (
	"errors"
	"strings"
	"sync"
	"time"

	"talentsync/internal/app/dto"
	appfeed "talentsync/internal/app/feed"
)

// DeliveryState tracks one optimistically-shown message through its
// lifecycle: shown immediately as pending, then either matched to the stored
// row arriving on the feed or flagged failed for a retry affordance. A
// message is never silently dropped.
type DeliveryState string

const (
	DeliveryPending   DeliveryState = "pending"
	DeliveryConfirmed DeliveryState = "confirmed"
	DeliveryFailed    DeliveryState = "failed"
)

var (
	ErrClientIDRequired = errors.New("messages: client id is required")
	ErrDuplicateClient  = errors.New("messages: client id already tracked")
	ErrUnknownClient    = errors.New("messages: client id not tracked")
)

// OutgoingMessage is the local record of an optimistic send.
type OutgoingMessage struct {
	ClientID  string
	SenderID  string
	Body      string
	State     DeliveryState
	Error     string
	TrackedAt time.Time
	// Confirmed holds the stored row once the feed echoes it back.
	Confirmed *dto.Message
}

// OutgoingTracker reconciles optimistic entries against feed events by the
// client correlation id. It is the per-tab send buffer: a consumer of the ws
// stream (internal/infra/ws) holds one per connection and feeds it every
// message event arriving on its subscription. Server handlers never touch it;
// it lives here so client sessions and the send path share one contract.
type OutgoingTracker struct {
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]*OutgoingMessage
	order   []string
}

func NewOutgoingTracker() *OutgoingTracker {
	return &OutgoingTracker{entries: make(map[string]*OutgoingMessage)}
}

// Track registers an optimistic entry in the pending state.
func (t *OutgoingTracker) Track(clientID, senderID, body string) error {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return ErrClientIDRequired
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[clientID]; ok {
		return ErrDuplicateClient
	}
	t.entries[clientID] = &OutgoingMessage{
		ClientID:  clientID,
		SenderID:  senderID,
		Body:      body,
		State:     DeliveryPending,
		TrackedAt: t.now(),
	}
	t.order = append(t.order, clientID)
	return nil
}

// Observe feeds a change event through the tracker. A message INSERT whose
// row carries a tracked client id and the same sender confirms the entry;
// the optimistic copy is replaced by the stored row, never duplicated.
func (t *OutgoingTracker) Observe(ev appfeed.Event) {
	if ev.Table != appfeed.TableMessages || ev.Type != appfeed.Insert {
		return
	}
	var row dto.Message
	if err := ev.DecodeRow(&row); err != nil || row.ClientID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[row.ClientID]
	if !ok || entry.State != DeliveryPending || entry.SenderID != row.SenderID {
		return
	}
	entry.State = DeliveryConfirmed
	entry.Error = ""
	entry.Confirmed = &row
}

// Fail marks a pending entry failed so the UI can offer a retry. Confirmed
// entries are left alone: a late failure report loses to the stored row.
func (t *OutgoingTracker) Fail(clientID string, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[clientID]
	if !ok {
		return ErrUnknownClient
	}
	if entry.State == DeliveryConfirmed {
		return nil
	}
	entry.State = DeliveryFailed
	if cause != nil {
		entry.Error = cause.Error()
	}
	return nil
}

// Forget drops an entry (after the UI removed a failed message or rendered
// a confirmed one from the authoritative list).
func (t *OutgoingTracker) Forget(clientID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[clientID]; !ok {
		return
	}
	delete(t.entries, clientID)
	for i, id := range t.order {
		if id == clientID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Snapshot returns tracked entries in track order.
func (t *OutgoingTracker) Snapshot() []OutgoingMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]OutgoingMessage, 0, len(t.order))
	for _, id := range t.order {
		if entry, ok := t.entries[id]; ok {
			out = append(out, *entry)
		}
	}
	return out
}

func (t *OutgoingTracker) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}
