package typing

import (
	"sync"
	"time"

	"talentsync/internal/app/dto"
	appfeed "talentsync/internal/app/feed"
	domaintyping "talentsync/internal/domain/typing"
)

// PeerTracker keeps the set of peers currently typing, as seen from one
// viewer. A consumer of the ws stream (internal/infra/ws) holds one per
// connection and folds its subscription's typing events into it; the HTTP
// Active endpoint reads the store directly and never uses this type. Entries
// expire on a local fallback timeout so a lost delete event cannot leave an
// indicator stuck on screen. The viewer's own indicators are ignored.
type PeerTracker struct {
	Viewer  string
	Now     func() time.Time
	Timeout time.Duration

	mu      sync.Mutex
	entries map[string]peerEntry
}

type peerEntry struct {
	conversationID string
	userID         string
	expiresAt      time.Time
}

// Observe folds a change-feed event into the tracked set.
func (t *PeerTracker) Observe(ev appfeed.Event) {
	if ev.Table != appfeed.TableTyping {
		return
	}
	var ind dto.TypingIndicator
	if err := ev.DecodeRow(&ind); err != nil {
		return
	}
	if ind.UserID == "" || ind.UserID == t.Viewer {
		return
	}
	key := ind.ConversationID + ":" + ind.UserID
	t.mu.Lock()
	defer t.mu.Unlock()
	switch ev.Type {
	case appfeed.Insert, appfeed.Update:
		if t.entries == nil {
			t.entries = make(map[string]peerEntry)
		}
		t.entries[key] = peerEntry{
			conversationID: ind.ConversationID,
			userID:         ind.UserID,
			expiresAt:      t.now().Add(t.timeout()),
		}
	case appfeed.Delete:
		delete(t.entries, key)
	}
}

// Typing reports the peers still typing in a conversation, pruning entries
// past the fallback timeout.
func (t *PeerTracker) Typing(conversationID string) []string {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	var users []string
	for key, entry := range t.entries {
		if !entry.expiresAt.After(now) {
			delete(t.entries, key)
			continue
		}
		if entry.conversationID == conversationID {
			users = append(users, entry.userID)
		}
	}
	return users
}

func (t *PeerTracker) timeout() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return domaintyping.TTL
}

func (t *PeerTracker) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}
