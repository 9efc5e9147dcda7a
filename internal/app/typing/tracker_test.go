package typing_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentsync/internal/app/dto"
	appfeed "talentsync/internal/app/feed"
	apptyping "talentsync/internal/app/typing"
)

func typingEvent(t *testing.T, kind appfeed.EventType, convID, userID string) appfeed.Event {
	t.Helper()
	payload, err := json.Marshal(dto.TypingIndicator{ConversationID: convID, UserID: userID})
	require.NoError(t, err)
	return appfeed.Event{Table: appfeed.TableTyping, Type: kind, Row: payload}
}

func TestTracker_ObserveAndDelete(t *testing.T) {
	tr := &apptyping.PeerTracker{Viewer: "me", Timeout: time.Minute}

	tr.Observe(typingEvent(t, appfeed.Insert, "conv-1", "alice"))
	tr.Observe(typingEvent(t, appfeed.Insert, "conv-1", "bob"))
	tr.Observe(typingEvent(t, appfeed.Insert, "conv-2", "carol"))

	assert.ElementsMatch(t, []string{"alice", "bob"}, tr.Typing("conv-1"))
	assert.ElementsMatch(t, []string{"carol"}, tr.Typing("conv-2"))

	tr.Observe(typingEvent(t, appfeed.Delete, "conv-1", "alice"))
	assert.ElementsMatch(t, []string{"bob"}, tr.Typing("conv-1"))
}

func TestTracker_IgnoresOwnIndicator(t *testing.T) {
	tr := &apptyping.PeerTracker{Viewer: "me", Timeout: time.Minute}
	tr.Observe(typingEvent(t, appfeed.Insert, "conv-1", "me"))
	assert.Empty(t, tr.Typing("conv-1"))
}

func TestTracker_FallbackExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC)
	tr := &apptyping.PeerTracker{
		Viewer:  "me",
		Timeout: 5 * time.Second,
		Now:     func() time.Time { return now },
	}

	tr.Observe(typingEvent(t, appfeed.Insert, "conv-1", "alice"))
	assert.ElementsMatch(t, []string{"alice"}, tr.Typing("conv-1"))

	// The delete event never arrives; the local timeout clears the entry.
	now = now.Add(5*time.Second + time.Millisecond)
	assert.Empty(t, tr.Typing("conv-1"))
}

func TestTracker_RefreshExtendsExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC)
	tr := &apptyping.PeerTracker{
		Viewer:  "me",
		Timeout: 5 * time.Second,
		Now:     func() time.Time { return now },
	}

	tr.Observe(typingEvent(t, appfeed.Insert, "conv-1", "alice"))
	now = now.Add(4 * time.Second)
	tr.Observe(typingEvent(t, appfeed.Update, "conv-1", "alice"))

	now = now.Add(4 * time.Second)
	assert.ElementsMatch(t, []string{"alice"}, tr.Typing("conv-1"), "a refresh restarts the fallback clock")
}

func TestTracker_IgnoresOtherTables(t *testing.T) {
	tr := &apptyping.PeerTracker{Viewer: "me", Timeout: time.Minute}
	tr.Observe(appfeed.Event{Table: appfeed.TableMessages, Type: appfeed.Insert, Row: []byte(`{"user_id":"alice","conversation_id":"conv-1"}`)})
	assert.Empty(t, tr.Typing("conv-1"))
}
