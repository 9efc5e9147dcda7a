package messages_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentsync/internal/app/dto"
	appfeed "talentsync/internal/app/feed"
	"talentsync/internal/app/messages"
)

func messageInsert(t *testing.T, row dto.Message) appfeed.Event {
	t.Helper()
	payload, err := json.Marshal(row)
	require.NoError(t, err)
	return appfeed.Event{
		ID:    "ev-1",
		Table: appfeed.TableMessages,
		Type:  appfeed.Insert,
		Row:   payload,
	}
}

func TestTrack_DuplicateClientID(t *testing.T) {
	tr := messages.NewOutgoingTracker()
	require.NoError(t, tr.Track("c-1", "alice", "hi"))
	assert.ErrorIs(t, tr.Track("c-1", "alice", "hi again"), messages.ErrDuplicateClient)
	assert.ErrorIs(t, tr.Track("  ", "alice", "x"), messages.ErrClientIDRequired)
}

func TestObserve_ConfirmsPendingEntry(t *testing.T) {
	tr := messages.NewOutgoingTracker()
	require.NoError(t, tr.Track("c-1", "alice", "optimistic copy"))

	tr.Observe(messageInsert(t, dto.Message{
		ID:       "m-1",
		SenderID: "alice",
		Body:     "stored copy",
		ClientID: "c-1",
	}))

	snap := tr.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, messages.DeliveryConfirmed, snap[0].State)
	require.NotNil(t, snap[0].Confirmed)
	assert.Equal(t, "m-1", snap[0].Confirmed.ID)
	assert.Equal(t, "stored copy", snap[0].Confirmed.Body, "stored row replaces the optimistic one")
}

func TestObserve_IgnoresForeignSender(t *testing.T) {
	tr := messages.NewOutgoingTracker()
	require.NoError(t, tr.Track("c-1", "alice", "hi"))

	// Same client id but a different sender must not confirm the entry.
	tr.Observe(messageInsert(t, dto.Message{ID: "m-9", SenderID: "bob", ClientID: "c-1"}))

	snap := tr.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, messages.DeliveryPending, snap[0].State)
}

func TestObserve_IgnoresUnrelatedEvents(t *testing.T) {
	tr := messages.NewOutgoingTracker()
	require.NoError(t, tr.Track("c-1", "alice", "hi"))

	tr.Observe(appfeed.Event{Table: appfeed.TableConversations, Type: appfeed.Insert})
	tr.Observe(appfeed.Event{Table: appfeed.TableMessages, Type: appfeed.Update, Row: []byte(`{"client_id":"c-1","sender_id":"alice"}`)})

	snap := tr.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, messages.DeliveryPending, snap[0].State)
}

func TestFail_MarksPendingForRetry(t *testing.T) {
	tr := messages.NewOutgoingTracker()
	require.NoError(t, tr.Track("c-1", "alice", "hi"))

	require.NoError(t, tr.Fail("c-1", errors.New("store unavailable")))
	snap := tr.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, messages.DeliveryFailed, snap[0].State)
	assert.Equal(t, "store unavailable", snap[0].Error)

	assert.ErrorIs(t, tr.Fail("unknown", nil), messages.ErrUnknownClient)
}

func TestFail_LosesToLateConfirmation(t *testing.T) {
	tr := messages.NewOutgoingTracker()
	require.NoError(t, tr.Track("c-1", "alice", "hi"))

	tr.Observe(messageInsert(t, dto.Message{ID: "m-1", SenderID: "alice", ClientID: "c-1"}))
	require.NoError(t, tr.Fail("c-1", errors.New("timeout")))

	snap := tr.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, messages.DeliveryConfirmed, snap[0].State, "a confirmed entry is never demoted")
}

func TestSnapshot_KeepsTrackOrder(t *testing.T) {
	tr := messages.NewOutgoingTracker()
	require.NoError(t, tr.Track("c-1", "alice", "first"))
	require.NoError(t, tr.Track("c-2", "alice", "second"))
	require.NoError(t, tr.Track("c-3", "alice", "third"))

	tr.Forget("c-2")

	snap := tr.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "c-1", snap[0].ClientID)
	assert.Equal(t, "c-3", snap[1].ClientID)
}
