package notification_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentsync/internal/domain/notification"
)

func TestNew_Validation(t *testing.T) {
	_, err := notification.New(notification.CreateParams{UserID: "u", Type: "t", Title: "x"})
	assert.ErrorIs(t, err, notification.ErrIDRequired)

	_, err = notification.New(notification.CreateParams{ID: "n", Type: "t", Title: "x"})
	assert.ErrorIs(t, err, notification.ErrUserRequired)

	_, err = notification.New(notification.CreateParams{ID: "n", UserID: "u", Title: "x"})
	assert.ErrorIs(t, err, notification.ErrTypeRequired)

	_, err = notification.New(notification.CreateParams{ID: "n", UserID: "u", Type: "t", Title: "  "})
	assert.ErrorIs(t, err, notification.ErrTitleRequired)
}

func TestMarkRead_IsTerminal(t *testing.T) {
	n, err := notification.New(notification.CreateParams{
		ID:     "n-1",
		UserID: "u-1",
		Type:   "message.received",
		Title:  "New message",
	})
	require.NoError(t, err)
	require.False(t, n.Read)

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, n.MarkRead(at))
	assert.True(t, n.Read)
	assert.Equal(t, at, n.ReadAt)

	assert.ErrorIs(t, n.MarkRead(at.Add(time.Minute)), notification.ErrAlreadyRead)
	assert.Equal(t, at, n.ReadAt, "read timestamp is immutable once set")
}

func TestNew_CopiesData(t *testing.T) {
	data := map[string]string{"conversation_id": "c-1"}
	n, err := notification.New(notification.CreateParams{
		ID:     "n-1",
		UserID: "u-1",
		Type:   "message.received",
		Title:  "New message",
		Data:   data,
	})
	require.NoError(t, err)

	data["conversation_id"] = "mutated"
	assert.Equal(t, "c-1", n.Data["conversation_id"])
}

func TestParseChannel(t *testing.T) {
	ch, ok := notification.ParseChannel(" Push ")
	require.True(t, ok)
	assert.Equal(t, notification.ChannelPush, ch)

	_, ok = notification.ParseChannel("pager")
	assert.False(t, ok)
}
