package typing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"talentsync/internal/domain/typing"
)

func TestIndicatorExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	ind := typing.Indicator{
		ConversationID: "conv-1",
		UserID:         "user-1",
		ExpiresAt:      now.Add(typing.TTL),
	}

	assert.False(t, ind.Expired(now))
	assert.False(t, ind.Expired(now.Add(typing.TTL-time.Millisecond)))
	assert.True(t, ind.Expired(now.Add(typing.TTL)))
	assert.True(t, ind.Expired(now.Add(time.Minute)))
}
