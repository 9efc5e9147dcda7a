package feed_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"talentsync/internal/app/feed"
)

func TestFilterMatches(t *testing.T) {
	ev := feed.Event{
		ID:         "ev-1",
		Table:      feed.TableMessages,
		Type:       feed.Insert,
		Recipients: []string{"alice", "bob"},
	}

	cases := []struct {
		name   string
		filter feed.Filter
		want   bool
	}{
		{"empty filter sees everything", feed.Filter{}, true},
		{"table match", feed.Filter{Tables: []string{feed.TableMessages}}, true},
		{"table mismatch", feed.Filter{Tables: []string{feed.TableProfiles}}, false},
		{"listed recipient", feed.Filter{UserID: "alice"}, true},
		{"unlisted recipient", feed.Filter{UserID: "mallory"}, false},
		{"table and recipient", feed.Filter{Tables: []string{feed.TableMessages}, UserID: "bob"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Matches(ev))
		})
	}
}

func TestFilterMatches_BroadcastEvent(t *testing.T) {
	// No recipient list means any subscriber of the table may see it,
	// including user-scoped ones.
	ev := feed.Event{Table: feed.TableConversations, Type: feed.Update}
	assert.True(t, feed.Filter{UserID: "anyone"}.Matches(ev))
}

func TestDecodeRow(t *testing.T) {
	ev := feed.Event{Row: []byte(`{"id":"conv-9"}`)}
	var row struct {
		ID string `json:"id"`
	}
	assert.NoError(t, ev.DecodeRow(&row))
	assert.Equal(t, "conv-9", row.ID)
}
