package conversations_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentsync/internal/app/conversations"
	appfeed "talentsync/internal/app/feed"
	domainconv "talentsync/internal/domain/conversation"
	"talentsync/internal/infra/storage/memory"
)

func newService(t *testing.T) (*conversations.Service, *memory.FeedBus) {
	t.Helper()
	bus := memory.NewFeedBus()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &conversations.Service{
		Conversations: memory.NewConversationRepository(),
		Feed:          bus,
		Outbox:        memory.NewOutbox(),
		Now:           func() time.Time { return now },
	}, bus
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	params := conversations.CreateParams{
		BusinessID: "biz-1",
		TalentID:   "tal-1",
		Relation:   domainconv.RelationOpportunity,
		RelationID: "opp-1",
	}

	first, err := svc.GetOrCreate(ctx, params)
	require.NoError(t, err)

	second, err := svc.GetOrCreate(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A different relation gets its own thread even for the same pair.
	other, err := svc.GetOrCreate(ctx, conversations.CreateParams{
		BusinessID: "biz-1",
		TalentID:   "tal-1",
		Relation:   domainconv.RelationService,
		RelationID: "svc-1",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestListForUser_OrdersByLastActivity(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	older, err := svc.GetOrCreate(ctx, conversations.CreateParams{BusinessID: "biz-1", TalentID: "tal-1"})
	require.NoError(t, err)
	newer, err := svc.GetOrCreate(ctx, conversations.CreateParams{BusinessID: "biz-1", TalentID: "tal-2"})
	require.NoError(t, err)
	empty, err := svc.GetOrCreate(ctx, conversations.CreateParams{BusinessID: "biz-1", TalentID: "tal-3"})
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	_, err = svc.ApplyMessage(ctx, older.ID, "tal-1", "hi", base)
	require.NoError(t, err)
	_, err = svc.ApplyMessage(ctx, newer.ID, "tal-2", "hello", base.Add(time.Hour))
	require.NoError(t, err)

	list, err := svc.ListForUser(ctx, "biz-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
	assert.Equal(t, empty.ID, list[2].ID, "threads with no messages sort last")
}

func TestGet_RejectsNonParticipant(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	conv, err := svc.GetOrCreate(ctx, conversations.CreateParams{BusinessID: "biz-1", TalentID: "tal-1"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, conv.ID, "stranger")
	assert.ErrorIs(t, err, domainconv.ErrNotParticipant)
}

func TestMarkRead_PersistsAndPublishes(t *testing.T) {
	svc, bus := newService(t)
	ctx := context.Background()

	conv, err := svc.GetOrCreate(ctx, conversations.CreateParams{BusinessID: "biz-1", TalentID: "tal-1"})
	require.NoError(t, err)
	_, err = svc.ApplyMessage(ctx, conv.ID, "tal-1", "ping", time.Now())
	require.NoError(t, err)

	sub := bus.Subscribe(appfeed.Filter{Tables: []string{appfeed.TableConversations}, UserID: "biz-1"})
	defer sub.Close()

	updated, err := svc.MarkRead(ctx, conv.ID, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Unread("biz-1"))

	select {
	case ev := <-sub.C:
		assert.Equal(t, appfeed.Update, ev.Type)
		var row struct {
			ID string `json:"id"`
		}
		require.NoError(t, ev.DecodeRow(&row))
		assert.Equal(t, string(conv.ID), row.ID, "feed carries a thin row, clients re-fetch")
	default:
		t.Fatal("expected a conversation update on the feed")
	}

	stored, err := svc.Get(ctx, conv.ID, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Unread("biz-1"))
}

func TestMarkUnread_SetsSentinel(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	conv, err := svc.GetOrCreate(ctx, conversations.CreateParams{BusinessID: "biz-1", TalentID: "tal-1"})
	require.NoError(t, err)

	updated, err := svc.MarkUnread(ctx, conv.ID, "tal-1")
	require.NoError(t, err)
	assert.Equal(t, domainconv.UnreadSentinel, updated.Unread("tal-1"))
}

func TestApplyMessage_TargetsBothParticipants(t *testing.T) {
	svc, bus := newService(t)
	ctx := context.Background()

	conv, err := svc.GetOrCreate(ctx, conversations.CreateParams{BusinessID: "biz-1", TalentID: "tal-1"})
	require.NoError(t, err)

	outsider := bus.Subscribe(appfeed.Filter{Tables: []string{appfeed.TableConversations}, UserID: "stranger"})
	defer outsider.Close()
	peer := bus.Subscribe(appfeed.Filter{Tables: []string{appfeed.TableConversations}, UserID: "tal-1"})
	defer peer.Close()

	_, err = svc.ApplyMessage(ctx, conv.ID, "biz-1", "hi", time.Now())
	require.NoError(t, err)

	assert.Len(t, peer.C, 1)
	assert.Len(t, outsider.C, 0, "events are scoped to participants")
}
