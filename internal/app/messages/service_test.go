package messages_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentsync/internal/app/conversations"
	"talentsync/internal/app/dto"
	appfeed "talentsync/internal/app/feed"
	"talentsync/internal/app/messages"
	domainconv "talentsync/internal/domain/conversation"
	domainmsg "talentsync/internal/domain/message"
	"talentsync/internal/infra/storage/memory"
)

type fixture struct {
	svc  *messages.Service
	conv *domainconv.Conversation
	bus  *memory.FeedBus
	now  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := memory.NewFeedBus()
	now := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	convSvc := &conversations.Service{
		Conversations: memory.NewConversationRepository(),
		Feed:          bus,
		Now:           clock,
	}
	conv, err := convSvc.GetOrCreate(context.Background(), conversations.CreateParams{
		BusinessID: "biz-1",
		TalentID:   "tal-1",
	})
	require.NoError(t, err)

	return &fixture{
		svc: &messages.Service{
			Messages:      memory.NewMessageStore(),
			Conversations: convSvc,
			Idempotency:   memory.NewIdempotencyStore(),
			Feed:          bus,
			Outbox:        memory.NewOutbox(),
			Now:           clock,
		},
		conv: conv,
		bus:  bus,
		now:  now,
	}
}

func TestSend_StoresAndBumpsConversation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	msg, err := fx.svc.Send(ctx, messages.SendParams{
		ConversationID: fx.conv.ID,
		SenderID:       "biz-1",
		Body:           "  hello there  ",
		ClientID:       "client-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", msg.Body)
	assert.Equal(t, "client-1", msg.ClientID)

	conv, err := fx.svc.Conversations.Get(ctx, fx.conv.ID, "tal-1")
	require.NoError(t, err)
	assert.Equal(t, 1, conv.Unread("tal-1"))
	assert.Equal(t, "hello there", conv.LastText)
}

func TestSend_EmptyBodyNeverReachesStore(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Send(ctx, messages.SendParams{
		ConversationID: fx.conv.ID,
		SenderID:       "biz-1",
		Body:           "   ",
	})
	assert.ErrorIs(t, err, domainmsg.ErrEmptyBody)

	list, err := fx.svc.Load(ctx, fx.conv.ID, "biz-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSend_RetryWithSameClientIDReturnsOriginal(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	params := messages.SendParams{
		ConversationID: fx.conv.ID,
		SenderID:       "biz-1",
		Body:           "only once",
		ClientID:       "client-retry",
	}

	first, err := fx.svc.Send(ctx, params)
	require.NoError(t, err)
	second, err := fx.svc.Send(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	list, err := fx.svc.Load(ctx, fx.conv.ID, "biz-1")
	require.NoError(t, err)
	assert.Len(t, list, 1, "retried send must not duplicate the row")
}

func TestSend_EchoesClientIDOnFeed(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	sub := fx.bus.Subscribe(appfeed.Filter{Tables: []string{appfeed.TableMessages}, UserID: "tal-1"})
	defer sub.Close()

	_, err := fx.svc.Send(ctx, messages.SendParams{
		ConversationID: fx.conv.ID,
		SenderID:       "biz-1",
		Body:           "watch the feed",
		ClientID:       "client-echo",
	})
	require.NoError(t, err)

	select {
	case ev := <-sub.C:
		require.Equal(t, appfeed.Insert, ev.Type)
		var row dto.Message
		require.NoError(t, ev.DecodeRow(&row))
		assert.Equal(t, "client-echo", row.ClientID)
	default:
		t.Fatal("expected a message insert on the feed")
	}
}

func TestLoad_IsStableAcrossCalls(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for _, body := range []string{"one", "two", "three"} {
		_, err := fx.svc.Send(ctx, messages.SendParams{
			ConversationID: fx.conv.ID,
			SenderID:       "biz-1",
			Body:           body,
		})
		require.NoError(t, err)
	}

	first, err := fx.svc.Load(ctx, fx.conv.ID, "tal-1")
	require.NoError(t, err)
	second, err := fx.svc.Load(ctx, fx.conv.ID, "tal-1")
	require.NoError(t, err)

	require.Len(t, first, 3)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestEdit_OnlyInsideWindow(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	msg, err := fx.svc.Send(ctx, messages.SendParams{
		ConversationID: fx.conv.ID,
		SenderID:       "biz-1",
		Body:           "tpyo",
	})
	require.NoError(t, err)

	fx.svc.Now = func() time.Time { return fx.now.Add(5 * time.Minute) }
	edited, err := fx.svc.Edit(ctx, messages.EditParams{
		ConversationID: fx.conv.ID,
		MessageID:      msg.ID,
		UserID:         "biz-1",
		Body:           "typo",
	})
	require.NoError(t, err)
	assert.Equal(t, "typo", edited.Body)
	assert.Equal(t, msg.CreatedAt, edited.CreatedAt)

	fx.svc.Now = func() time.Time { return fx.now.Add(domainmsg.EditWindow + time.Minute) }
	_, err = fx.svc.Edit(ctx, messages.EditParams{
		ConversationID: fx.conv.ID,
		MessageID:      msg.ID,
		UserID:         "biz-1",
		Body:           "too late",
	})
	assert.ErrorIs(t, err, domainmsg.ErrEditWindowClosed)
}

func TestRemove_TombstoneKeepsSlot(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	first, err := fx.svc.Send(ctx, messages.SendParams{ConversationID: fx.conv.ID, SenderID: "biz-1", Body: "a"})
	require.NoError(t, err)
	_, err = fx.svc.Send(ctx, messages.SendParams{ConversationID: fx.conv.ID, SenderID: "tal-1", Body: "b"})
	require.NoError(t, err)

	require.NoError(t, fx.svc.Remove(ctx, fx.conv.ID, first.ID, "biz-1"))

	list, err := fx.svc.Load(ctx, fx.conv.ID, "biz-1")
	require.NoError(t, err)
	require.Len(t, list, 2, "deleted slot stays in the stream")
	assert.True(t, list[0].Deleted)
	assert.Empty(t, list[0].Body)
}

func TestRemove_OnlySender(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	msg, err := fx.svc.Send(ctx, messages.SendParams{ConversationID: fx.conv.ID, SenderID: "biz-1", Body: "mine"})
	require.NoError(t, err)

	err = fx.svc.Remove(ctx, fx.conv.ID, msg.ID, "tal-1")
	assert.ErrorIs(t, err, domainmsg.ErrNotSender)
}

// brittleConversationRepo fails Save on demand so the snapshot update path
// can be broken independently of the message store.
type brittleConversationRepo struct {
	domainconv.Repository
	failSaves bool
}

func (r *brittleConversationRepo) Save(ctx context.Context, conv *domainconv.Conversation) error {
	if r.failSaves {
		return errors.New("write timeout")
	}
	return r.Repository.Save(ctx, conv)
}

func TestSend_SnapshotFailureRecordsStaleEvent(t *testing.T) {
	ctx := context.Background()
	bus := memory.NewFeedBus()
	now := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	repo := &brittleConversationRepo{Repository: memory.NewConversationRepository()}
	convSvc := &conversations.Service{Conversations: repo, Feed: bus, Now: clock}
	conv, err := convSvc.GetOrCreate(ctx, conversations.CreateParams{
		BusinessID: "biz-1",
		TalentID:   "tal-1",
	})
	require.NoError(t, err)

	box := memory.NewOutbox()
	svc := &messages.Service{
		Messages:      memory.NewMessageStore(),
		Conversations: convSvc,
		Feed:          bus,
		Outbox:        box,
		Now:           clock,
	}

	repo.failSaves = true
	msg, err := svc.Send(ctx, messages.SendParams{
		ConversationID: conv.ID,
		SenderID:       "biz-1",
		Body:           "landed anyway",
	})
	require.NoError(t, err, "a stored row is a successful send")

	list, err := svc.Messages.ListByConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, msg.ID, list[0].ID)

	var staleAggregates []string
	for _, rec := range box.Records() {
		if rec.Name == "conversation.snapshot_stale" {
			staleAggregates = append(staleAggregates, rec.Aggregate)
		}
	}
	assert.Equal(t, []string{string(conv.ID)}, staleAggregates,
		"missed unread increment must leave a repairable trace")
}
