package notifications_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfeed "talentsync/internal/app/feed"
	"talentsync/internal/app/notifications"
	appoutbox "talentsync/internal/app/outbox"
	domainnotif "talentsync/internal/domain/notification"
	"talentsync/internal/infra/storage/memory"
)

// failingBus rejects every publish so fan-out failures are reproducible.
type failingBus struct{}

func (failingBus) Publish(context.Context, appfeed.Event) error {
	return errors.New("bus unavailable")
}

func (failingBus) Subscribe(appfeed.Filter) *appfeed.Subscription {
	return appfeed.NewSubscription(nil, nil)
}

type dispatcherFixture struct {
	dispatcher *notifications.Dispatcher
	prefs      *memory.PreferenceStore
	outbox     *memory.Outbox
	bus        *memory.FeedBus
}

func newDispatcher(t *testing.T) *dispatcherFixture {
	t.Helper()
	fx := &dispatcherFixture{
		prefs:  memory.NewPreferenceStore(),
		outbox: memory.NewOutbox(),
		bus:    memory.NewFeedBus(),
	}
	fx.dispatcher = &notifications.Dispatcher{
		Notifications: memory.NewNotificationRepository(),
		Preferences:   fx.prefs,
		Feed:          fx.bus,
		Outbox:        fx.outbox,
		Encoder:       appoutbox.JSONEventEncoder{},
		Now:           func() time.Time { return time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC) },
	}
	return fx
}

func deliveryEvents(records []appoutbox.EventRecord) []string {
	var out []string
	for _, rec := range records {
		if strings.HasPrefix(rec.Name, "notification.delivery_requested.") {
			out = append(out, rec.Name)
		}
	}
	return out
}

func TestDispatch_FansOutOverAllChannels(t *testing.T) {
	fx := newDispatcher(t)
	ctx := context.Background()

	sub := fx.bus.Subscribe(appfeed.Filter{Tables: []string{appfeed.TableNotifications}, UserID: "u-1"})
	defer sub.Close()

	n, err := fx.dispatcher.Dispatch(ctx, notifications.DispatchParams{
		UserID:  "u-1",
		Type:    "message.received",
		Title:   "New message",
		Message: "Alice: hello",
	})
	require.NoError(t, err)
	assert.True(t, n.Processed)

	assert.Len(t, sub.C, 1, "in_app goes to the live feed")
	assert.ElementsMatch(t, []string{
		"notification.delivery_requested.push",
		"notification.delivery_requested.email",
	}, deliveryEvents(fx.outbox.Records()))
}

func TestDispatch_SkipsDisabledChannels(t *testing.T) {
	fx := newDispatcher(t)
	ctx := context.Background()
	require.NoError(t, fx.prefs.Set(ctx, domainnotif.ChannelPreference{
		Type:    "message.received",
		Channel: domainnotif.ChannelEmail,
		Enabled: false,
	}))

	_, err := fx.dispatcher.Dispatch(ctx, notifications.DispatchParams{
		UserID: "u-1",
		Type:   "message.received",
		Title:  "New message",
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"notification.delivery_requested.push",
	}, deliveryEvents(fx.outbox.Records()), "disabled channels are skipped silently")
}

func TestDispatch_SurvivesFeedFailure(t *testing.T) {
	fx := newDispatcher(t)
	fx.dispatcher.Feed = failingBus{}
	ctx := context.Background()

	n, err := fx.dispatcher.Dispatch(ctx, notifications.DispatchParams{
		UserID: "u-1",
		Type:   "message.received",
		Title:  "New message",
	})
	require.NoError(t, err, "the stored row is the source of truth, fan-out is best effort")

	list, err := fx.dispatcher.ListForUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, n.ID, list[0].ID)
}

func TestDispatch_ValidationFailsBeforeStorage(t *testing.T) {
	fx := newDispatcher(t)
	_, err := fx.dispatcher.Dispatch(context.Background(), notifications.DispatchParams{
		UserID: "u-1",
		Type:   "message.received",
	})
	assert.ErrorIs(t, err, domainnotif.ErrTitleRequired)

	list, err := fx.dispatcher.ListForUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListForUser_NewestFirst(t *testing.T) {
	fx := newDispatcher(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	for i, title := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Minute)
		fx.dispatcher.Now = func() time.Time { return at }
		_, err := fx.dispatcher.Dispatch(ctx, notifications.DispatchParams{
			UserID: "u-1",
			Type:   "message.received",
			Title:  title,
		})
		require.NoError(t, err)
	}

	list, err := fx.dispatcher.ListForUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Title)
	assert.Equal(t, "first", list[2].Title)
}

func TestMarkRead(t *testing.T) {
	fx := newDispatcher(t)
	ctx := context.Background()

	n, err := fx.dispatcher.Dispatch(ctx, notifications.DispatchParams{
		UserID: "u-1",
		Type:   "message.received",
		Title:  "New message",
	})
	require.NoError(t, err)

	read, err := fx.dispatcher.MarkRead(ctx, n.ID, "u-1")
	require.NoError(t, err)
	assert.True(t, read.Read)

	_, err = fx.dispatcher.MarkRead(ctx, n.ID, "u-1")
	assert.ErrorIs(t, err, domainnotif.ErrAlreadyRead)
}

func TestMarkRead_WrongRecipientSeesNotFound(t *testing.T) {
	fx := newDispatcher(t)
	ctx := context.Background()

	n, err := fx.dispatcher.Dispatch(ctx, notifications.DispatchParams{
		UserID: "u-1",
		Type:   "message.received",
		Title:  "New message",
	})
	require.NoError(t, err)

	_, err = fx.dispatcher.MarkRead(ctx, n.ID, "u-2")
	assert.ErrorIs(t, err, domainnotif.ErrNotFound, "foreign notifications are indistinguishable from missing ones")
}
