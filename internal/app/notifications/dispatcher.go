// Package notifications creates notification rows and fans them out.
//
// The stored row is the source of truth. Channel delivery (in-app feed push,
// mobile push, email) is layered on top and is strictly best effort: a
// notification whose fan-out fails in every channel is still a success as
// long as the row was written.
package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"talentsync/internal/app/dto"
	appfeed "talentsync/internal/app/feed"
	appoutbox "talentsync/internal/app/outbox"
	domainnotif "talentsync/internal/domain/notification"
	"talentsync/internal/domain/shared/events"
	domainuser "talentsync/internal/domain/user"
)

var ErrRepositoryRequired = errors.New("notifications: repository required")

type Dispatcher struct {
	Notifications domainnotif.Repository
	Preferences   domainnotif.PreferenceStore
	Feed          appfeed.Bus
	Outbox        appoutbox.Outbox
	Encoder       appoutbox.EventEncoder
	Logger        *slog.Logger
	Now           func() time.Time
}

type DispatchParams struct {
	UserID    domainuser.ID
	Type      string
	Title     string
	Message   string
	ActionURL string
	Data      map[string]string
}

// Dispatch persists the notification, then fans out over every channel the
// type has enabled. The returned notification reflects the stored row even
// when parts of the fan-out failed.
func (d *Dispatcher) Dispatch(ctx context.Context, params DispatchParams) (*domainnotif.Notification, error) {
	if d.Notifications == nil {
		return nil, ErrRepositoryRequired
	}
	now := d.now()
	n, err := domainnotif.New(domainnotif.CreateParams{
		ID:        domainnotif.ID(uuid.NewString()),
		UserID:    params.UserID,
		Type:      params.Type,
		Title:     params.Title,
		Message:   params.Message,
		ActionURL: params.ActionURL,
		Data:      params.Data,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}
	if err := d.Notifications.Save(ctx, n); err != nil {
		return nil, err
	}

	channels := d.enabledChannels(ctx, n.Type)
	for _, ch := range channels {
		switch ch {
		case domainnotif.ChannelInApp:
			d.publishRow(ctx, n, appfeed.Insert)
		default:
			d.requestDelivery(ctx, n, ch, now)
		}
	}
	d.recordEvent(ctx, domainnotif.Created{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           n.Type,
		Title:          n.Title,
		Channels:       channels,
		At:             now,
	})

	n.MarkProcessed()
	if err := d.Notifications.Save(ctx, n); err != nil && d.Logger != nil {
		d.Logger.Warn("notification mark processed failed", "notification_id", n.ID, "error", err)
	}
	return n, nil
}

// ListForUser returns the user's notifications, newest first.
func (d *Dispatcher) ListForUser(ctx context.Context, userID domainuser.ID) ([]*domainnotif.Notification, error) {
	if d.Notifications == nil {
		return nil, ErrRepositoryRequired
	}
	list, err := d.Notifications.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// MarkRead flips the row to read. Only the recipient may read it, and a
// second read reports domainnotif.ErrAlreadyRead.
func (d *Dispatcher) MarkRead(ctx context.Context, id domainnotif.ID, userID domainuser.ID) (*domainnotif.Notification, error) {
	if d.Notifications == nil {
		return nil, ErrRepositoryRequired
	}
	n, err := d.Notifications.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, domainnotif.ErrNotFound
	}
	if err := n.MarkRead(d.now()); err != nil {
		return nil, err
	}
	if err := d.Notifications.Save(ctx, n); err != nil {
		return nil, err
	}
	d.publishRow(ctx, n, appfeed.Update)
	return n, nil
}

func (d *Dispatcher) enabledChannels(ctx context.Context, kind string) []domainnotif.Channel {
	var enabled []domainnotif.Channel
	for _, ch := range domainnotif.AllChannels {
		if d.Preferences == nil {
			enabled = append(enabled, ch)
			continue
		}
		ok, err := d.Preferences.Enabled(ctx, kind, ch)
		if err != nil {
			// Gating lookup failure falls back to delivering: dropping a
			// notification is worse than a duplicate channel.
			if d.Logger != nil {
				d.Logger.Warn("preference lookup failed", "type", kind, "channel", ch, "error", err)
			}
			ok = true
		}
		if ok {
			enabled = append(enabled, ch)
		}
	}
	return enabled
}

func (d *Dispatcher) publishRow(ctx context.Context, n *domainnotif.Notification, kind appfeed.EventType) {
	if d.Feed == nil {
		return
	}
	ev := appfeed.Event{
		ID:         uuid.NewString(),
		Table:      appfeed.TableNotifications,
		Type:       kind,
		Recipients: []string{string(n.UserID)},
		Row:        appfeed.MarshalRow(dto.MapNotification(n)),
		OccurredAt: d.now(),
	}
	if err := d.Feed.Publish(ctx, ev); err != nil && d.Logger != nil {
		d.Logger.Warn("notification feed publish failed", "notification_id", n.ID, "error", err)
	}
}

func (d *Dispatcher) requestDelivery(ctx context.Context, n *domainnotif.Notification, ch domainnotif.Channel, now time.Time) {
	d.recordEvent(ctx, domainnotif.DeliveryRequested{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Channel:        ch,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		ActionURL:      n.ActionURL,
		At:             now,
	})
}

func (d *Dispatcher) recordEvent(ctx context.Context, ev events.DomainEvent) {
	if d.Outbox == nil {
		return
	}
	if err := appoutbox.RecordDomainEvents(ctx, d.Outbox, d.Encoder, []events.DomainEvent{ev}); err != nil && d.Logger != nil {
		d.Logger.Warn("outbox record failed", "event", ev.EventName(), "error", err)
	}
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}
