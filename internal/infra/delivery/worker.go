package delivery

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	domainnotif "talentsync/internal/domain/notification"
)

// Inbox deduplicates broker deliveries per consumer.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// Worker consumes delivery_requested events off the notification topic and
// hands each one to the gateway for its channel. Gateway failures are logged
// and the message is acknowledged anyway: channel delivery is best effort and
// the in-app row already exists.
type Worker struct {
	Gateways map[domainnotif.Channel]Gateway
	Inbox    Inbox
	Logger   *slog.Logger
}

type envelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		NotificationID string `json:"NotificationID"`
		UserID         string `json:"UserID"`
		Channel        string `json:"Channel"`
		Type           string `json:"Type"`
		Title          string `json:"Title"`
		Message        string `json:"Message"`
		ActionURL      string `json:"ActionURL"`
	} `json:"data"`
}

func (w *Worker) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		if w.Logger != nil {
			w.Logger.Warn("delivery envelope decode failed", "topic", msg.Topic, "error", err)
		}
		return nil
	}
	if !strings.HasPrefix(env.Type, "notification.delivery_requested.") {
		return nil
	}
	if w.Inbox != nil && env.ID != "" {
		seen, err := w.Inbox.Seen(ctx, env.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	channel, ok := domainnotif.ParseChannel(env.Data.Channel)
	if !ok {
		if w.Logger != nil {
			w.Logger.Warn("delivery for unknown channel", "channel", env.Data.Channel, "notification_id", env.Data.NotificationID)
		}
		return nil
	}
	gateway, ok := w.Gateways[channel]
	if !ok {
		return nil
	}
	payload := Payload{
		NotificationID: env.Data.NotificationID,
		UserID:         env.Data.UserID,
		Type:           env.Data.Type,
		Title:          env.Data.Title,
		Message:        env.Data.Message,
		ActionURL:      env.Data.ActionURL,
	}
	if err := gateway.Deliver(ctx, payload); err != nil && w.Logger != nil {
		w.Logger.Warn("channel delivery failed",
			"channel", channel,
			"notification_id", payload.NotificationID,
			"error", err,
		)
	}
	return nil
}
