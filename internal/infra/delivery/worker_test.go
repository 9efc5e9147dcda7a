package delivery_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainnotif "talentsync/internal/domain/notification"
	"talentsync/internal/infra/delivery"
)

type recordingGateway struct {
	payloads []delivery.Payload
	err      error
}

func (g *recordingGateway) Deliver(_ context.Context, payload delivery.Payload) error {
	g.payloads = append(g.payloads, payload)
	return g.err
}

type memoryInbox struct {
	seen map[string]bool
}

func (i *memoryInbox) Seen(_ context.Context, eventID string) (bool, error) {
	if i.seen == nil {
		i.seen = make(map[string]bool)
	}
	if i.seen[eventID] {
		return true, nil
	}
	i.seen[eventID] = true
	return false, nil
}

func deliveryMessage(t *testing.T, id, channel string) *sarama.ConsumerMessage {
	t.Helper()
	value, err := json.Marshal(map[string]any{
		"specversion": "1.0",
		"id":          id,
		"type":        "notification.delivery_requested." + channel + ".v1",
		"source":      "app://talentsync",
		"data": map[string]string{
			"NotificationID": "n-1",
			"UserID":         "u-1",
			"Channel":        channel,
			"Type":           "message.received",
			"Title":          "New message",
			"Message":        "Alice: hello",
		},
	})
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "notification.events.v1", Value: value}
}

func TestHandle_RoutesToChannelGateway(t *testing.T) {
	push := &recordingGateway{}
	email := &recordingGateway{}
	w := &delivery.Worker{
		Gateways: map[domainnotif.Channel]delivery.Gateway{
			domainnotif.ChannelPush:  push,
			domainnotif.ChannelEmail: email,
		},
	}

	require.NoError(t, w.Handle(context.Background(), deliveryMessage(t, "ev-1", "push")))

	require.Len(t, push.payloads, 1)
	assert.Empty(t, email.payloads)
	assert.Equal(t, "n-1", push.payloads[0].NotificationID)
	assert.Equal(t, "New message", push.payloads[0].Title)
}

func TestHandle_DeduplicatesByEventID(t *testing.T) {
	push := &recordingGateway{}
	w := &delivery.Worker{
		Gateways: map[domainnotif.Channel]delivery.Gateway{domainnotif.ChannelPush: push},
		Inbox:    &memoryInbox{},
	}
	ctx := context.Background()

	require.NoError(t, w.Handle(ctx, deliveryMessage(t, "ev-1", "push")))
	require.NoError(t, w.Handle(ctx, deliveryMessage(t, "ev-1", "push")))

	assert.Len(t, push.payloads, 1, "redelivered broker messages are dropped")
}

func TestHandle_AcksOnGatewayFailure(t *testing.T) {
	push := &recordingGateway{err: assert.AnError}
	w := &delivery.Worker{
		Gateways: map[domainnotif.Channel]delivery.Gateway{domainnotif.ChannelPush: push},
	}

	err := w.Handle(context.Background(), deliveryMessage(t, "ev-1", "push"))
	assert.NoError(t, err, "channel delivery is best effort, the in-app row already exists")
}

func TestHandle_IgnoresForeignAndMalformedEvents(t *testing.T) {
	push := &recordingGateway{}
	w := &delivery.Worker{
		Gateways: map[domainnotif.Channel]delivery.Gateway{domainnotif.ChannelPush: push},
	}
	ctx := context.Background()

	other, err := json.Marshal(map[string]any{"id": "ev-2", "type": "notification.created.v1"})
	require.NoError(t, err)
	require.NoError(t, w.Handle(ctx, &sarama.ConsumerMessage{Value: other}))
	require.NoError(t, w.Handle(ctx, &sarama.ConsumerMessage{Value: []byte("not json")}))
	require.NoError(t, w.Handle(ctx, deliveryMessage(t, "ev-3", "pager")))

	assert.Empty(t, push.payloads)
}

func TestHTTPGateway_Deliver(t *testing.T) {
	var got delivery.Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	g := &delivery.HTTPGateway{Endpoint: srv.URL, Channel: domainnotif.ChannelPush}
	err := g.Deliver(context.Background(), delivery.Payload{NotificationID: "n-1", UserID: "u-1", Title: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, "n-1", got.NotificationID)
}

func TestHTTPGateway_DeliverErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "provider rejected", http.StatusBadGateway)
	}))
	defer srv.Close()

	g := &delivery.HTTPGateway{Endpoint: srv.URL, Channel: domainnotif.ChannelEmail}
	err := g.Deliver(context.Background(), delivery.Payload{NotificationID: "n-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
