// Package delivery pushes notifications out over external channels. Gateways
// call channel provider HTTP endpoints; the worker feeds them from the broker.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	domainnotif "talentsync/internal/domain/notification"
)

// Payload is the channel-agnostic delivery request.
type Payload struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Message        string `json:"message,omitempty"`
	ActionURL      string `json:"action_url,omitempty"`
}

// Gateway sends one payload over one channel.
type Gateway interface {
	Deliver(ctx context.Context, payload Payload) error
}

// HTTPGateway posts delivery payloads to a channel provider endpoint.
type HTTPGateway struct {
	Client   *http.Client
	Endpoint string
	Channel  domainnotif.Channel
}

func (g *HTTPGateway) Deliver(ctx context.Context, payload Payload) error {
	if g == nil || g.Endpoint == "" {
		return errors.New("delivery: endpoint not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := g.client().Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("delivery: %s gateway returned status %d: %s", g.Channel, resp.StatusCode, string(snippet))
	}
	return nil
}

func (g *HTTPGateway) client() *http.Client {
	if g.Client != nil {
		return g.Client
	}
	return http.DefaultClient
}
