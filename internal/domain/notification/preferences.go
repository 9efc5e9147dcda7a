package notification

import (
	"context"
	"strings"
)

// ChannelPreference is an admin-configurable toggle per notification type and
// channel. A disabled channel is skipped silently during fan-out.
type ChannelPreference struct {
	Type    string
	Channel Channel
	Enabled bool
}

// PreferenceStore resolves which channels a notification type may use.
// Unknown (type, channel) pairs default to enabled.
type PreferenceStore interface {
	Enabled(ctx context.Context, notificationType string, channel Channel) (bool, error)
	Set(ctx context.Context, pref ChannelPreference) error
	List(ctx context.Context) ([]ChannelPreference, error)
}

func ParseChannel(raw string) (Channel, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ChannelInApp):
		return ChannelInApp, true
	case string(ChannelPush):
		return ChannelPush, true
	case string(ChannelEmail):
		return ChannelEmail, true
	default:
		return "", false
	}
}
