// Package feed carries change-feed events between nodes over Redis Pub/Sub.
// Every node publishes to one broadcast channel and fans incoming events out
// to its local subscribers.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	appfeed "talentsync/internal/app/feed"
)

const defaultChannel = "feed:events"

type RedisBus struct {
	Client  *redis.Client
	Channel string
	Logger  *slog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]*localSub
}

type localSub struct {
	filter appfeed.Filter
	ch     chan appfeed.Event
}

var _ appfeed.Bus = (*RedisBus)(nil)

func (b *RedisBus) Publish(ctx context.Context, ev appfeed.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.Client.Publish(ctx, b.channel(), payload).Err()
}

func (b *RedisBus) Subscribe(filter appfeed.Filter) *appfeed.Subscription {
	ch := make(chan appfeed.Event, 64)
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[int]*localSub)
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = &localSub{filter: filter, ch: ch}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
		b.mu.Unlock()
	}
	return appfeed.NewSubscription(ch, cancel)
}

// Run pumps the broadcast channel into local subscribers until ctx ends.
func (b *RedisBus) Run(ctx context.Context) error {
	pubsub := b.Client.Subscribe(ctx, b.channel())
	defer pubsub.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return nil
			}
			var ev appfeed.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				if b.Logger != nil {
					b.Logger.Warn("feed event decode failed", "error", err)
				}
				continue
			}
			b.dispatch(ev)
		}
	}
}

func (b *RedisBus) dispatch(ev appfeed.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if !sub.filter.Matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// A slow subscriber drops events rather than stalling the pump.
			// Consumers recover by re-fetching on their next interaction.
			if b.Logger != nil {
				b.Logger.Warn("feed subscriber lagging, event dropped", "table", ev.Table, "event_id", ev.ID)
			}
		}
	}
}

func (b *RedisBus) channel() string {
	if b.Channel != "" {
		return b.Channel
	}
	return defaultChannel
}
