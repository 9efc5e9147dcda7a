package memory

import (
	"context"
	"sync"

	appfeed "talentsync/internal/app/feed"
)

// FeedBus is a single-process change-feed bus. Publish dispatches to local
// subscribers synchronously via buffered channels.
type FeedBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*feedSub
}

type feedSub struct {
	filter appfeed.Filter
	ch     chan appfeed.Event
}

func NewFeedBus() *FeedBus {
	return &FeedBus{subs: make(map[int]*feedSub)}
}

func (b *FeedBus) Publish(ctx context.Context, ev appfeed.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if !sub.filter.Matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Full buffer drops the event, same contract as the Redis bus.
		}
	}
	return nil
}

func (b *FeedBus) Subscribe(filter appfeed.Filter) *appfeed.Subscription {
	ch := make(chan appfeed.Event, 64)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = &feedSub{filter: filter, ch: ch}
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

var _ appfeed.Bus = (*FeedBus)(nil)
