package typing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentsync/internal/app/conversations"
	appfeed "talentsync/internal/app/feed"
	apptyping "talentsync/internal/app/typing"
	domainconv "talentsync/internal/domain/conversation"
	domaintyping "talentsync/internal/domain/typing"
	"talentsync/internal/infra/storage/memory"
)

// countingStore counts writes so debounce behavior is observable.
type countingStore struct {
	domaintyping.Store

	mu   sync.Mutex
	sets int
}

func (s *countingStore) Set(ctx context.Context, ind domaintyping.Indicator) error {
	s.mu.Lock()
	s.sets++
	s.mu.Unlock()
	return s.Store.Set(ctx, ind)
}

func (s *countingStore) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

type coordinatorFixture struct {
	coord *apptyping.Coordinator
	store *countingStore
	bus   *memory.FeedBus
	conv  *domainconv.Conversation

	mu  sync.Mutex
	now time.Time
}

func (fx *coordinatorFixture) clock() time.Time {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	return fx.now
}

func (fx *coordinatorFixture) advance(d time.Duration) {
	fx.mu.Lock()
	fx.now = fx.now.Add(d)
	fx.mu.Unlock()
}

func newCoordinator(t *testing.T, ttl, idle time.Duration) *coordinatorFixture {
	t.Helper()
	bus := memory.NewFeedBus()
	fx := &coordinatorFixture{
		store: &countingStore{Store: memory.NewTypingStore()},
		bus:   bus,
		now:   time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC),
	}

	convSvc := &conversations.Service{
		Conversations: memory.NewConversationRepository(),
		Now:           fx.clock,
	}
	conv, err := convSvc.GetOrCreate(context.Background(), conversations.CreateParams{
		BusinessID: "biz-1",
		TalentID:   "tal-1",
	})
	require.NoError(t, err)
	fx.conv = conv

	fx.coord = &apptyping.Coordinator{
		Store:         fx.store,
		Conversations: convSvc,
		Feed:          bus,
		Now:           fx.clock,
		TTL:           ttl,
		IdleWindow:    idle,
	}
	t.Cleanup(fx.coord.Shutdown)
	return fx
}

func drain(sub *appfeed.Subscription) []appfeed.Event {
	var out []appfeed.Event
	for {
		select {
		case ev := <-sub.C:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestSignal_DebouncesWrites(t *testing.T) {
	fx := newCoordinator(t, 5*time.Second, 3*time.Second)
	ctx := context.Background()

	// Rapid keystrokes inside the refresh interval produce one write.
	for i := 0; i < 5; i++ {
		require.NoError(t, fx.coord.Signal(ctx, fx.conv.ID, "biz-1"))
	}
	assert.Equal(t, 1, fx.store.setCount())

	// Past the refresh interval the stored TTL is topped up.
	fx.advance(2*time.Second + time.Millisecond)
	require.NoError(t, fx.coord.Signal(ctx, fx.conv.ID, "biz-1"))
	assert.Equal(t, 2, fx.store.setCount())
}

func TestSignal_AnnouncesOnlyTransitions(t *testing.T) {
	fx := newCoordinator(t, 5*time.Second, 3*time.Second)
	ctx := context.Background()

	peer := fx.bus.Subscribe(appfeed.Filter{Tables: []string{appfeed.TableTyping}, UserID: "tal-1"})
	defer peer.Close()
	self := fx.bus.Subscribe(appfeed.Filter{Tables: []string{appfeed.TableTyping}, UserID: "biz-1"})
	defer self.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, fx.coord.Signal(ctx, fx.conv.ID, "biz-1"))
	}

	events := drain(peer)
	require.Len(t, events, 1, "repeat signals stay silent")
	assert.Equal(t, appfeed.Insert, events[0].Type)
	assert.Empty(t, drain(self), "the typer never hears their own indicator")
}

func TestSignal_RefreshKeepsPeerViewAlive(t *testing.T) {
	fx := newCoordinator(t, 5*time.Second, 3*time.Second)
	ctx := context.Background()

	peer := fx.bus.Subscribe(appfeed.Filter{Tables: []string{appfeed.TableTyping}, UserID: "tal-1"})
	defer peer.Close()
	tracker := &apptyping.PeerTracker{Viewer: "tal-1", Now: fx.clock, Timeout: 5 * time.Second}

	observe := func() {
		for _, ev := range drain(peer) {
			tracker.Observe(ev)
		}
	}

	// Continuous typing past the tracker's fallback timeout: each refresh
	// write re-announces, so the peer view never drops the typer.
	require.NoError(t, fx.coord.Signal(ctx, fx.conv.ID, "biz-1"))
	observe()
	for i := 0; i < 3; i++ {
		fx.advance(2*time.Second + 100*time.Millisecond)
		require.NoError(t, fx.coord.Signal(ctx, fx.conv.ID, "biz-1"))
		observe()
	}

	assert.Equal(t, []string{"biz-1"}, tracker.Typing(string(fx.conv.ID)),
		"a continuously-typing user stays visible past the fallback timeout")
}

func TestStop_ClearsAndAnnounces(t *testing.T) {
	fx := newCoordinator(t, 5*time.Second, 3*time.Second)
	ctx := context.Background()

	require.NoError(t, fx.coord.Signal(ctx, fx.conv.ID, "biz-1"))

	peer := fx.bus.Subscribe(appfeed.Filter{Tables: []string{appfeed.TableTyping}, UserID: "tal-1"})
	defer peer.Close()

	require.NoError(t, fx.coord.Stop(ctx, fx.conv.ID, "biz-1"))

	events := drain(peer)
	require.Len(t, events, 1)
	assert.Equal(t, appfeed.Delete, events[0].Type)

	active, err := fx.store.Active(ctx, fx.conv.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Stopping an inactive typer is a no-op, not an error.
	require.NoError(t, fx.coord.Stop(ctx, fx.conv.ID, "biz-1"))
	assert.Empty(t, drain(peer))
}

func TestSignal_AutoStopsAfterIdleWindow(t *testing.T) {
	fx := newCoordinator(t, 100*time.Millisecond, 30*time.Millisecond)
	ctx := context.Background()

	peer := fx.bus.Subscribe(appfeed.Filter{Tables: []string{appfeed.TableTyping}, UserID: "tal-1"})
	defer peer.Close()

	require.NoError(t, fx.coord.Signal(ctx, fx.conv.ID, "biz-1"))

	assert.Eventually(t, func() bool {
		for _, ev := range drain(peer) {
			if ev.Type == appfeed.Delete {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "idle typer should be auto-stopped")
}

func TestSignal_RejectsNonParticipant(t *testing.T) {
	fx := newCoordinator(t, 5*time.Second, 3*time.Second)
	err := fx.coord.Signal(context.Background(), fx.conv.ID, "stranger")
	assert.ErrorIs(t, err, domainconv.ErrNotParticipant)
	assert.Equal(t, 0, fx.store.setCount())
}
