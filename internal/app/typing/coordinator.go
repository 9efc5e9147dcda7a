// Package typing coordinates ephemeral "user is typing" records: debounced
// writes with a short TTL on the way out, and a locally-expiring peer set on
// the way in so stale indicators disappear even when a delete event is lost.
package typing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"talentsync/internal/app/conversations"
	"talentsync/internal/app/dto"
	appfeed "talentsync/internal/app/feed"
	domainconv "talentsync/internal/domain/conversation"
	domaintyping "talentsync/internal/domain/typing"
	domainuser "talentsync/internal/domain/user"
)

var ErrStoreRequired = errors.New("typing: store required")

type Coordinator struct {
	Store         domaintyping.Store
	Conversations *conversations.Service
	Feed          appfeed.Bus
	Logger        *slog.Logger
	Now           func() time.Time
	// TTL and IdleWindow default to the domain policy constants.
	TTL        time.Duration
	IdleWindow time.Duration

	mu     sync.Mutex
	active map[string]*outgoingState
}

type outgoingState struct {
	lastWrite time.Time
	stop      *time.Timer
}

// Signal registers keystroke activity. The first signal writes the indicator
// and announces it; repeated signals inside the idle window only reschedule
// the auto-stop and refresh the stored TTL when it is about to lapse. There
// is no write per character.
func (c *Coordinator) Signal(ctx context.Context, convID domainconv.ID, userID domainuser.ID) error {
	if c.Store == nil {
		return ErrStoreRequired
	}
	conv, err := c.conversation(ctx, convID, userID)
	if err != nil {
		return err
	}
	now := c.now()
	key := typingKey(convID, userID)

	c.mu.Lock()
	if c.active == nil {
		c.active = make(map[string]*outgoingState)
	}
	state, already := c.active[key]
	if !already {
		state = &outgoingState{}
		c.active[key] = state
	}
	needsWrite := !already || now.Sub(state.lastWrite) >= c.refreshInterval()
	if needsWrite {
		state.lastWrite = now
	}
	if state.stop != nil {
		state.stop.Stop()
	}
	state.stop = time.AfterFunc(c.idleWindow(), func() {
		if err := c.Stop(context.Background(), convID, userID); err != nil && c.Logger != nil {
			c.Logger.Debug("typing auto-stop failed", "conversation_id", convID, "user_id", userID, "error", err)
		}
	})
	c.mu.Unlock()

	ind := domaintyping.Indicator{
		ConversationID: convID,
		UserID:         userID,
		ExpiresAt:      now.Add(c.ttl()),
	}
	if needsWrite {
		if err := c.Store.Set(ctx, ind); err != nil {
			// Best effort: a missed typing write never blocks the compose box.
			if c.Logger != nil {
				c.Logger.Debug("typing write failed", "conversation_id", convID, "error", err)
			}
		}
	}
	switch {
	case !already:
		c.publish(ctx, conv, ind, appfeed.Insert)
	case needsWrite:
		// Refresh writes re-announce as updates so peers extend their local
		// fallback timeout along with the stored TTL.
		c.publish(ctx, conv, ind, appfeed.Update)
	}
	return nil
}

// Stop removes the indicator early (message sent, composer blurred) or via
// the idle auto-stop.
func (c *Coordinator) Stop(ctx context.Context, convID domainconv.ID, userID domainuser.ID) error {
	if c.Store == nil {
		return ErrStoreRequired
	}
	key := typingKey(convID, userID)
	c.mu.Lock()
	state, ok := c.active[key]
	if ok {
		if state.stop != nil {
			state.stop.Stop()
		}
		delete(c.active, key)
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if err := c.Store.Clear(ctx, convID, userID); err != nil && c.Logger != nil {
		c.Logger.Debug("typing clear failed", "conversation_id", convID, "error", err)
	}
	conv, err := c.conversation(ctx, convID, userID)
	if err != nil {
		return err
	}
	c.publish(ctx, conv, domaintyping.Indicator{ConversationID: convID, UserID: userID}, appfeed.Delete)
	return nil
}

// Shutdown cancels every scheduled auto-stop. Indicators left in the store
// expire by TTL.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, state := range c.active {
		if state.stop != nil {
			state.stop.Stop()
		}
		delete(c.active, key)
	}
}

func (c *Coordinator) conversation(ctx context.Context, convID domainconv.ID, userID domainuser.ID) (*domainconv.Conversation, error) {
	if c.Conversations == nil {
		return nil, conversations.ErrRepositoryRequired
	}
	return c.Conversations.Get(ctx, convID, userID)
}

func (c *Coordinator) publish(ctx context.Context, conv *domainconv.Conversation, ind domaintyping.Indicator, kind appfeed.EventType) {
	if c.Feed == nil {
		return
	}
	peer, err := conv.Peer(ind.UserID)
	if err != nil {
		return
	}
	ev := appfeed.Event{
		ID:         uuid.NewString(),
		Table:      appfeed.TableTyping,
		Type:       kind,
		Recipients: []string{string(peer)},
		Row:        appfeed.MarshalRow(dto.MapTypingIndicator(ind)),
		OccurredAt: c.now(),
	}
	if err := c.Feed.Publish(ctx, ev); err != nil && c.Logger != nil {
		c.Logger.Debug("typing feed publish failed", "conversation_id", ind.ConversationID, "error", err)
	}
}

func (c *Coordinator) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return domaintyping.TTL
}

func (c *Coordinator) idleWindow() time.Duration {
	if c.IdleWindow > 0 {
		return c.IdleWindow
	}
	return domaintyping.IdleWindow
}

// refreshInterval spaces store writes so a continuously-typing user refreshes
// the TTL before it lapses without writing per keystroke.
func (c *Coordinator) refreshInterval() time.Duration {
	interval := c.ttl() - c.idleWindow()
	if interval <= 0 {
		interval = c.ttl() / 2
	}
	return interval
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

func typingKey(convID domainconv.ID, userID domainuser.ID) string {
	return string(convID) + ":" + string(userID)
}
