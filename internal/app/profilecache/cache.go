// Package profilecache fronts the profile repository with a TTL cache.
// Concurrent misses for the same user collapse into a single fetch, writes go
// through to the repository and replace the cached copy with the stored
// result, and change-feed events invalidate entries pushed stale by other
// writers.
package profilecache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	appfeed "talentsync/internal/app/feed"
	domainprofile "talentsync/internal/domain/profile"
	domainuser "talentsync/internal/domain/user"
)

const DefaultTTL = 5 * time.Minute

type Cache struct {
	Profiles domainprofile.Repository
	Logger   *slog.Logger
	Now      func() time.Time
	TTL      time.Duration

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[domainuser.ID]entry
}

type entry struct {
	profile   *domainprofile.Profile
	fetchedAt time.Time
}

// Get returns the cached profile when fresh, otherwise fetches it. Callers
// racing on the same cold key share one repository round trip.
func (c *Cache) Get(ctx context.Context, userID domainuser.ID) (*domainprofile.Profile, error) {
	if p, ok := c.fresh(userID); ok {
		return p, nil
	}
	v, err, _ := c.group.Do(string(userID), func() (any, error) {
		// Re-check under the flight: a concurrent Update may have filled
		// the entry while this call waited its turn.
		if p, ok := c.fresh(userID); ok {
			return p, nil
		}
		p, err := c.Profiles.ByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		c.store(userID, p)
		return p.Clone(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domainprofile.Profile), nil
}

// Update applies a patch and writes through. The cache keeps the stored
// profile, not the optimistic input, so readers always see what the
// repository confirmed.
func (c *Cache) Update(ctx context.Context, userID domainuser.ID, patch domainprofile.Patch) (*domainprofile.Profile, error) {
	p, err := c.Profiles.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := p.Apply(patch, c.now()); err != nil {
		return nil, err
	}
	if err := c.Profiles.Save(ctx, p); err != nil {
		return nil, err
	}
	c.store(userID, p)
	return p.Clone(), nil
}

// Invalidate drops the cached entry so the next Get refetches.
func (c *Cache) Invalidate(userID domainuser.ID) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// Prefetch warms the cache in the background. Failures are logged and
// swallowed: the miss path covers them later.
func (c *Cache) Prefetch(ctx context.Context, userIDs ...domainuser.ID) {
	for _, id := range userIDs {
		if _, ok := c.fresh(id); ok {
			continue
		}
		go func(id domainuser.ID) {
			if _, err := c.Get(ctx, id); err != nil && c.Logger != nil {
				c.Logger.Debug("profile prefetch failed", "user_id", id, "error", err)
			}
		}(id)
	}
}

// Observe invalidates on profile change events from the feed. Deletes of
// unknown users are no-ops.
func (c *Cache) Observe(ev appfeed.Event) {
	if ev.Table != appfeed.TableProfiles {
		return
	}
	var row struct {
		UserID string `json:"user_id"`
	}
	if err := ev.DecodeRow(&row); err != nil || row.UserID == "" {
		return
	}
	c.Invalidate(domainuser.ID(row.UserID))
}

func (c *Cache) fresh(userID domainuser.ID) (*domainprofile.Profile, bool) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl() {
		return nil, false
	}
	return e.profile.Clone(), true
}

func (c *Cache) store(userID domainuser.ID, p *domainprofile.Profile) {
	c.mu.Lock()
	if c.entries == nil {
		c.entries = make(map[domainuser.ID]entry)
	}
	c.entries[userID] = entry{profile: p.Clone(), fetchedAt: c.now()}
	c.mu.Unlock()
}

func (c *Cache) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return DefaultTTL
}

func (c *Cache) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}
