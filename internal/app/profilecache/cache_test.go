package profilecache_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfeed "talentsync/internal/app/feed"
	"talentsync/internal/app/profilecache"
	domainprofile "talentsync/internal/domain/profile"
	domainuser "talentsync/internal/domain/user"
	"talentsync/internal/infra/storage/memory"
)

// countingRepo wraps the memory repository and counts reads, with an optional
// gate so concurrent fetches can be held open.
type countingRepo struct {
	domainprofile.Repository

	reads int64
	gate  chan struct{}
}

func (r *countingRepo) ByUser(ctx context.Context, id domainuser.ID) (*domainprofile.Profile, error) {
	atomic.AddInt64(&r.reads, 1)
	if r.gate != nil {
		<-r.gate
	}
	return r.Repository.ByUser(ctx, id)
}

func (r *countingRepo) readCount() int64 {
	return atomic.LoadInt64(&r.reads)
}

func seedProfile(t *testing.T, repo domainprofile.Repository, userID domainuser.ID, name string) {
	t.Helper()
	p, err := domainprofile.New(domainprofile.CreateParams{
		UserID:      userID,
		DisplayName: name,
		Headline:    "Backend developer",
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), p))
}

func TestGet_CachesUntilTTL(t *testing.T) {
	repo := &countingRepo{Repository: memory.NewProfileRepository()}
	seedProfile(t, repo.Repository, "u-1", "Alice")

	now := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)
	cache := &profilecache.Cache{
		Profiles: repo,
		TTL:      time.Minute,
		Now:      func() time.Time { return now },
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := cache.Get(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", p.DisplayName)
	}
	assert.EqualValues(t, 1, repo.readCount())

	now = now.Add(time.Minute)
	_, err := cache.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, repo.readCount(), "expired entry refetches")
}

func TestGet_CoalescesConcurrentMisses(t *testing.T) {
	repo := &countingRepo{
		Repository: memory.NewProfileRepository(),
		gate:       make(chan struct{}),
	}
	seedProfile(t, repo.Repository, "u-1", "Alice")

	cache := &profilecache.Cache{Profiles: repo, TTL: time.Minute}
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cache.Get(ctx, "u-1")
		}(i)
	}

	// Let every caller pile onto the cold key before releasing the fetch.
	assert.Eventually(t, func() bool { return repo.readCount() >= 1 }, time.Second, time.Millisecond)
	close(repo.gate)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, repo.readCount(), "concurrent misses share one round trip")
}

func TestGet_ReturnsClones(t *testing.T) {
	repo := memory.NewProfileRepository()
	seedProfile(t, repo, "u-1", "Alice")
	cache := &profilecache.Cache{Profiles: repo, TTL: time.Minute}
	ctx := context.Background()

	first, err := cache.Get(ctx, "u-1")
	require.NoError(t, err)
	first.DisplayName = "mutated"

	second, err := cache.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", second.DisplayName)
}

func TestUpdate_WritesThroughAndKeepsStoredRow(t *testing.T) {
	repo := &countingRepo{Repository: memory.NewProfileRepository()}
	seedProfile(t, repo.Repository, "u-1", "Alice")
	cache := &profilecache.Cache{Profiles: repo, TTL: time.Minute}
	ctx := context.Background()

	headline := "  Staff engineer  "
	updated, err := cache.Update(ctx, "u-1", domainprofile.Patch{Headline: &headline})
	require.NoError(t, err)
	assert.Equal(t, "Staff engineer", updated.Headline, "cache keeps the repository-confirmed row")

	reads := repo.readCount()
	cached, err := cache.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Staff engineer", cached.Headline)
	assert.Equal(t, reads, repo.readCount(), "update warms the cache")
}

func TestObserve_InvalidatesOnFeedEvent(t *testing.T) {
	repo := &countingRepo{Repository: memory.NewProfileRepository()}
	seedProfile(t, repo.Repository, "u-1", "Alice")
	cache := &profilecache.Cache{Profiles: repo, TTL: time.Hour}
	ctx := context.Background()

	_, err := cache.Get(ctx, "u-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, repo.readCount())

	row, err := json.Marshal(struct {
		UserID string `json:"user_id"`
	}{UserID: "u-1"})
	require.NoError(t, err)
	cache.Observe(appfeed.Event{Table: appfeed.TableProfiles, Type: appfeed.Update, Row: row})

	_, err = cache.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, repo.readCount(), "push invalidation forces a refetch")
}

func TestObserve_IgnoresOtherTables(t *testing.T) {
	repo := &countingRepo{Repository: memory.NewProfileRepository()}
	seedProfile(t, repo.Repository, "u-1", "Alice")
	cache := &profilecache.Cache{Profiles: repo, TTL: time.Hour}
	ctx := context.Background()

	_, err := cache.Get(ctx, "u-1")
	require.NoError(t, err)

	cache.Observe(appfeed.Event{Table: appfeed.TableMessages, Type: appfeed.Update, Row: []byte(`{"user_id":"u-1"}`)})

	_, err = cache.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, repo.readCount())
}

func TestGet_MissPropagatesNotFound(t *testing.T) {
	cache := &profilecache.Cache{Profiles: memory.NewProfileRepository(), TTL: time.Minute}
	_, err := cache.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, domainprofile.ErrNotFound)
}
