package memory

import (
	"context"
	"sync"

	domainprofile "talentsync/internal/domain/profile"
	domainuser "talentsync/internal/domain/user"
)

// ProfileRepository stores talent profiles in memory. Not suitable for production.
type ProfileRepository struct {
	mu    sync.RWMutex
	items map[domainuser.ID]*domainprofile.Profile
}

func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{items: make(map[domainuser.ID]*domainprofile.Profile)}
}

func (r *ProfileRepository) ByUser(ctx context.Context, id domainuser.ID) (*domainprofile.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.items[id]; ok {
		return p.Clone(), nil
	}
	return nil, domainprofile.ErrNotFound
}

func (r *ProfileRepository) Save(ctx context.Context, p *domainprofile.Profile) error {
	if p == nil || p.UserID == "" {
		return domainprofile.ErrUserRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.UserID] = p.Clone()
	return nil
}

var _ domainprofile.Repository = (*ProfileRepository)(nil)
