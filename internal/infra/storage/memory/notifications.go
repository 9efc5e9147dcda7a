package memory

import (
	"context"
	"sync"

	domainnotif "talentsync/internal/domain/notification"
	domainuser "talentsync/internal/domain/user"
)

// NotificationRepository stores notifications in memory. Not suitable for production.
type NotificationRepository struct {
	mu    sync.RWMutex
	items map[domainnotif.ID]*domainnotif.Notification
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{items: make(map[domainnotif.ID]*domainnotif.Notification)}
}

func (r *NotificationRepository) ByID(ctx context.Context, id domainnotif.ID) (*domainnotif.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n, ok := r.items[id]; ok {
		return cloneNotification(n), nil
	}
	return nil, domainnotif.ErrNotFound
}

func (r *NotificationRepository) ForUser(ctx context.Context, id domainuser.ID) ([]*domainnotif.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainnotif.Notification
	for _, n := range r.items {
		if n.UserID == id {
			out = append(out, cloneNotification(n))
		}
	}
	return out, nil
}

func (r *NotificationRepository) Save(ctx context.Context, n *domainnotif.Notification) error {
	if n == nil || n.ID == "" {
		return domainnotif.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[n.ID] = cloneNotification(n)
	return nil
}

func cloneNotification(n *domainnotif.Notification) *domainnotif.Notification {
	if n == nil {
		return nil
	}
	copyNotif := *n
	if n.Data != nil {
		copyNotif.Data = make(map[string]string, len(n.Data))
		for k, v := range n.Data {
			copyNotif.Data[k] = v
		}
	}
	return &copyNotif
}

var _ domainnotif.Repository = (*NotificationRepository)(nil)

// PreferenceStore keeps channel toggles in memory. Unset pairs are enabled.
type PreferenceStore struct {
	mu    sync.RWMutex
	items map[string]domainnotif.ChannelPreference
}

func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{items: make(map[string]domainnotif.ChannelPreference)}
}

func (s *PreferenceStore) Enabled(ctx context.Context, notificationType string, channel domainnotif.Channel) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pref, ok := s.items[preferenceKey(notificationType, channel)]
	if !ok {
		return true, nil
	}
	return pref.Enabled, nil
}

func (s *PreferenceStore) Set(ctx context.Context, pref domainnotif.ChannelPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[preferenceKey(pref.Type, pref.Channel)] = pref
	return nil
}

func (s *PreferenceStore) List(ctx context.Context) ([]domainnotif.ChannelPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainnotif.ChannelPreference, 0, len(s.items))
	for _, pref := range s.items {
		out = append(out, pref)
	}
	return out, nil
}

func preferenceKey(notificationType string, channel domainnotif.Channel) string {
	return notificationType + ":" + string(channel)
}

var _ domainnotif.PreferenceStore = (*PreferenceStore)(nil)
