package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/draftsmith/internal/apperr"
	"github.com/kalambet/draftsmith/internal/style"
)

// ProfileStore defines the storage operations the Manager needs.
// Implemented by storage.Store.
type ProfileStore interface {
	LoadProfile(userID string) (style.Profile, error)
	SaveProfile(p style.Profile) error
	DeleteProfile(userID string) error
	ListProfiles() ([]string, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type cacheEntry struct {
	profile style.Profile
	at      time.Time
}

// Manager provides cached access to stored style profiles and applies
// updates to one user's profile strictly one at a time.
type Manager struct {
	store ProfileStore
	clock Clock
	ttl   time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(store ProfileStore) *Manager {
	return NewManagerWithClock(store, realClock{}, 60*time.Second)
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store ProfileStore, clock Clock, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		clock: clock,
		ttl:   ttl,
		cache: make(map[string]cacheEntry),
		locks: make(map[string]*sync.Mutex),
	}
}

// Get returns the stored profile for userID, or a NotFound error.
func (m *Manager) Get(userID string) (style.Profile, error) {
	// Fast path: read lock for cache hit.
	m.mu.RLock()
	if e, ok := m.cache[userID]; ok && m.clock.Now().Before(e.at.Add(m.ttl)) {
		p := e.profile.Clone()
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	p, err := m.store.LoadProfile(userID)
	if err != nil {
		return style.Profile{}, err
	}
	m.remember(p)
	return p.Clone(), nil
}

// Lookup is Get with absence reported as a nil profile rather than an error.
func (m *Manager) Lookup(userID string) (*style.Profile, error) {
	p, err := m.Get(userID)
	if errors.Is(err, apperr.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update loads the profile for userID (a fresh one if none exists), applies
// fn and saves the result once. Updates for the same user are serialized so
// each one sees the previous one's result. If fn fails or ctx is done before
// the save, nothing is written.
func (m *Manager) Update(ctx context.Context, userID string, fn func(style.Profile) (style.Profile, error)) (style.Profile, error) {
	if userID == "" {
		return style.Profile{}, apperr.New(apperr.InvalidRequest, "user id is required")
	}
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := m.clock.Now()
	current, err := m.store.LoadProfile(userID)
	switch {
	case errors.Is(err, apperr.NotFound):
		current = style.NewProfile(userID)
		current.CreatedAt = now
	case err != nil:
		return style.Profile{}, err
	}

	next, err := fn(current.Clone())
	if err != nil {
		return style.Profile{}, err
	}
	if err := ctx.Err(); err != nil {
		return style.Profile{}, fmt.Errorf("profile update for %s abandoned: %w", userID, err)
	}

	next.UserID = userID
	if next.CreatedAt.IsZero() {
		next.CreatedAt = current.CreatedAt
	}
	next.UpdatedAt = now
	if err := m.store.SaveProfile(next); err != nil {
		return style.Profile{}, fmt.Errorf("saving profile %s: %w", userID, err)
	}
	m.remember(next)
	slog.Debug("profile updated", "user", userID, "samples", next.SampleCount)
	return next.Clone(), nil
}

// Delete removes the stored profile and its cache entry.
func (m *Manager) Delete(userID string) error {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	delete(m.cache, userID)
	m.mu.Unlock()
	return m.store.DeleteProfile(userID)
}

// List returns every stored user id.
func (m *Manager) List() ([]string, error) {
	ids, err := m.store.ListProfiles()
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	return ids, nil
}

func (m *Manager) remember(p style.Profile) {
	m.mu.Lock()
	m.cache[p.UserID] = cacheEntry{profile: p.Clone(), at: m.clock.Now()}
	m.mu.Unlock()
}

func (m *Manager) userLock(userID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}
