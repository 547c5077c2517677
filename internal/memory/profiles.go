package memory

import (
	"fmt"
	"sync"

	"github.com/alvmarrod/fair/internal/storage"
	"github.com/sirupsen/logrus"
)

// ProfileStore persists cached profiles
type ProfileStore interface {
	SaveProfile(p *storage.ProfileRecord) error
	LoadProfiles() ([]*storage.ProfileRecord, error)
}

// ProfileCache maps username -> ProfileRecord for the duration of a run.
// Every Put is written through to the store immediately, so a crash
// mid-run keeps everything resolved so far.
type ProfileCache struct {
	profiles map[string]*storage.ProfileRecord
	order    []string
	store    ProfileStore // nil keeps the cache memory-only
	mu       sync.RWMutex
}

// NewProfileCache creates an empty cache backed by store (may be nil)
func NewProfileCache(store ProfileStore) *ProfileCache {
	return &ProfileCache{
		profiles: make(map[string]*storage.ProfileRecord),
		store:    store,
	}
}

// Get returns the cached profile for username.
// The record is shared: callers mutate it in place and Put it back to persist.
func (c *ProfileCache) Get(username string) (*storage.ProfileRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[username]
	return p, ok
}

// Put stores the profile and persists it (last write wins)
func (c *ProfileCache) Put(p *storage.ProfileRecord) error {
	if p == nil || p.Username == "" {
		return fmt.Errorf("cannot cache profile without username")
	}

	c.mu.Lock()
	if _, exists := c.profiles[p.Username]; !exists {
		c.order = append(c.order, p.Username)
	}
	c.profiles[p.Username] = p
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	if err := c.store.SaveProfile(p); err != nil {
		return fmt.Errorf("failed to persist profile %s: %w", p.Username, err)
	}
	return nil
}

// Len returns the number of cached profiles
func (c *ProfileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.profiles)
}

// Usernames returns cached usernames in insertion order
func (c *ProfileCache) Usernames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// LoadFromStorage populates the cache from the store without writing back
func (c *ProfileCache) LoadFromStorage() error {
	if c.store == nil {
		return nil
	}

	profiles, err := c.store.LoadProfiles()
	if err != nil {
		return fmt.Errorf("failed to load cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range profiles {
		if _, exists := c.profiles[p.Username]; !exists {
			c.order = append(c.order, p.Username)
		}
		c.profiles[p.Username] = p
	}

	logrus.Infof("Loaded %d cached profiles into memory", len(profiles))
	return nil
}
