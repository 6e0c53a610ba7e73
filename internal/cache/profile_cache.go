package cache

import (
	"sync"
	"time"

	"github.com/Cheertaboi/coupon-studio/internal/models"
)

type profileEntry struct {
	profile   *models.UserProfile
	expiresAt time.Time
}

// ProfileCache is a small TTL cache in front of the profile collection. A
// nil profile is cached too, so users without a profile are not refetched
// on every snapshot.
type ProfileCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	store map[string]profileEntry
}

func NewProfileCache(ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		ttl:   ttl,
		now:   time.Now,
		store: make(map[string]profileEntry),
	}
}

// Get returns the cached profile for userID. ok is false on a miss or
// when the entry expired.
func (c *ProfileCache) Get(userID string) (profile *models.UserProfile, ok bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, found := c.store[userID]
	if !found || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.profile, true
}

func (c *ProfileCache) Set(userID string, profile *models.UserProfile) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[userID] = profileEntry{profile: profile, expiresAt: c.now().Add(c.ttl)}
}

func (c *ProfileCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, userID)
}

// Purge drops expired entries.
func (c *ProfileCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.store {
		if !now.Before(e.expiresAt) {
			delete(c.store, k)
		}
	}
}

func (c *ProfileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}
