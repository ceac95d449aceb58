package jira

import (
	"sync"
	"time"
)

// UserCache holds the /myself lookup so repeated reports in one process do not
// hit the endpoint again.
type UserCache struct {
	mu        sync.RWMutex
	user      *User
	fetchedAt time.Time
	ttl       time.Duration
}

func NewUserCache(ttl time.Duration) *UserCache {
	return &UserCache{ttl: ttl}
}

func (c *UserCache) Get() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.user == nil || c.ttl <= 0 || time.Since(c.fetchedAt) > c.ttl {
		return nil
	}

	u := *c.user
	return &u
}

func (c *UserCache) Set(user *User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := *user
	c.user = &u
	c.fetchedAt = time.Now()
}

func (c *UserCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.user = nil
}
