package devapi

import (
	"sync"
	"time"
)

// revokedTokens remembers revoked access token ids until they would have expired anyway.
type revokedTokens struct {
	revoked map[string]time.Time
	issued  map[string]time.Time
	mu      sync.RWMutex
}

func newRevokedTokens() *revokedTokens {
	return &revokedTokens{
		revoked: make(map[string]time.Time),
		issued:  make(map[string]time.Time),
	}
}

func (c *revokedTokens) Issued(jti string, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued[jti] = exp
}

func (c *revokedTokens) Add(jti string, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[jti] = exp
	delete(c.issued, jti)
}

// RevokeAll revokes every access token issued so far.
func (c *revokedTokens) RevokeAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.issued)
	for jti, exp := range c.issued {
		c.revoked[jti] = exp
	}
	clear(c.issued)
	return n
}

func (c *revokedTokens) IsRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[jti]
	return exists
}

// Cleanup removes entries that have expired by now.
func (c *revokedTokens) Cleanup(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for jti, exp := range c.revoked {
		if now.After(exp) {
			delete(c.revoked, jti)
		}
	}
	for jti, exp := range c.issued {
		if now.After(exp) {
			delete(c.issued, jti)
		}
	}
}
