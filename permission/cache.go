package permission

import "sync"

// SessionCache remembers which tools were approved during a session.
// Consulted only under ModeOncePerSession; cleared at session
// boundaries.
type SessionCache struct {
	mu       sync.Mutex
	approved map[string]bool
}

// NewSessionCache creates an empty cache.
func NewSessionCache() *SessionCache {
	return &SessionCache{approved: make(map[string]bool)}
}

// Approve marks the tool as approved for the rest of the session.
func (c *SessionCache) Approve(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.approved[name] = true
}

// IsApproved reports whether the tool was already approved this session.
func (c *SessionCache) IsApproved(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.approved[name]
}

// Clear forgets all session approvals.
func (c *SessionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.approved = make(map[string]bool)
}
