package chathub

import "sync"

// Presence tracks which users currently hold a live connection on this
// process. The hub goroutine updates it on register/unregister; the fallback
// HTTP handlers read it concurrently, hence the lock.
type Presence struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

// NewPresence constructor.
func NewPresence() *Presence {
	return &Presence{online: make(map[string]struct{})}
}

func (p *Presence) add(userID string) {
	p.mu.Lock()
	p.online[userID] = struct{}{}
	p.mu.Unlock()
}

func (p *Presence) remove(userID string) {
	p.mu.Lock()
	delete(p.online, userID)
	p.mu.Unlock()
}

// Online reports whether the user has a live connection on this process.
func (p *Presence) Online(userID string) bool {
	p.mu.RLock()
	_, ok := p.online[userID]
	p.mu.RUnlock()
	return ok
}
