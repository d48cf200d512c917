// Package identity issues anonymous session identities. Each submission
// gets a fresh uid so every persisted record is attributable to exactly
// one identity; signing out invalidates the uid for good.
package identity

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Provider mints and tracks anonymous identities. Session state lives
// here, scoped to the provider instance; there is no package-level
// current-user cache.
type Provider struct {
	mu     sync.Mutex
	active map[string]time.Time
}

func NewProvider() *Provider {
	return &Provider{active: make(map[string]time.Time)}
}

// SignInAnonymously mints a fresh anonymous uid.
func (p *Provider) SignInAnonymously() (string, error) {
	uid := uuid.NewString()
	p.mu.Lock()
	p.active[uid] = time.Now().UTC()
	p.mu.Unlock()
	return uid, nil
}

// SignOut invalidates uid. Unknown uids are a no-op.
func (p *Provider) SignOut(uid string) {
	p.mu.Lock()
	delete(p.active, uid)
	p.mu.Unlock()
}

// Active reports whether uid is a live session.
func (p *Provider) Active(uid string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[uid]
	return ok
}
