package provision

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// Fingerprint derives a fixed-size dedupe key for a logical event.
func Fingerprint(eventType, workspaceID, actorID string) string {
	h := blake3.Sum256([]byte(eventType + "\x00" + workspaceID + "\x00" + actorID))
	return hex.EncodeToString(h[:])
}

type guardEntry struct {
	res *Result
	at  time.Time
}

// Guard is the in-process defense against at-least-once delivery:
// concurrent runs for the same key serialize, and a key completed
// within the TTL returns its cached Result without touching the
// platform again. Failed runs are never cached, so a re-delivery can
// retry them.
type Guard struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	inflight map[string]chan struct{}
	recent   map[string]guardEntry
}

// NewGuard creates a Guard. A zero or negative TTL disables result
// caching; duplicate runs still serialize.
func NewGuard(ttl time.Duration) *Guard {
	return &Guard{
		ttl:      ttl,
		now:      time.Now,
		inflight: make(map[string]chan struct{}),
		recent:   make(map[string]guardEntry),
	}
}

// Do runs fn for key, serializing concurrent callers on the same key.
// The returned bool reports whether the result came from the cache.
func (g *Guard) Do(key string, fn func() (*Result, error)) (*Result, bool, error) {
	var done chan struct{}
	for {
		g.mu.Lock()
		g.purgeLocked()
		if e, ok := g.recent[key]; ok {
			g.mu.Unlock()
			return e.res, true, nil
		}
		wait, running := g.inflight[key]
		if !running {
			done = make(chan struct{})
			g.inflight[key] = done
			g.mu.Unlock()
			break
		}
		g.mu.Unlock()
		<-wait // another delivery of the same event is running; re-check after it finishes
	}

	res, err := fn()

	g.mu.Lock()
	if err == nil && g.ttl > 0 {
		g.recent[key] = guardEntry{res: res, at: g.now()}
	}
	delete(g.inflight, key)
	g.mu.Unlock()
	close(done)

	return res, false, err
}

// purgeLocked drops expired cache entries. Caller holds g.mu.
func (g *Guard) purgeLocked() {
	if g.ttl <= 0 {
		return
	}
	cutoff := g.now().Add(-g.ttl)
	for k, e := range g.recent {
		if e.at.Before(cutoff) {
			delete(g.recent, k)
		}
	}
}
