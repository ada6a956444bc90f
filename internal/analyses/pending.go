package analyses

import (
	"sync"
	"time"
)

const defaultPendingTTL = 15 * time.Minute

// pendingStore holds computed analyses whose save failed so the caller can
// retry the write without paying for another inference call. Entries expire
// after ttl. The zero value is ready to use.
type pendingStore struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
	now     func() time.Time
	ttl     time.Duration
}

type pendingEntry struct {
	analysis Analysis
	expires  time.Time
}

func newPendingStore(ttl time.Duration, now func() time.Time) *pendingStore {
	p := &pendingStore{now: now, ttl: ttl}
	p.init()
	return p
}

func (p *pendingStore) init() {
	if p.entries == nil {
		p.entries = make(map[string]pendingEntry)
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.ttl <= 0 {
		p.ttl = defaultPendingTTL
	}
}

// Put keeps analysis under its own id.
func (p *pendingStore) Put(analysis Analysis) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	now := p.now()
	p.sweep(now)
	p.entries[analysis.ID] = pendingEntry{analysis: analysis, expires: now.Add(p.ttl)}
}

// Get returns the pending analysis if it belongs to userID and has not expired.
func (p *pendingStore) Get(userID, id string) (Analysis, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	entry, ok := p.entries[id]
	if !ok {
		return Analysis{}, false
	}
	if !p.now().Before(entry.expires) {
		delete(p.entries, id)
		return Analysis{}, false
	}
	if entry.analysis.UserID != userID {
		return Analysis{}, false
	}
	return entry.analysis, true
}

// Delete drops the entry once it has been saved.
func (p *pendingStore) Delete(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, id)
}

// Len reports the number of live entries.
func (p *pendingStore) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	p.sweep(p.now())
	return len(p.entries)
}

func (p *pendingStore) sweep(now time.Time) {
	for id, entry := range p.entries {
		if !now.Before(entry.expires) {
			delete(p.entries, id)
		}
	}
}
