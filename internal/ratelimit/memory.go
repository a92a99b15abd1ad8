package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type entry struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps counters in process memory.  Counters are lost when the
// process restarts and are not shared between instances.
type MemoryStore struct {
	clock   clockwork.Clock
	mu      sync.Mutex
	entries map[string]*entry
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryStore creates a store.  When sweepEvery is positive a background
// goroutine drops expired entries; call Stop on shutdown.
func NewMemoryStore(clock clockwork.Clock, sweepEvery time.Duration) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &MemoryStore{clock: clock, entries: make(map[string]*entry), stop: make(chan struct{})}
	if sweepEvery > 0 {
		go s.sweepLoop(sweepEvery)
	}
	return s
}

// Allow implements Limiter.
func (s *MemoryStore) Allow(_ context.Context, identity string, limit int, window time.Duration) Decision {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[identity]
	if !ok || !now.Before(e.resetAt) {
		e = &entry{count: 1, resetAt: now.Add(window)}
		s.entries[identity] = e
		return decide(limit >= 1, 1, limit, window)
	}
	if e.count < limit {
		e.count++
		return decide(true, e.count, limit, e.resetAt.Sub(now))
	}
	return decide(false, e.count, limit, e.resetAt.Sub(now))
}

// Len returns the number of tracked identities.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes entries whose window has elapsed.
func (s *MemoryStore) Sweep() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if !now.Before(e.resetAt) {
			delete(s.entries, k)
		}
	}
}

// Stop terminates the sweeper.
func (s *MemoryStore) Stop() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) sweepLoop(every time.Duration) {
	ticker := s.clock.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.Chan():
			s.Sweep()
		}
	}
}
