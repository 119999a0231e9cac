package jobs

import (
	"sync"
	"time"
)

const defaultTTL = 15 * time.Minute

// Store holds jobs that are waiting on a user decision, keyed by job ID.
// Entries expire after a TTL so abandoned prompts do not pile up.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]storeEntry
	now     func() time.Time
}

type storeEntry struct {
	job     *TransferJob
	expires time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		ttl:     ttl,
		entries: make(map[string]storeEntry),
		now:     time.Now,
	}
}

func (s *Store) Put(job *TransferJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	s.entries[job.ID] = storeEntry{job: job, expires: s.now().Add(s.ttl)}
}

// Take removes and returns the job for id, or nil if it is unknown or
// expired.
func (s *Store) Take(id string) *TransferJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	entry, ok := s.entries[id]
	if !ok {
		return nil
	}
	delete(s.entries, id)
	return entry.job
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	return len(s.entries)
}

func (s *Store) evictLocked() {
	now := s.now()
	for id, entry := range s.entries {
		if now.After(entry.expires) {
			delete(s.entries, id)
		}
	}
}
