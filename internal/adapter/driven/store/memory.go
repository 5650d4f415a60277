package store

import (
	"context"
	"sync"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/repository"
)

// MemoryStore is a process-local CounterStore. It is enough for `watch`, where every evaluation
// runs in the same process; separate invocations need the SQLite store.
type MemoryStore struct {
	mu    sync.Mutex
	units map[string][]time.Time
}

var _ repository.CounterStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{units: make(map[string][]time.Time)}
}

// Get retorna quantas unidades de key ainda não expiraram em now.
func (s *MemoryStore) Get(_ context.Context, key string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.prune(key, now))), nil
}

// IncrementWithTTL adds one unit expiring at now+ttl and returns the live count.
func (s *MemoryStore) IncrementWithTTL(_ context.Context, key string, now time.Time, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := append(s.prune(key, now), now.Add(ttl))
	s.units[key] = live
	return int64(len(live)), nil
}

// prune descarta as unidades expiradas; o chamador segura o lock.
func (s *MemoryStore) prune(key string, now time.Time) []time.Time {
	units := s.units[key]
	live := units[:0]
	for _, exp := range units {
		if exp.After(now) {
			live = append(live, exp)
		}
	}
	if len(live) == 0 {
		delete(s.units, key)
		return nil
	}
	s.units[key] = live
	return live
}
