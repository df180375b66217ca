package blacklist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultSweepInterval = 5 * time.Minute

// memoryStore is the in-process fallback deny-list. Entries carry an absolute
// expiry timestamp; a background loop sweeps expired entries at a fixed
// interval, and lookups also check expiry so a not-yet-swept entry never
// reads as revoked.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time

	logger   *zap.Logger
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

var _ Store = (*memoryStore)(nil)

// NewMemoryStore creates an in-memory Store sweeping at the given interval.
func NewMemoryStore(sweepInterval time.Duration, logger *zap.Logger) Store {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &memoryStore{
		entries: make(map[string]time.Time),
		logger:  logger,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go s.sweepLoop(sweepInterval)
	return s
}

func (s *memoryStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	s.mu.RLock()
	expiresAt, ok := s.entries[token]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return s.now().Before(expiresAt), nil
}

func (s *memoryStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	expiresAt := s.now().Add(ttl)
	s.mu.Lock()
	s.entries[token] = expiresAt
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}

func (s *memoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.sweep(s.now()); removed > 0 {
				s.logger.Debug("swept expired revocations", zap.Int("removed", removed))
			}
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, expiresAt := range s.entries {
		if !now.Before(expiresAt) {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}
