package session

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore keeps slots in process memory. Suitable for single-instance
// deployments and tests.
type MemoryStore struct {
	cache *ttlcache.Cache[string, string]
}

// NewMemoryStore creates a store; a zero ttl keeps slots until cleared.
// Call Close to stop the expiry loop.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	opts := []ttlcache.Option[string, string]{ttlcache.WithDisableTouchOnHit[string, string]()}
	if ttl > 0 {
		opts = append(opts, ttlcache.WithTTL[string, string](ttl))
	}
	cache := ttlcache.New(opts...)
	go cache.Start()
	return &MemoryStore{cache: cache}
}

func (s *MemoryStore) GetActiveSessionID(_ context.Context, userID string) (*string, error) {
	item := s.cache.Get(userID)
	if item == nil {
		return nil, nil
	}
	sid := item.Value()
	return &sid, nil
}

func (s *MemoryStore) SetActiveSessionID(_ context.Context, userID string, sessionID *string) error {
	if sessionID == nil {
		s.cache.Delete(userID)
		return nil
	}
	s.cache.Set(userID, *sessionID, ttlcache.DefaultTTL)
	return nil
}

// Close stops the expiry loop.
func (s *MemoryStore) Close() {
	s.cache.Stop()
}
