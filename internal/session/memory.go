package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwbudde/algo-keytune/internal/metrics"
)

const memoryBackend = "memory"

// MemoryStore keeps entries in process memory. A janitor removes expired
// entries every cleanup interval. With a positive byte budget the oldest
// entries are evicted to make room for new ones.
type MemoryStore struct {
	cache    *cache.Cache
	ttl      time.Duration
	maxBytes int64

	putMu sync.Mutex
	bytes atomic.Int64
}

// NewMemoryStore returns a store whose entries live for ttl and whose clips
// together stay within maxBytes. maxBytes <= 0 disables the budget.
func NewMemoryStore(ttl, cleanup time.Duration, maxBytes int64) *MemoryStore {
	s := &MemoryStore{cache: cache.New(ttl, cleanup), ttl: ttl, maxBytes: maxBytes}
	s.cache.OnEvicted(func(_ string, v interface{}) {
		if e, ok := v.(*Entry); ok {
			s.bytes.Add(-e.Size())
		}
		metrics.SessionEvictions.With(prometheus.Labels{"backend": memoryBackend}).Inc()
		s.updateGauge()
	})
	return s
}

// Put stores e, evicting the oldest entries while the budget would be
// exceeded. An entry larger than the whole budget fails with ErrTooLarge.
func (s *MemoryStore) Put(_ context.Context, e *Entry) error {
	size := e.Size()
	if s.maxBytes > 0 && size > s.maxBytes {
		return ErrTooLarge
	}

	s.putMu.Lock()
	defer s.putMu.Unlock()

	// Replacing a token must release the old clip's bytes.
	s.cache.Delete(e.Token)
	if s.maxBytes > 0 && s.bytes.Load()+size > s.maxBytes {
		s.cache.DeleteExpired()
		for s.bytes.Load()+size > s.maxBytes && s.evictOldest() {
		}
	}

	s.cache.Set(e.Token, e, cache.DefaultExpiration)
	s.bytes.Add(size)
	metrics.SessionsStored.With(prometheus.Labels{"backend": memoryBackend}).Inc()
	s.updateGauge()
	return nil
}

// evictOldest removes the entry closest to expiry. It reports false when the
// store is empty.
func (s *MemoryStore) evictOldest() bool {
	var (
		oldest string
		expiry int64
	)
	for token, item := range s.cache.Items() {
		if oldest == "" || item.Expiration < expiry {
			oldest, expiry = token, item.Expiration
		}
	}
	if oldest == "" {
		return false
	}
	s.cache.Delete(oldest)
	return true
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Entry, error) {
	item, found := s.cache.Get(token)
	if !found {
		return nil, ErrNotFound
	}
	return item.(*Entry), nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.cache.Delete(token)
	return nil
}

// Len returns the number of entries, including expired ones the janitor
// has not removed yet.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}

// Bytes returns the clip bytes currently held.
func (s *MemoryStore) Bytes() int64 {
	return s.bytes.Load()
}

func (s *MemoryStore) Close() error {
	s.cache.Flush()
	s.bytes.Store(0)
	s.updateGauge()
	return nil
}

func (s *MemoryStore) updateGauge() {
	metrics.SessionNumItems.With(prometheus.Labels{"backend": memoryBackend}).Set(float64(s.cache.ItemCount()))
}
