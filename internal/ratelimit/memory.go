package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

const defaultMaxKeys = 10000

// ErrCapacity is returned when the memory limiter tracks too many live keys
var ErrCapacity = errors.New("rate limiter capacity exceeded")

type memoryBucket struct {
	count     int
	windowEnd time.Time
}

// MemoryLimiter keeps fixed-window counters in process. Suitable for a single replica.
type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	data    map[string]*memoryBucket
	maxKeys int
}

func NewMemoryLimiter(maxKeys int) *MemoryLimiter {
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	return &MemoryLimiter{
		now:     time.Now,
		data:    make(map[string]*memoryBucket),
		maxKeys: maxKeys,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.data[key]
	if !ok || now.After(bucket.windowEnd) {
		delete(m.data, key)
		if len(m.data) >= m.maxKeys {
			m.gc(now)
		}
		if len(m.data) >= m.maxKeys {
			return Decision{}, ErrCapacity
		}
		bucket = &memoryBucket{windowEnd: now.Add(window)}
		m.data[key] = bucket
	}

	if bucket.count < limit {
		bucket.count++
		return Decision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - bucket.count,
			ResetAt:   bucket.windowEnd,
		}, nil
	}

	return Decision{
		Allowed: false,
		Limit:   limit,
		ResetAt: bucket.windowEnd,
	}, nil
}

// Sweep drops expired windows. Run it periodically to bound memory.
func (m *MemoryLimiter) Sweep(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gc(m.now())
	return nil
}

// Len returns the number of tracked keys
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *MemoryLimiter) gc(now time.Time) {
	for key, bucket := range m.data {
		if now.After(bucket.windowEnd) {
			delete(m.data, key)
		}
	}
}
