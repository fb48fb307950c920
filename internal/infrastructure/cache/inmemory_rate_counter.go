package cache

import (
	"context"
	"sync"
	"time"

	"github.com/spiceshelf/backend/internal/domain/shared"
)

// InMemoryRateCounter implements RateCounter with per-key attempt timestamps.
// Suitable for single-instance deployments and testing; counts are not shared
// across processes.
type InMemoryRateCounter struct {
	mu        sync.Mutex
	attempts  map[string][]time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryRateCounter creates a new in-memory rate counter
func NewInMemoryRateCounter() *InMemoryRateCounter {
	c := &InMemoryRateCounter{
		attempts: make(map[string][]time.Time),
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Increment records one attempt for key and returns the attempt count within
// the rolling window ending now
func (c *InMemoryRateCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-window)

	kept := c.attempts[key][:0]
	for _, t := range c.attempts[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	c.attempts[key] = kept

	return int64(len(kept)), nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryRateCounter) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *InMemoryRateCounter) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup drops keys whose newest attempt is older than an hour. Window sizes
// in use are far below that, so this never discards countable attempts.
func (c *InMemoryRateCounter) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-time.Hour)
	for key, times := range c.attempts {
		if len(times) == 0 || times[len(times)-1].Before(cutoff) {
			delete(c.attempts, key)
		}
	}
}

var _ shared.RateCounter = (*InMemoryRateCounter)(nil)
