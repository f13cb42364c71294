package runtime

import (
	"sync"

	"github.com/PixPMusic/gopher-mixer/internal/bindings"
)

// feedbackCache holds the last-known-good value sent to (or destined for)
// each hardware control. Shared by the event path and the reconcile loop;
// one writer at a time under the lock.
type feedbackCache struct {
	mu     sync.Mutex
	values map[bindings.Key]float64
}

func newFeedbackCache() *feedbackCache {
	return &feedbackCache{values: make(map[bindings.Key]float64)}
}

func (c *feedbackCache) Get(key bindings.Key) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	return value, ok
}

func (c *feedbackCache) Set(key bindings.Key, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

func (c *feedbackCache) Remove(key bindings.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}

// Snapshot copies the cache so callers can iterate without holding the lock.
func (c *feedbackCache) Snapshot() map[bindings.Key]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[bindings.Key]float64, len(c.values))
	for key, value := range c.values {
		out[key] = value
	}
	return out
}
