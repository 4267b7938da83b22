package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/quarry/resource"
)

// LRU is a size-bounded least-recently-used cache keyed by string.
// It is safe for concurrent use.
type LRU[V any] struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	sizeOf    func(V) int64
	items     map[string]*list.Element
	evictList *list.List
	rc        *resource.Controller
	onEvict   func(key string, v V)

	hits   atomic.Int64
	misses atomic.Int64
}

type entry[V any] struct {
	key   string
	value V
	size  int64
}

// NewLRU creates a cache holding at most capacity bytes as measured by sizeOf.
// If rc is non-nil, cached bytes are also reserved against its memory limit.
func NewLRU[V any](capacity int64, sizeOf func(V) int64, rc *resource.Controller) *LRU[V] {
	return &LRU[V]{
		capacity:  capacity,
		sizeOf:    sizeOf,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// OnEvict registers fn to be called with every entry that leaves the cache.
func (c *LRU[V]) OnEvict(fn func(key string, v V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get returns the cached value for key.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(el)
		return el.Value.(*entry[V]).value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Set caches v under key and reports whether it was admitted.
// Values larger than the capacity, or denied by the resource controller, are not cached.
func (c *LRU[V]) Set(key string, v V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := c.sizeOf(v)
	if size > c.capacity {
		return false
	}
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	for c.size+size > c.capacity {
		el := c.evictList.Back()
		if el == nil {
			break
		}
		c.removeElement(el)
	}
	if !c.rc.TryAcquireMemory(size) {
		return false
	}

	c.items[key] = c.evictList.PushFront(&entry[V]{key: key, value: v, size: size})
	c.size += size
	return true
}

// Remove drops key from the cache.
func (c *LRU[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Size returns the cached bytes.
func (c *LRU[V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns hit and miss counts.
func (c *LRU[V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close evicts every entry and releases its memory reservation.
func (c *LRU[V]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for el := c.evictList.Back(); el != nil; el = c.evictList.Back() {
		c.removeElement(el)
	}
	return nil
}

func (c *LRU[V]) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	e := el.Value.(*entry[V])
	delete(c.items, e.key)
	c.size -= e.size
	c.rc.ReleaseMemory(e.size)
	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}
