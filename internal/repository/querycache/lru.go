package querycache

import (
	"container/list"
	"sync"
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain/answer"
)

type entry struct {
	key        string
	value      answer.Result
	insertedAt time.Time
	element    *list.Element
}

// lru is a fixed-capacity, mutex-guarded LRU whose entries expire a fixed
// TTL after insertion. Reads refresh recency but not expiry.
type lru struct {
	mu       sync.Mutex
	entries  map[string]*entry
	order    *list.List // front = most recently used
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

func newLRU(capacity int, ttl time.Duration, now func() time.Time) *lru {
	if now == nil {
		now = time.Now
	}
	return &lru{
		entries:  make(map[string]*entry, capacity),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      now,
	}
}

// get returns the value and whether it was found; expired reports a stale hit
// that has been dropped.
func (c *lru) get(key string) (value answer.Result, ok, expired bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists {
		return answer.Result{}, false, false
	}
	if c.now().Sub(e.insertedAt) >= c.ttl {
		c.remove(e)
		return answer.Result{}, false, true
	}
	c.order.MoveToFront(e.element)
	return e.value, true, false
}

func (c *lru) put(key string, value answer.Result) {
	c.putAt(key, value, c.now())
}

// putAt keeps the original insertion time of an entry promoted from L2.
func (c *lru) putAt(key string, value answer.Result, insertedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.entries[key]; exists {
		e.value = value
		e.insertedAt = insertedAt
		c.order.MoveToFront(e.element)
		return
	}

	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*entry))
	}

	e := &entry{key: key, value: value, insertedAt: insertedAt}
	e.element = c.order.PushFront(e)
	c.entries[key] = e
}

func (c *lru) remove(e *entry) {
	c.order.Remove(e.element)
	delete(c.entries, e.key)
}

func (c *lru) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
