package cache

import (
	"container/list"
	"sync"
)

const DefaultCapacity = 100

type entry[V any] struct {
	key   string
	value V
}

// Bounded is a fixed-capacity map with strict FIFO eviction. Reads do not
// refresh an entry's position, and overwriting an existing key keeps its
// original insertion slot.
type Bounded[V any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

func NewBounded[V any](capacity int) *Bounded[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bounded[V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

func (c *Bounded[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		return el.Value.(*entry[V]).value, true
	}
	var zero V
	return zero, false
}

func (c *Bounded[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry[V]).value = value
		return
	}

	if len(c.items) >= c.capacity {
		if oldest := c.order.Front(); oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry[V]).key)
		}
	}

	c.items[key] = c.order.PushBack(&entry[V]{key: key, value: value})
}

func (c *Bounded[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Bounded[V]) Capacity() int {
	return c.capacity
}

func (c *Bounded[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}
