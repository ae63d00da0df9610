package di

import (
	"reflect"
	"sync"
)

// singletonSlot holds the instance of one Singleton binding. Its mutex makes
// population a compute-once operation.
type singletonSlot struct {
	mu sync.Mutex
	h  *handle
}

// singletonCache provides thread-safe caching for Singleton instances
type singletonCache struct {
	mu     sync.Mutex
	slots  map[*Binding]*singletonSlot
	order  []*handle // creation order, disposed in reverse
	closed bool
}

// newSingletonCache creates a new singleton cache
func newSingletonCache() *singletonCache {
	return &singletonCache{
		slots: make(map[*Binding]*singletonSlot),
	}
}

func (c *singletonCache) slot(b *Binding) (*singletonSlot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrInjectorClosed
	}

	s, ok := c.slots[b]
	if !ok {
		s = &singletonSlot{}
		c.slots[b] = s
	}
	return s, nil
}

// get returns the instance of b, invoking create at most once across
// concurrent callers. A failed create leaves the slot empty so a later call
// retries. created reports whether this call populated the slot.
func (c *singletonCache) get(b *Binding, create func() (reflect.Value, error)) (h *handle, created bool, err error) {
	s, err := c.slot(b)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.h != nil {
		return s.h, false, nil
	}

	v, err := create()
	if err != nil {
		return nil, false, err
	}

	h = newHandle(v, b.Key.Type)
	h.borrowed = !b.ownsInstances()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = h.release()
		return nil, false, ErrInjectorClosed
	}
	c.order = append(c.order, h)
	c.mu.Unlock()

	s.h = h
	return h, true, nil
}

// size returns the number of populated singletons.
func (c *singletonCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// dispose releases the cache's reference to every singleton in reverse
// creation order. Instances still referenced through Shared handles are
// closed when their last reference is released.
func (c *singletonCache) dispose() []error {
	c.mu.Lock()
	order := c.order
	c.order = nil
	c.slots = make(map[*Binding]*singletonSlot)
	c.closed = true
	c.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		if err := order[i].release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
