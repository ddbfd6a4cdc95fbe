package cache

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrMaterializing is returned when a lookup re-enters a name whose early
// reference factory is still running.
var ErrMaterializing = errors.New("early reference is being materialized")

type Tier int

const (
	TierAbsent Tier = iota
	TierFactory
	TierMaterializing
	TierEarly
	TierFinished
)

func (t Tier) String() string {
	switch t {
	case TierAbsent:
		return "absent"
	case TierFactory:
		return "factory"
	case TierMaterializing:
		return "materializing"
	case TierEarly:
		return "early"
	case TierFinished:
		return "finished"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Factory produces the early reference view of an instance under construction.
type Factory func() (any, error)

// slot holds exactly one tier for a name. value is set for Early and Finished,
// factory for Factory and Materializing.
type slot struct {
	tier    Tier
	value   any
	factory Factory
}

type Cache struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

func New() *Cache {
	return &Cache{
		slots: make(map[string]*slot),
	}
}

// Lookup returns the finished instance, the memoized early reference, or the
// result of invoking the registered factory, in that order. The factory runs
// at most once per registration.
func (c *Cache) Lookup(name string) (any, bool, error) {
	c.mu.RLock()
	s, ok := c.slots[name]
	if !ok {
		c.mu.RUnlock()
		return nil, false, nil
	}
	switch s.tier {
	case TierFinished, TierEarly:
		value := s.value
		c.mu.RUnlock()
		return value, true, nil
	}
	c.mu.RUnlock()

	return c.materialize(name)
}

func (c *Cache) materialize(name string) (any, bool, error) {
	c.mu.Lock()
	s, ok := c.slots[name]
	if !ok {
		c.mu.Unlock()
		return nil, false, nil
	}

	switch s.tier {
	case TierFinished, TierEarly:
		value := s.value
		c.mu.Unlock()
		return value, true, nil
	case TierMaterializing:
		c.mu.Unlock()
		return nil, false, fmt.Errorf("%s: %w", name, ErrMaterializing)
	}

	factory := s.factory
	s.tier = TierMaterializing
	c.mu.Unlock()

	value, err := factory()

	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.slots[name]
	if !ok || current != s {
		// discarded or replaced while the factory ran
		if err != nil {
			return nil, false, err
		}
		return value, true, nil
	}

	if err != nil {
		delete(c.slots, name)
		return nil, false, err
	}

	s.tier = TierEarly
	s.value = value
	s.factory = nil
	return value, true, nil
}

// RegisterFactory installs an early reference factory for name unless name is
// already finished. Any early reference left from a previous registration is
// dropped.
func (c *Cache) RegisterFactory(name string, factory Factory) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.slots[name]; ok && s.tier == TierFinished {
		return false
	}

	c.slots[name] = &slot{tier: TierFactory, factory: factory}
	return true
}

// Promote moves name into the finished tier. A finished instance is never
// replaced: the existing one is returned together with false.
func (c *Cache) Promote(name string, value any) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.slots[name]; ok && s.tier == TierFinished {
		return s.value, false
	}

	c.slots[name] = &slot{tier: TierFinished, value: value}
	return value, true
}

// Discard drops an unfinished slot. Finished instances are left alone.
func (c *Cache) Discard(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[name]
	if !ok || s.tier == TierFinished {
		return false
	}
	delete(c.slots, name)
	return true
}

// Evict removes a finished instance and returns it.
func (c *Cache) Evict(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[name]
	if !ok || s.tier != TierFinished {
		return nil, false
	}
	delete(c.slots, name)
	return s.value, true
}

// Peek reports the tier of name and its value without invoking a factory.
func (c *Cache) Peek(name string) (any, Tier) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.slots[name]
	if !ok {
		return nil, TierAbsent
	}
	return s.value, s.tier
}

func (c *Cache) Tier(name string) Tier {
	_, tier := c.Peek(name)
	return tier
}

func (c *Cache) Finished(name string) (any, bool) {
	value, tier := c.Peek(name)
	if tier != TierFinished {
		return nil, false
	}
	return value, true
}

func (c *Cache) Snapshot() map[string]Tier {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]Tier, len(c.slots))
	for name, s := range c.slots {
		snapshot[name] = s.tier
	}
	return snapshot
}

// Names returns the sorted names currently held in the given tier.
func (c *Cache) Names(tier Tier) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var names []string
	for name, s := range c.slots {
		if s.tier == tier {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.slots)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.slots = make(map[string]*slot)
}
