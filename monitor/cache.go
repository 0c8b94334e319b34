package monitor

import (
	"slices"

	"go.uber.org/atomic"
)

// Cache holds the current snapshot. Store swaps in a whole snapshot at once,
// so a reader sees either the previous cycle or the new one, never a mix.
type Cache struct {
	current  atomic.Pointer[Snapshot]
	fallback *Snapshot
}

func NewCache() *Cache {
	return &Cache{fallback: DefaultSnapshot()}
}

// Load returns the latest snapshot, or the default one before the first Store.
// Callers must not modify it.
func (c *Cache) Load() *Snapshot {
	if s := c.current.Load(); s != nil {
		return s
	}
	return c.fallback
}

// Store publishes s. The cache keeps its own copy.
func (c *Cache) Store(s Snapshot) {
	if s.Validators == nil {
		s.Validators = []ValidatorView{}
	} else {
		s.Validators = slices.Clone(s.Validators)
	}
	c.current.Store(&s)
}

// Populated reports whether a refresh has completed.
func (c *Cache) Populated() bool {
	return c.current.Load() != nil
}
