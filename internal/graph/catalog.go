package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when a chain name is unknown.
var ErrNotFound = errors.New("job chain not found")

// Catalog is an in-memory, thread-safe set of definitions keyed by name.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewCatalog creates a catalog holding the given definitions.
func NewCatalog(defs ...*Definition) *Catalog {
	c := &Catalog{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		c.Add(d)
	}
	return c
}

// Add registers a definition under its name, replacing any previous one.
func (c *Catalog) Add(d *Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs[d.Name()] = d
}

// Lookup returns the definition registered under name.
func (c *Catalog) Lookup(ctx context.Context, name string) (*Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return d, nil
}
