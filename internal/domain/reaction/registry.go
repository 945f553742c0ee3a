package reaction

import (
	"sync/atomic"
)

// Registry holds the catalog in use. Readers always see a complete catalog;
// a reload swaps it atomically.
type Registry struct {
	current atomic.Pointer[Catalog]
}

// NewRegistry returns a registry serving c, or the built-in catalog when c
// is nil.
func NewRegistry(c *Catalog) *Registry {
	if c == nil {
		c = DefaultCatalog()
	}
	r := &Registry{}
	r.current.Store(c)
	return r
}

// Current returns the catalog in use.
func (r *Registry) Current() *Catalog {
	return r.current.Load()
}

// Swap installs c and returns the catalog it replaced.
func (r *Registry) Swap(c *Catalog) *Catalog {
	return r.current.Swap(c)
}

// LoadFile validates the catalog at path and installs it. On error the
// current catalog stays in place.
func (r *Registry) LoadFile(path string) (*Catalog, error) {
	c, err := LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	r.Swap(c)
	return c, nil
}
