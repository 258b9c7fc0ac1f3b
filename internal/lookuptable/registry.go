package lookuptable

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrTableNotFound reports a (model, phase) pair with no table.
var ErrTableNotFound = errors.New("lookup table not found")

// Registry serves tables by key. Its contents are fixed at construction,
// so it is safe for concurrent use.
type Registry struct {
	tables map[Key]*Table
}

// NewRegistry creates a registry holding tables. Two tables with the same
// key are an error.
func NewRegistry(tables ...*Table) (*Registry, error) {
	r := &Registry{tables: make(map[Key]*Table, len(tables))}
	for _, t := range tables {
		key := t.Key()
		if prev, ok := r.tables[key]; ok {
			return nil, fmt.Errorf("duplicate lookup table %s in %q and %q", key, prev.Source, t.Source)
		}
		r.tables[key] = t
	}
	return r, nil
}

// LoadRegistry loads every table in dir into a new registry.
func LoadRegistry(ctx context.Context, dir string) (*Registry, error) {
	tables, err := LoadDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(tables...)
}

// Get returns the table for model and phase.
func (r *Registry) Get(model, phase string) (*Table, error) {
	key := NewKey(model, phase)
	t, ok := r.tables[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, key)
	}
	return t, nil
}

// Keys returns the registered keys sorted by model, then phase.
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.tables))
	for k := range r.tables {
		keys = append(keys, k)
	}

	slices.SortFunc(keys, func(a, b Key) int {
		if c := strings.Compare(a.Model, b.Model); c != 0 {
			return c
		}
		return strings.Compare(a.Phase, b.Phase)
	})
	return keys
}

// Len returns the number of tables.
func (r *Registry) Len() int { return len(r.tables) }
