package pool

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// Table is a set of named pools owned by the caller.
//
// Any number of tables may exist; a table holds no global state.
type Table struct {
	mu     sync.Mutex
	pools  map[string]*Pool
	logger *slog.Logger
	closed bool
}

// NewTable returns an empty table. Options are applied to every pool it
// allocates.
func NewTable(opts ...Option) *Table {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Table{pools: make(map[string]*Pool), logger: o.logger}
}

// Allocate creates a pool of size workers under name. It returns false if
// the name is already taken or the table is closed. Sizes below 1 are raised
// to 1.
func (t *Table) Allocate(name string, size int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	if _, ok := t.pools[name]; ok {
		return false
	}
	t.pools[name] = New(max(size, 1), WithLogger(t.logger))
	return true
}

// Get returns the pool registered under name.
func (t *Table) Get(name string) (*Pool, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pools[name]
	return p, ok
}

// Names returns the registered pool names in sorted order.
func (t *Table) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.pools))
	for name := range t.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every pool in the table.
func (t *Table) Close() error {
	t.mu.Lock()
	pools := t.pools
	t.pools = make(map[string]*Pool)
	t.closed = true
	t.mu.Unlock()

	var errs []error
	for _, p := range pools {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
