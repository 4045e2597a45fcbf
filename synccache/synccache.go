// Package synccache implements spec.md §4.8: per-scope in-memory indices
// over notebooks, tags, and saved searches, loaded lazily from the local
// store and consulted by the resolvers during conflict resolution. The
// teacher has no direct analogue — session.Store and the services package
// always round-trip to SQLite per call — so this generalizes that
// lazy-init-behind-a-mutex shape (session.Store.GetByUserID) into a
// typed, fillable index instead of adding a cache ad hoc per resolver.
package synccache

import (
	"context"
	"fmt"
	"sync"

	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/model"
)

// Container is the set of entity kinds a Cache can index: Notebook, Tag,
// and SavedSearch all satisfy it via their Base/Renamed methods. It is
// self-referential (F-bounded) so generic code can both read the shared
// fields and produce a renamed copy of the same concrete type.
type Container[T any] interface {
	Base() model.ContainerBase
	Renamed(suffix string) T
	Stamped(localID model.LocalID, linkedNotebookGUID model.GUID) T
}

// lister is whichever LocalStoreGateway method lists every container of
// one kind within a scope.
type lister[T Container[T]] func(ctx context.Context, scope model.Scope) ([]T, error)

// Cache is a single scope's index for one container kind (spec.md §4.8):
// a mapping from name to local entity and from guid to local entity.
// Resolvers call Fill once per scope per session and wait for it to
// return before reading.
type Cache[T Container[T]] struct {
	scope model.Scope
	list  lister[T]

	mu     sync.RWMutex
	filled bool
	byName map[string]T
	byGUID map[model.GUID]T
}

func newCache[T Container[T]](scope model.Scope, list lister[T]) *Cache[T] {
	return &Cache[T]{
		scope:  scope,
		list:   list,
		byName: make(map[string]T),
		byGUID: make(map[model.GUID]T),
	}
}

// Filled reports whether Fill has completed successfully at least once
// (spec.md §4.8 "isFilled()").
func (c *Cache[T]) Filled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filled
}

// Fill loads every container of this kind in scope from the local store
// (spec.md §4.8 "fill()"). It is idempotent: once filled, later calls are
// a no-op so resolvers sharing a scope don't refetch on every lookup.
func (c *Cache[T]) Fill(ctx context.Context) error {
	if c.Filled() {
		return nil
	}

	items, err := c.list(ctx, c.scope)
	if err != nil {
		return fmt.Errorf("synccache: fill scope %q: %w", c.scope, err)
	}

	byName := make(map[string]T, len(items))
	byGUID := make(map[model.GUID]T, len(items))
	for _, item := range items {
		base := item.Base()
		byName[base.Name] = item
		if base.GUID != "" {
			byGUID[base.GUID] = item
		}
	}

	c.mu.Lock()
	c.byName = byName
	c.byGUID = byGUID
	c.filled = true
	c.mu.Unlock()
	return nil
}

// ByName returns the locally-known entity with the given name, if any.
func (c *Cache[T]) ByName(name string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.byName[name]
	return v, ok
}

// ByGUID returns the locally-known entity with the given guid, if any.
func (c *Cache[T]) ByGUID(guid model.GUID) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.byGUID[guid]
	return v, ok
}

// Put records a freshly added or updated entity so the cache stays
// consistent with the local store without a full refill. Callers invoke
// this right after a successful local-store write.
func (c *Cache[T]) Put(item T) {
	base := item.Base()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName[base.Name] = item
	if base.GUID != "" {
		c.byGUID[base.GUID] = item
	}
}

// Remove drops an entity from the cache after a local expunge.
func (c *Cache[T]) Remove(item T) {
	base := item.Base()
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byName, base.Name)
	if base.GUID != "" {
		delete(c.byGUID, base.GUID)
	}
}

// Registry owns the per-scope Cache instances for all three container
// kinds: one for the user's own scope ("" per model.OwnScope), and one per
// linked-notebook guid, created on demand (spec.md §4.8).
type Registry struct {
	gw gateway.LocalStoreGateway

	mu        sync.Mutex
	notebooks map[model.Scope]*Cache[model.Notebook]
	tags      map[model.Scope]*Cache[model.Tag]
	searches  map[model.Scope]*Cache[model.SavedSearch]
}

// NewRegistry returns a Registry backed by gw. No caches are created or
// filled until first requested.
func NewRegistry(gw gateway.LocalStoreGateway) *Registry {
	return &Registry{
		gw:        gw,
		notebooks: make(map[model.Scope]*Cache[model.Notebook]),
		tags:      make(map[model.Scope]*Cache[model.Tag]),
		searches:  make(map[model.Scope]*Cache[model.SavedSearch]),
	}
}

// Notebooks returns (creating if necessary) the notebook cache for scope.
func (r *Registry) Notebooks(scope model.Scope) *Cache[model.Notebook] {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.notebooks[scope]
	if !ok {
		c = newCache[model.Notebook](scope, r.gw.ListNotebooks)
		r.notebooks[scope] = c
	}
	return c
}

// Tags returns (creating if necessary) the tag cache for scope.
func (r *Registry) Tags(scope model.Scope) *Cache[model.Tag] {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.tags[scope]
	if !ok {
		c = newCache[model.Tag](scope, r.gw.ListTags)
		r.tags[scope] = c
	}
	return c
}

// SavedSearches returns (creating if necessary) the saved-search cache for
// scope.
func (r *Registry) SavedSearches(scope model.Scope) *Cache[model.SavedSearch] {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.searches[scope]
	if !ok {
		c = newCache[model.SavedSearch](scope, r.gw.ListSavedSearches)
		r.searches[scope] = c
	}
	return c
}
