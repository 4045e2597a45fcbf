package synccache

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/model"
)

func TestCacheFillIsIdempotent(t *testing.T) {
	calls := 0
	list := func(ctx context.Context, scope model.Scope) ([]model.Tag, error) {
		calls++
		return []model.Tag{
			{ContainerBase: model.ContainerBase{GUID: "g1", Name: "work"}},
		}, nil
	}
	c := newCache[model.Tag](model.OwnScope, list)

	assert.False(t, c.Filled())
	require.NoError(t, c.Fill(context.Background()))
	assert.True(t, c.Filled())
	require.NoError(t, c.Fill(context.Background()))
	assert.Equal(t, 1, calls, "second Fill must not refetch")

	tag, ok := c.ByName("work")
	require.True(t, ok)
	assert.Equal(t, model.GUID("g1"), tag.GUID)

	byGUID, ok := c.ByGUID("g1")
	require.True(t, ok)
	assert.Equal(t, "work", byGUID.Name)
}

func TestCacheFillPropagatesError(t *testing.T) {
	list := func(ctx context.Context, scope model.Scope) ([]model.Tag, error) {
		return nil, fmt.Errorf("boom")
	}
	c := newCache[model.Tag](model.OwnScope, list)
	err := c.Fill(context.Background())
	assert.Error(t, err)
	assert.False(t, c.Filled())
}

func TestCachePutAndRemove(t *testing.T) {
	c := newCache[model.Notebook](model.OwnScope, func(ctx context.Context, scope model.Scope) ([]model.Notebook, error) {
		return nil, nil
	})
	require.NoError(t, c.Fill(context.Background()))

	nb := model.Notebook{ContainerBase: model.ContainerBase{GUID: "nb1", Name: "Personal"}}
	c.Put(nb)
	got, ok := c.ByName("Personal")
	require.True(t, ok)
	assert.Equal(t, model.GUID("nb1"), got.GUID)

	c.Remove(nb)
	_, ok = c.ByName("Personal")
	assert.False(t, ok)
	_, ok = c.ByGUID("nb1")
	assert.False(t, ok)
}

// registryFake implements gateway.LocalStoreGateway just enough to drive
// Registry's lazy per-scope construction; every method outside the three
// List* calls under test panics if invoked.
type registryFake struct {
	gateway.LocalStoreGateway
	notebooks map[model.Scope][]model.Notebook
}

func (f *registryFake) ListNotebooks(ctx context.Context, scope model.Scope) ([]model.Notebook, error) {
	return f.notebooks[scope], nil
}

func (f *registryFake) ListTags(ctx context.Context, scope model.Scope) ([]model.Tag, error) {
	return nil, nil
}

func (f *registryFake) ListSavedSearches(ctx context.Context, scope model.Scope) ([]model.SavedSearch, error) {
	return nil, nil
}

func TestRegistryCreatesOneCachePerScope(t *testing.T) {
	fake := &registryFake{notebooks: map[model.Scope][]model.Notebook{
		model.OwnScope:      {{ContainerBase: model.ContainerBase{GUID: "own1", Name: "Own"}}},
		model.Scope("link1"): {{ContainerBase: model.ContainerBase{GUID: "ln1", Name: "Shared"}}},
	}}
	reg := NewRegistry(fake)

	own := reg.Notebooks(model.OwnScope)
	require.NoError(t, own.Fill(context.Background()))
	_, ok := own.ByName("Own")
	assert.True(t, ok)

	linked := reg.Notebooks(model.Scope("link1"))
	require.NoError(t, linked.Fill(context.Background()))
	_, ok = linked.ByName("Shared")
	assert.True(t, ok)
	_, ok = linked.ByName("Own")
	assert.False(t, ok, "scopes must not leak into each other")

	assert.Same(t, own, reg.Notebooks(model.OwnScope), "same scope must return the same cache instance")
}
