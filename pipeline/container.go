package pipeline

import (
	"context"

	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/model"
	"github.com/vesperpad/sync-engine/resolver"
	"github.com/vesperpad/sync-engine/synccache"
)

// findLinkedNotebookByGUID scans the (small, user-bounded) list of linked
// notebooks; LocalStoreGateway exposes no per-guid lookup for them since
// spec.md §6 only lists ListAllLinkedNotebooks.
func findLinkedNotebookByGUID(ctx context.Context, gw gateway.LocalStoreGateway, guid model.GUID) (*model.LinkedNotebook, error) {
	all, err := gw.ListAllLinkedNotebooks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].GUID == guid {
			return &all[i], nil
		}
	}
	return nil, nil
}

// containerAccessor adapts one entity kind's LocalStoreGateway methods to
// reconcileContainers, which is otherwise identical across notebooks,
// tags, and saved searches (spec.md §4.3's find-by-guid/find-by-name
// probe sequence).
type containerAccessor[T synccache.Container[T]] struct {
	FindByGUID func(ctx context.Context, guid model.GUID) (*T, error)
	FindByName func(ctx context.Context, name string, scope model.Scope) (*T, error)
	Add        func(ctx context.Context, item T) error
	Update     func(ctx context.Context, item T) error
}

func reconcileContainers[T synccache.Container[T]](ctx context.Context, scope model.Scope, remoteItems []T, cache *synccache.Cache[T], gw containerAccessor[T]) (added, updated int, err error) {
	if err := cache.Fill(ctx); err != nil {
		return 0, 0, err
	}

	for _, remote := range remoteItems {
		var local *T
		if remote.Base().GUID != "" {
			l, err := gw.FindByGUID(ctx, remote.Base().GUID)
			if err != nil {
				return added, updated, err
			}
			local = l
		}
		if local == nil {
			l, err := gw.FindByName(ctx, remote.Base().Name, scope)
			if err != nil {
				return added, updated, err
			}
			local = l
		}

		decision := resolver.ResolveContainer[T](remote, local, cache)
		switch decision.Outcome {
		case resolver.UseLocal:
			continue
		case resolver.DuplicateLocal:
			if decision.RenamedLocal != nil {
				if err := gw.Update(ctx, *decision.RenamedLocal); err != nil {
					return added, updated, err
				}
				cache.Put(*decision.RenamedLocal)
			}
		}

		entity := decision.Entity
		if local == nil {
			entity = entity.Stamped(model.NewLocalID(), model.GUID(scope))
			if err := gw.Add(ctx, entity); err != nil {
				return added, updated, err
			}
			added++
		} else {
			entity = entity.Stamped((*local).Base().LocalID, model.GUID(scope))
			if err := gw.Update(ctx, entity); err != nil {
				return added, updated, err
			}
			updated++
		}
		cache.Put(entity)
	}
	return added, updated, nil
}

func (p *Pipeline) reconcileSavedSearches(ctx context.Context, scope model.Scope, remote []model.SavedSearch) (int, int, error) {
	return reconcileContainers(ctx, scope, remote, p.caches.SavedSearches(scope), containerAccessor[model.SavedSearch]{
		FindByGUID: p.gw.FindSavedSearchByGUID,
		FindByName: p.gw.FindSavedSearchByName,
		Add:        p.gw.AddSavedSearch,
		Update:     p.gw.UpdateSavedSearch,
	})
}

func (p *Pipeline) reconcileNotebooks(ctx context.Context, scope model.Scope, remote []model.Notebook) (int, int, error) {
	return reconcileContainers(ctx, scope, remote, p.caches.Notebooks(scope), containerAccessor[model.Notebook]{
		FindByGUID: p.gw.FindNotebookByGUID,
		FindByName: p.gw.FindNotebookByName,
		Add:        p.gw.AddNotebook,
		Update:     p.gw.UpdateNotebook,
	})
}

func (p *Pipeline) reconcileTags(ctx context.Context, scope model.Scope, remote []model.Tag) (int, int, error) {
	cache := p.caches.Tags(scope)
	if err := cache.Fill(ctx); err != nil {
		return 0, 0, err
	}
	sorted := sortTagsTopologically(clearDanglingParents(remote, scope, cache), p.logger)
	return reconcileContainers(ctx, scope, sorted, cache, containerAccessor[model.Tag]{
		FindByGUID: p.gw.FindTagByGUID,
		FindByName: p.gw.FindTagByName,
		Add:        p.gw.AddTag,
		Update:     p.gw.UpdateTag,
	})
}

func (p *Pipeline) reconcileLinkedNotebooks(ctx context.Context, remote []model.LinkedNotebook) (added, updated int, err error) {
	for _, r := range remote {
		decision := resolver.ResolveLinkedNotebook(r)
		entity := decision.Entity

		existing, findErr := findLinkedNotebookByGUID(ctx, p.gw, entity.GUID)
		if findErr != nil {
			return added, updated, findErr
		}
		if existing == nil {
			entity.LocalID = model.NewLocalID()
			if err := p.gw.AddLinkedNotebook(ctx, entity); err != nil {
				return added, updated, err
			}
			added++
			continue
		}
		entity.LocalID = existing.LocalID
		if err := p.gw.UpdateLinkedNotebook(ctx, entity); err != nil {
			return added, updated, err
		}
		updated++
	}
	return added, updated, nil
}
