package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/vesperpad/sync-engine/model"
	"github.com/vesperpad/sync-engine/synccache"
)

// clearDanglingParents implements spec.md §4.3's linked-notebook rule:
// "when a tag from a linked notebook references a parent guid that is
// neither in the current chunk nor in that linked notebook's local
// cache, the parent reference is cleared before insertion."
func clearDanglingParents(tags []model.Tag, scope model.Scope, cache *synccache.Cache[model.Tag]) []model.Tag {
	if !scope.IsLinkedNotebook() {
		return tags
	}

	inChunk := make(map[model.GUID]struct{}, len(tags))
	for _, t := range tags {
		if t.GUID != "" {
			inChunk[t.GUID] = struct{}{}
		}
	}

	out := make([]model.Tag, len(tags))
	for i, t := range tags {
		if t.ParentGUID != "" {
			if _, ok := inChunk[t.ParentGUID]; !ok {
				if _, ok := cache.ByGUID(t.ParentGUID); !ok {
					t.ParentGUID = ""
				}
			}
		}
		out[i] = t
	}
	return out
}

// sortTagsTopologically orders tags so that every tag precedes its
// children (spec.md §4.3 "Tag ordering"), stably with respect to the
// input order. Cycles are broken first (spec.md §9: clear parentGuid on
// the youngest — highest-USN — tag in the cycle and log a warning),
// guaranteeing the subsequent sort terminates.
func sortTagsTopologically(tags []model.Tag, logger zerolog.Logger) []model.Tag {
	working := make([]model.Tag, len(tags))
	copy(working, tags)

	for breakFirstCycle(working, logger) {
	}
	return stableTopoSort(working)
}

// breakFirstCycle finds one parent-guid cycle among working (if any) and
// clears the parentGuid of its highest-USN member in place. It returns
// true if it broke a cycle (callers should call again to look for more),
// false once the graph is acyclic.
func breakFirstCycle(tags []model.Tag, logger zerolog.Logger) bool {
	index := make(map[model.GUID]int, len(tags))
	for i, t := range tags {
		if t.GUID != "" {
			index[t.GUID] = i
		}
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[model.GUID]int, len(tags))
	var path []model.GUID

	var visit func(guid model.GUID) bool
	visit = func(guid model.GUID) bool {
		i, ok := index[guid]
		if !ok {
			return false
		}
		switch state[guid] {
		case done:
			return false
		case inStack:
			start := 0
			for idx, g := range path {
				if g == guid {
					start = idx
					break
				}
			}
			cycle := path[start:]
			best := cycle[0]
			for _, g := range cycle[1:] {
				if tags[index[g]].UpdateSequenceNum > tags[index[best]].UpdateSequenceNum {
					best = g
				}
			}
			tags[index[best]].ParentGUID = ""
			logger.Warn().Str("tag_guid", string(best)).Msg("breaking tag parent-guid cycle")
			return true
		}

		state[guid] = inStack
		path = append(path, guid)
		if parent := tags[i].ParentGUID; parent != "" {
			if visit(parent) {
				return true
			}
		}
		path = path[:len(path)-1]
		state[guid] = done
		return false
	}

	for _, t := range tags {
		if t.GUID == "" {
			continue
		}
		if state[t.GUID] == unvisited {
			if visit(t.GUID) {
				return true
			}
		}
	}
	return false
}

// stableTopoSort assumes tags is acyclic and emits every tag after its
// parent, preserving the relative order of siblings.
func stableTopoSort(tags []model.Tag) []model.Tag {
	index := make(map[model.GUID]int, len(tags))
	for i, t := range tags {
		if t.GUID != "" {
			index[t.GUID] = i
		}
	}

	visited := make([]bool, len(tags))
	result := make([]model.Tag, 0, len(tags))

	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		if parent := tags[i].ParentGUID; parent != "" {
			if pi, ok := index[parent]; ok {
				visit(pi)
			}
		}
		result = append(result, tags[i])
	}

	for i := range tags {
		visit(i)
	}
	return result
}
