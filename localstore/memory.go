// Package localstore provides gateway.LocalStoreGateway implementations.
// Memory is an in-process, mutex-guarded store used by tests, the demo
// CLI command, and anywhere a real database is overkill; SQLite (sqlite.go)
// is the production-grade implementation grounded on the teacher's
// database.Repository (database/db.go, database/repository.go).
package localstore

import (
	"context"
	"sync"

	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/model"
)

// Memory is a trivial, fully in-memory LocalStoreGateway. It is not meant
// to survive process restarts; it exists for tests and the `demo` CLI
// command, which runs an entire sync session against fabricated remote
// data without touching disk.
type Memory struct {
	mu sync.Mutex

	notebooks     map[model.LocalID]model.Notebook
	tags          map[model.LocalID]model.Tag
	savedSearches map[model.LocalID]model.SavedSearch
	notes         map[model.LocalID]model.Note
	resources     map[model.LocalID]model.Resource
	linked        map[model.LocalID]model.LinkedNotebook
	users         []model.User
}

var _ gateway.LocalStoreGateway = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		notebooks:     make(map[model.LocalID]model.Notebook),
		tags:          make(map[model.LocalID]model.Tag),
		savedSearches: make(map[model.LocalID]model.SavedSearch),
		notes:         make(map[model.LocalID]model.Note),
		resources:     make(map[model.LocalID]model.Resource),
		linked:        make(map[model.LocalID]model.LinkedNotebook),
	}
}

func scopeOf(ln model.GUID) model.Scope { return model.Scope(ln) }

// --- Notebooks ---

func (m *Memory) FindNotebookByGUID(ctx context.Context, guid model.GUID) (*model.Notebook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, nb := range m.notebooks {
		if nb.GUID == guid {
			v := nb
			return &v, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindNotebookByName(ctx context.Context, name string, scope model.Scope) (*model.Notebook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, nb := range m.notebooks {
		if nb.Name == name && scopeOf(nb.LinkedNotebookGUID) == scope {
			v := nb
			return &v, nil
		}
	}
	return nil, nil
}

func (m *Memory) AddNotebook(ctx context.Context, nb model.Notebook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notebooks[nb.LocalID] = nb
	return nil
}

func (m *Memory) UpdateNotebook(ctx context.Context, nb model.Notebook) error {
	return m.AddNotebook(ctx, nb)
}

func (m *Memory) ExpungeNotebook(ctx context.Context, guid model.GUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, nb := range m.notebooks {
		if nb.GUID == guid {
			delete(m.notebooks, id)
		}
	}
	return nil
}

func (m *Memory) ListNotebookGUIDs(ctx context.Context, scope model.Scope) ([]model.GUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.GUID
	for _, nb := range m.notebooks {
		if scopeOf(nb.LinkedNotebookGUID) == scope && nb.GUID != "" {
			out = append(out, nb.GUID)
		}
	}
	return out, nil
}

func (m *Memory) ListNotebooks(ctx context.Context, scope model.Scope) ([]model.Notebook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notebook
	for _, nb := range m.notebooks {
		if scopeOf(nb.LinkedNotebookGUID) == scope {
			out = append(out, nb)
		}
	}
	return out, nil
}

// --- Tags ---

func (m *Memory) FindTagByGUID(ctx context.Context, guid model.GUID) (*model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if t.GUID == guid {
			v := t
			return &v, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindTagByName(ctx context.Context, name string, scope model.Scope) (*model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if t.Name == name && scopeOf(t.LinkedNotebookGUID) == scope {
			v := t
			return &v, nil
		}
	}
	return nil, nil
}

func (m *Memory) AddTag(ctx context.Context, t model.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[t.LocalID] = t
	return nil
}

func (m *Memory) UpdateTag(ctx context.Context, t model.Tag) error {
	return m.AddTag(ctx, t)
}

func (m *Memory) ExpungeTag(ctx context.Context, guid model.GUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tags {
		if t.GUID == guid {
			delete(m.tags, id)
		}
	}
	return nil
}

func (m *Memory) ListTagGUIDs(ctx context.Context, scope model.Scope) ([]model.GUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.GUID
	for _, t := range m.tags {
		if scopeOf(t.LinkedNotebookGUID) == scope && t.GUID != "" {
			out = append(out, t.GUID)
		}
	}
	return out, nil
}

func (m *Memory) ListTags(ctx context.Context, scope model.Scope) ([]model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Tag
	for _, t := range m.tags {
		if scopeOf(t.LinkedNotebookGUID) == scope {
			out = append(out, t)
		}
	}
	return out, nil
}

// --- Saved searches ---

func (m *Memory) FindSavedSearchByGUID(ctx context.Context, guid model.GUID) (*model.SavedSearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.savedSearches {
		if s.GUID == guid {
			v := s
			return &v, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindSavedSearchByName(ctx context.Context, name string, scope model.Scope) (*model.SavedSearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.savedSearches {
		if s.Name == name && scopeOf(s.LinkedNotebookGUID) == scope {
			v := s
			return &v, nil
		}
	}
	return nil, nil
}

func (m *Memory) AddSavedSearch(ctx context.Context, s model.SavedSearch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savedSearches[s.LocalID] = s
	return nil
}

func (m *Memory) UpdateSavedSearch(ctx context.Context, s model.SavedSearch) error {
	return m.AddSavedSearch(ctx, s)
}

func (m *Memory) ExpungeSavedSearch(ctx context.Context, guid model.GUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.savedSearches {
		if s.GUID == guid {
			delete(m.savedSearches, id)
		}
	}
	return nil
}

func (m *Memory) ListSavedSearchGUIDs(ctx context.Context, scope model.Scope) ([]model.GUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.GUID
	for _, s := range m.savedSearches {
		if scopeOf(s.LinkedNotebookGUID) == scope && s.GUID != "" {
			out = append(out, s.GUID)
		}
	}
	return out, nil
}

func (m *Memory) ListSavedSearches(ctx context.Context, scope model.Scope) ([]model.SavedSearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SavedSearch
	for _, s := range m.savedSearches {
		if scopeOf(s.LinkedNotebookGUID) == scope {
			out = append(out, s)
		}
	}
	return out, nil
}

// --- Notes ---

func (m *Memory) FindNoteByGUID(ctx context.Context, guid model.GUID) (*model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notes {
		if n.GUID == guid {
			v := n
			return &v, nil
		}
	}
	return nil, nil
}

func (m *Memory) AddNote(ctx context.Context, n model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[n.LocalID] = n
	return nil
}

func (m *Memory) UpdateNote(ctx context.Context, n model.Note) error {
	return m.AddNote(ctx, n)
}

func (m *Memory) SetNoteLocallyModified(ctx context.Context, localID model.LocalID, dirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[localID]
	if !ok {
		return nil
	}
	n.LocallyModified = dirty
	m.notes[localID] = n
	return nil
}

func (m *Memory) ExpungeNote(ctx context.Context, guid model.GUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, n := range m.notes {
		if n.GUID == guid {
			delete(m.notes, id)
		}
	}
	return nil
}

func (m *Memory) ListNoteGUIDs(ctx context.Context, scope model.Scope) ([]model.GUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.GUID
	for _, n := range m.notes {
		nb, ok := m.notebooks[n.NotebookLocalID]
		if !ok {
			continue
		}
		if scopeOf(nb.LinkedNotebookGUID) == scope && n.GUID != "" {
			out = append(out, n.GUID)
		}
	}
	return out, nil
}

// AllNotes returns every note currently held, keyed by local id. It is
// not part of gateway.LocalStoreGateway; tests use it to assert on state
// (e.g. a freshly created conflict copy) that has no guid yet and so
// cannot be reached via ListNoteGUIDs/FindNoteByGUID.
func (m *Memory) AllNotes() map[model.LocalID]model.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.LocalID]model.Note, len(m.notes))
	for id, n := range m.notes {
		out[id] = n
	}
	return out
}

// --- Resources ---

func (m *Memory) FindResourceByGUID(ctx context.Context, guid model.GUID) (*model.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.resources {
		if r.GUID == guid {
			v := r
			return &v, nil
		}
	}
	return nil, nil
}

func (m *Memory) AddResource(ctx context.Context, r model.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[r.LocalID] = r
	return nil
}

func (m *Memory) UpdateResource(ctx context.Context, r model.Resource) error {
	return m.AddResource(ctx, r)
}

// --- Linked notebooks ---

func (m *Memory) ListAllLinkedNotebooks(ctx context.Context) ([]model.LinkedNotebook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.LinkedNotebook, 0, len(m.linked))
	for _, ln := range m.linked {
		out = append(out, ln)
	}
	return out, nil
}

func (m *Memory) AddLinkedNotebook(ctx context.Context, ln model.LinkedNotebook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linked[ln.LocalID] = ln
	return nil
}

func (m *Memory) UpdateLinkedNotebook(ctx context.Context, ln model.LinkedNotebook) error {
	return m.AddLinkedNotebook(ctx, ln)
}

func (m *Memory) ExpungeLinkedNotebook(ctx context.Context, guid model.GUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ln := range m.linked {
		if ln.GUID == guid {
			delete(m.linked, id)
		}
	}
	return nil
}

// --- User / misc ---

func (m *Memory) AddUser(ctx context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, u)
	return nil
}

// ExpungeNotelessTagsFromLinkedNotebooks implements spec.md §4.9's final
// linked-notebook cleanup step: tags owned by a linked notebook that no
// note references anymore.
func (m *Memory) ExpungeNotelessTagsFromLinkedNotebooks(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	referenced := make(map[model.LocalID]struct{})
	for _, n := range m.notes {
		for _, tagID := range n.TagLocalIDs {
			referenced[tagID] = struct{}{}
		}
	}
	for id, t := range m.tags {
		if t.LinkedNotebookGUID == "" {
			continue
		}
		if _, ok := referenced[id]; !ok {
			delete(m.tags, id)
		}
	}
	return nil
}
