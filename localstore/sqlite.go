// Package localstore implements spec.md §6's LocalStoreGateway against two
// backends: Memory (in-process, used by tests and the demo CLI) and SQLite
// (durable, used by the real cmd/syncengine binary). Grounded on the
// teacher's database/db.go + database/notes.go: a thin *sql.DB wrapper with
// a single ordered migration list, WAL mode and foreign keys enabled, and
// hand-written SQL per accessor rather than an ORM.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/model"
)

// SQLite is a durable LocalStoreGateway backed by a single sqlite3 file.
type SQLite struct {
	db *sql.DB
}

var _ gateway.LocalStoreGateway = (*SQLite)(nil)

// Open creates (or reuses) the sqlite3 database at path and runs every
// migration. The parent directory is created if missing.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("localstore: create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("localstore: open db: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("localstore: enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("localstore: enable foreign keys: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT,
			email TEXT,
			service_level TEXT,
			created DATETIME,
			updated DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS account_limits (
			user_id TEXT PRIMARY KEY,
			upload_limit INTEGER,
			note_size_max INTEGER,
			resource_size_max INTEGER,
			note_tag_count_max INTEGER,
			notebook_count_max INTEGER,
			tag_count_max INTEGER,
			saved_search_count_max INTEGER,
			note_resource_count_max INTEGER,
			cached_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS linked_notebooks (
			local_id TEXT PRIMARY KEY,
			guid TEXT UNIQUE NOT NULL,
			share_name TEXT,
			username TEXT,
			shard_id TEXT,
			note_store_url TEXT,
			web_api_url_prefix TEXT,
			shared_notebook_guid TEXT,
			usn INTEGER,
			public INTEGER DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS notebooks (
			local_id TEXT PRIMARY KEY,
			guid TEXT UNIQUE,
			usn INTEGER,
			name TEXT,
			linked_notebook_guid TEXT DEFAULT '',
			default_notebook INTEGER DEFAULT 0,
			stack TEXT,
			no_create_notes INTEGER DEFAULT 0,
			no_update_notes INTEGER DEFAULT 0,
			no_expunge_notebook INTEGER DEFAULT 0,
			locally_modified INTEGER DEFAULT 0,
			local_only INTEGER DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notebooks_scope ON notebooks(linked_notebook_guid)`,
		`CREATE TABLE IF NOT EXISTS tags (
			local_id TEXT PRIMARY KEY,
			guid TEXT UNIQUE,
			usn INTEGER,
			name TEXT,
			linked_notebook_guid TEXT DEFAULT '',
			parent_guid TEXT,
			locally_modified INTEGER DEFAULT 0,
			local_only INTEGER DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tags_scope ON tags(linked_notebook_guid)`,
		`CREATE TABLE IF NOT EXISTS saved_searches (
			local_id TEXT PRIMARY KEY,
			guid TEXT UNIQUE,
			usn INTEGER,
			name TEXT,
			linked_notebook_guid TEXT DEFAULT '',
			query TEXT,
			locally_modified INTEGER DEFAULT 0,
			local_only INTEGER DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			local_id TEXT PRIMARY KEY,
			guid TEXT UNIQUE,
			title TEXT,
			content TEXT,
			notebook_guid TEXT,
			notebook_local_id TEXT,
			usn INTEGER,
			created DATETIME,
			updated DATETIME,
			tag_guids TEXT,
			tag_local_ids TEXT,
			thumbnail_data BLOB,
			locally_modified INTEGER DEFAULT 0,
			local_only INTEGER DEFAULT 0,
			active INTEGER DEFAULT 1,
			conflict_source_note_guid TEXT,
			from_public_linked_notebook INTEGER DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_notebook ON notes(notebook_guid)`,
		`CREATE TABLE IF NOT EXISTS resources (
			local_id TEXT PRIMARY KEY,
			guid TEXT UNIQUE,
			note_guid TEXT,
			note_local_id TEXT,
			mime_type TEXT,
			width INTEGER,
			height INTEGER,
			body BLOB,
			recognition BLOB,
			alternate_data BLOB,
			usn INTEGER,
			locally_modified INTEGER DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resources_note ON resources(note_local_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("localstore: migration failed: %w", err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinGUIDs(guids []model.GUID) string {
	parts := make([]string, len(guids))
	for i, g := range guids {
		parts[i] = string(g)
	}
	return strings.Join(parts, ",")
}

func splitGUIDs(s string) []model.GUID {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]model.GUID, len(parts))
	for i, p := range parts {
		out[i] = model.GUID(p)
	}
	return out
}

func joinLocalIDs(ids []model.LocalID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

func splitLocalIDs(s string) []model.LocalID {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]model.LocalID, len(parts))
	for i, p := range parts {
		out[i] = model.LocalID(p)
	}
	return out
}

// ==================== Notebooks ====================

func (s *SQLite) FindNotebookByGUID(ctx context.Context, guid model.GUID) (*model.Notebook, error) {
	row := s.db.QueryRowContext(ctx, `SELECT local_id, guid, usn, name, linked_notebook_guid, default_notebook, stack,
		no_create_notes, no_update_notes, no_expunge_notebook, locally_modified, local_only
		FROM notebooks WHERE guid = ?`, guid)
	return scanNotebook(row)
}

func (s *SQLite) FindNotebookByName(ctx context.Context, name string, scope model.Scope) (*model.Notebook, error) {
	row := s.db.QueryRowContext(ctx, `SELECT local_id, guid, usn, name, linked_notebook_guid, default_notebook, stack,
		no_create_notes, no_update_notes, no_expunge_notebook, locally_modified, local_only
		FROM notebooks WHERE name = ? AND linked_notebook_guid = ?`, name, string(scope))
	return scanNotebook(row)
}

func scanNotebook(row *sql.Row) (*model.Notebook, error) {
	var nb model.Notebook
	var defaultNb, noCreate, noUpdate, noExpunge, modified, localOnly int
	err := row.Scan(&nb.LocalID, &nb.GUID, &nb.UpdateSequenceNum, &nb.Name, &nb.LinkedNotebookGUID,
		&defaultNb, &nb.Stack, &noCreate, &noUpdate, &noExpunge, &modified, &localOnly)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	nb.DefaultNotebook = defaultNb != 0
	nb.Restrictions = model.NotebookRestrictions{NoCreateNotes: noCreate != 0, NoUpdateNotes: noUpdate != 0, NoExpungeNotebook: noExpunge != 0}
	nb.LocallyModified = modified != 0
	nb.LocalOnly = localOnly != 0
	return &nb, nil
}

func (s *SQLite) AddNotebook(ctx context.Context, nb model.Notebook) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO notebooks
		(local_id, guid, usn, name, linked_notebook_guid, default_notebook, stack, no_create_notes, no_update_notes, no_expunge_notebook, locally_modified, local_only)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nb.LocalID, nullableGUID(nb.GUID), nb.UpdateSequenceNum, nb.Name, nb.LinkedNotebookGUID,
		boolToInt(nb.DefaultNotebook), nb.Stack, boolToInt(nb.Restrictions.NoCreateNotes),
		boolToInt(nb.Restrictions.NoUpdateNotes), boolToInt(nb.Restrictions.NoExpungeNotebook),
		boolToInt(nb.LocallyModified), boolToInt(nb.LocalOnly))
	return err
}

func (s *SQLite) UpdateNotebook(ctx context.Context, nb model.Notebook) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notebooks SET guid = ?, usn = ?, name = ?, linked_notebook_guid = ?,
		default_notebook = ?, stack = ?, no_create_notes = ?, no_update_notes = ?, no_expunge_notebook = ?,
		locally_modified = ?, local_only = ? WHERE local_id = ?`,
		nullableGUID(nb.GUID), nb.UpdateSequenceNum, nb.Name, nb.LinkedNotebookGUID,
		boolToInt(nb.DefaultNotebook), nb.Stack, boolToInt(nb.Restrictions.NoCreateNotes),
		boolToInt(nb.Restrictions.NoUpdateNotes), boolToInt(nb.Restrictions.NoExpungeNotebook),
		boolToInt(nb.LocallyModified), boolToInt(nb.LocalOnly), nb.LocalID)
	return err
}

func (s *SQLite) ExpungeNotebook(ctx context.Context, guid model.GUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notebooks WHERE guid = ?`, guid)
	return err
}

func (s *SQLite) ListNotebookGUIDs(ctx context.Context, scope model.Scope) ([]model.GUID, error) {
	return queryGUIDs(ctx, s.db, `SELECT guid FROM notebooks WHERE linked_notebook_guid = ? AND guid != ''`, string(scope))
}

func (s *SQLite) ListNotebooks(ctx context.Context, scope model.Scope) ([]model.Notebook, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT local_id, guid, usn, name, linked_notebook_guid, default_notebook, stack,
		no_create_notes, no_update_notes, no_expunge_notebook, locally_modified, local_only
		FROM notebooks WHERE linked_notebook_guid = ?`, string(scope))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notebook
	for rows.Next() {
		var nb model.Notebook
		var defaultNb, noCreate, noUpdate, noExpunge, modified, localOnly int
		if err := rows.Scan(&nb.LocalID, &nb.GUID, &nb.UpdateSequenceNum, &nb.Name, &nb.LinkedNotebookGUID,
			&defaultNb, &nb.Stack, &noCreate, &noUpdate, &noExpunge, &modified, &localOnly); err != nil {
			return nil, err
		}
		nb.DefaultNotebook = defaultNb != 0
		nb.Restrictions = model.NotebookRestrictions{NoCreateNotes: noCreate != 0, NoUpdateNotes: noUpdate != 0, NoExpungeNotebook: noExpunge != 0}
		nb.LocallyModified = modified != 0
		nb.LocalOnly = localOnly != 0
		out = append(out, nb)
	}
	return out, rows.Err()
}

// ==================== Tags ====================

func (s *SQLite) FindTagByGUID(ctx context.Context, guid model.GUID) (*model.Tag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT local_id, guid, usn, name, linked_notebook_guid, parent_guid, locally_modified, local_only
		FROM tags WHERE guid = ?`, guid)
	return scanTag(row)
}

func (s *SQLite) FindTagByName(ctx context.Context, name string, scope model.Scope) (*model.Tag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT local_id, guid, usn, name, linked_notebook_guid, parent_guid, locally_modified, local_only
		FROM tags WHERE name = ? AND linked_notebook_guid = ?`, name, string(scope))
	return scanTag(row)
}

func scanTag(row *sql.Row) (*model.Tag, error) {
	var t model.Tag
	var modified, localOnly int
	err := row.Scan(&t.LocalID, &t.GUID, &t.UpdateSequenceNum, &t.Name, &t.LinkedNotebookGUID, &t.ParentGUID, &modified, &localOnly)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.LocallyModified = modified != 0
	t.LocalOnly = localOnly != 0
	return &t, nil
}

func (s *SQLite) AddTag(ctx context.Context, tag model.Tag) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO tags (local_id, guid, usn, name, linked_notebook_guid, parent_guid, locally_modified, local_only)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tag.LocalID, nullableGUID(tag.GUID), tag.UpdateSequenceNum, tag.Name, tag.LinkedNotebookGUID, tag.ParentGUID,
		boolToInt(tag.LocallyModified), boolToInt(tag.LocalOnly))
	return err
}

func (s *SQLite) UpdateTag(ctx context.Context, tag model.Tag) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tags SET guid = ?, usn = ?, name = ?, linked_notebook_guid = ?, parent_guid = ?,
		locally_modified = ?, local_only = ? WHERE local_id = ?`,
		nullableGUID(tag.GUID), tag.UpdateSequenceNum, tag.Name, tag.LinkedNotebookGUID, tag.ParentGUID,
		boolToInt(tag.LocallyModified), boolToInt(tag.LocalOnly), tag.LocalID)
	return err
}

func (s *SQLite) ExpungeTag(ctx context.Context, guid model.GUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE guid = ?`, guid)
	return err
}

func (s *SQLite) ListTagGUIDs(ctx context.Context, scope model.Scope) ([]model.GUID, error) {
	return queryGUIDs(ctx, s.db, `SELECT guid FROM tags WHERE linked_notebook_guid = ? AND guid != ''`, string(scope))
}

func (s *SQLite) ListTags(ctx context.Context, scope model.Scope) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT local_id, guid, usn, name, linked_notebook_guid, parent_guid, locally_modified, local_only
		FROM tags WHERE linked_notebook_guid = ?`, string(scope))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Tag
	for rows.Next() {
		var t model.Tag
		var modified, localOnly int
		if err := rows.Scan(&t.LocalID, &t.GUID, &t.UpdateSequenceNum, &t.Name, &t.LinkedNotebookGUID, &t.ParentGUID, &modified, &localOnly); err != nil {
			return nil, err
		}
		t.LocallyModified = modified != 0
		t.LocalOnly = localOnly != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// ==================== Saved searches ====================

func (s *SQLite) FindSavedSearchByGUID(ctx context.Context, guid model.GUID) (*model.SavedSearch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT local_id, guid, usn, name, linked_notebook_guid, query, locally_modified, local_only
		FROM saved_searches WHERE guid = ?`, guid)
	return scanSavedSearch(row)
}

func (s *SQLite) FindSavedSearchByName(ctx context.Context, name string, scope model.Scope) (*model.SavedSearch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT local_id, guid, usn, name, linked_notebook_guid, query, locally_modified, local_only
		FROM saved_searches WHERE name = ? AND linked_notebook_guid = ?`, name, string(scope))
	return scanSavedSearch(row)
}

func scanSavedSearch(row *sql.Row) (*model.SavedSearch, error) {
	var sv model.SavedSearch
	var modified, localOnly int
	err := row.Scan(&sv.LocalID, &sv.GUID, &sv.UpdateSequenceNum, &sv.Name, &sv.LinkedNotebookGUID, &sv.Query, &modified, &localOnly)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sv.LocallyModified = modified != 0
	sv.LocalOnly = localOnly != 0
	return &sv, nil
}

func (s *SQLite) AddSavedSearch(ctx context.Context, sv model.SavedSearch) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO saved_searches (local_id, guid, usn, name, linked_notebook_guid, query, locally_modified, local_only)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sv.LocalID, nullableGUID(sv.GUID), sv.UpdateSequenceNum, sv.Name, sv.LinkedNotebookGUID, sv.Query,
		boolToInt(sv.LocallyModified), boolToInt(sv.LocalOnly))
	return err
}

func (s *SQLite) UpdateSavedSearch(ctx context.Context, sv model.SavedSearch) error {
	_, err := s.db.ExecContext(ctx, `UPDATE saved_searches SET guid = ?, usn = ?, name = ?, linked_notebook_guid = ?, query = ?,
		locally_modified = ?, local_only = ? WHERE local_id = ?`,
		nullableGUID(sv.GUID), sv.UpdateSequenceNum, sv.Name, sv.LinkedNotebookGUID, sv.Query,
		boolToInt(sv.LocallyModified), boolToInt(sv.LocalOnly), sv.LocalID)
	return err
}

func (s *SQLite) ExpungeSavedSearch(ctx context.Context, guid model.GUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM saved_searches WHERE guid = ?`, guid)
	return err
}

func (s *SQLite) ListSavedSearchGUIDs(ctx context.Context, scope model.Scope) ([]model.GUID, error) {
	return queryGUIDs(ctx, s.db, `SELECT guid FROM saved_searches WHERE linked_notebook_guid = ? AND guid != ''`, string(scope))
}

func (s *SQLite) ListSavedSearches(ctx context.Context, scope model.Scope) ([]model.SavedSearch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT local_id, guid, usn, name, linked_notebook_guid, query, locally_modified, local_only
		FROM saved_searches WHERE linked_notebook_guid = ?`, string(scope))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SavedSearch
	for rows.Next() {
		var sv model.SavedSearch
		var modified, localOnly int
		if err := rows.Scan(&sv.LocalID, &sv.GUID, &sv.UpdateSequenceNum, &sv.Name, &sv.LinkedNotebookGUID, &sv.Query, &modified, &localOnly); err != nil {
			return nil, err
		}
		sv.LocallyModified = modified != 0
		sv.LocalOnly = localOnly != 0
		out = append(out, sv)
	}
	return out, rows.Err()
}

// ==================== Notes ====================

func (s *SQLite) FindNoteByGUID(ctx context.Context, guid model.GUID) (*model.Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT local_id, guid, title, content, notebook_guid, notebook_local_id, usn,
		created, updated, tag_guids, tag_local_ids, thumbnail_data, locally_modified, local_only, active,
		conflict_source_note_guid, from_public_linked_notebook
		FROM notes WHERE guid = ?`, guid)
	return scanNote(row)
}

func scanNote(row *sql.Row) (*model.Note, error) {
	var n model.Note
	var tagGUIDs, tagLocalIDs string
	var created, updated sql.NullTime
	var modified, localOnly, active, public int
	var conflictSource sql.NullString
	err := row.Scan(&n.LocalID, &n.GUID, &n.Title, &n.Content, &n.NotebookGUID, &n.NotebookLocalID, &n.UpdateSequenceNum,
		&created, &updated, &tagGUIDs, &tagLocalIDs, &n.ThumbnailData, &modified, &localOnly, &active,
		&conflictSource, &public)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	n.Created = created.Time
	n.Updated = updated.Time
	n.TagGUIDs = splitGUIDs(tagGUIDs)
	n.TagLocalIDs = splitLocalIDs(tagLocalIDs)
	n.LocallyModified = modified != 0
	n.LocalOnly = localOnly != 0
	n.Active = active != 0
	n.FromPublicLinkedNotebook = public != 0
	n.ConflictSourceNoteGUID = model.GUID(conflictSource.String)
	return &n, nil
}

func (s *SQLite) AddNote(ctx context.Context, n model.Note) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO notes (local_id, guid, title, content, notebook_guid, notebook_local_id,
		usn, created, updated, tag_guids, tag_local_ids, thumbnail_data, locally_modified, local_only, active,
		conflict_source_note_guid, from_public_linked_notebook)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.LocalID, nullableGUID(n.GUID), n.Title, n.Content, n.NotebookGUID, n.NotebookLocalID, n.UpdateSequenceNum,
		n.Created, n.Updated, joinGUIDs(n.TagGUIDs), joinLocalIDs(n.TagLocalIDs), n.ThumbnailData,
		boolToInt(n.LocallyModified), boolToInt(n.LocalOnly), boolToInt(n.Active),
		nullableGUID(n.ConflictSourceNoteGUID), boolToInt(n.FromPublicLinkedNotebook))
	return err
}

func (s *SQLite) UpdateNote(ctx context.Context, n model.Note) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notes SET guid = ?, title = ?, content = ?, notebook_guid = ?, notebook_local_id = ?,
		usn = ?, created = ?, updated = ?, tag_guids = ?, tag_local_ids = ?, thumbnail_data = ?, locally_modified = ?,
		local_only = ?, active = ?, conflict_source_note_guid = ?, from_public_linked_notebook = ? WHERE local_id = ?`,
		nullableGUID(n.GUID), n.Title, n.Content, n.NotebookGUID, n.NotebookLocalID, n.UpdateSequenceNum,
		n.Created, n.Updated, joinGUIDs(n.TagGUIDs), joinLocalIDs(n.TagLocalIDs), n.ThumbnailData,
		boolToInt(n.LocallyModified), boolToInt(n.LocalOnly), boolToInt(n.Active),
		nullableGUID(n.ConflictSourceNoteGUID), boolToInt(n.FromPublicLinkedNotebook), n.LocalID)
	return err
}

func (s *SQLite) SetNoteLocallyModified(ctx context.Context, localID model.LocalID, dirty bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notes SET locally_modified = ? WHERE local_id = ?`, boolToInt(dirty), localID)
	return err
}

func (s *SQLite) ExpungeNote(ctx context.Context, guid model.GUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE guid = ?`, guid)
	return err
}

func (s *SQLite) ListNoteGUIDs(ctx context.Context, scope model.Scope) ([]model.GUID, error) {
	return queryGUIDs(ctx, s.db, `SELECT n.guid FROM notes n LEFT JOIN notebooks nb ON nb.guid = n.notebook_guid
		WHERE n.guid != '' AND COALESCE(nb.linked_notebook_guid, '') = ?`, string(scope))
}

// ==================== Resources ====================

func (s *SQLite) FindResourceByGUID(ctx context.Context, guid model.GUID) (*model.Resource, error) {
	row := s.db.QueryRowContext(ctx, `SELECT local_id, guid, note_guid, note_local_id, mime_type, width, height,
		body, recognition, alternate_data, usn, locally_modified FROM resources WHERE guid = ?`, guid)
	var r model.Resource
	var modified int
	err := row.Scan(&r.LocalID, &r.GUID, &r.NoteGUID, &r.NoteLocalID, &r.MimeType, &r.Width, &r.Height,
		&r.Body, &r.Recognition, &r.AlternateData, &r.UpdateSequenceNum, &modified)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.LocallyModified = modified != 0
	return &r, nil
}

func (s *SQLite) AddResource(ctx context.Context, r model.Resource) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO resources (local_id, guid, note_guid, note_local_id, mime_type, width,
		height, body, recognition, alternate_data, usn, locally_modified) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.LocalID, nullableGUID(r.GUID), r.NoteGUID, r.NoteLocalID, r.MimeType, r.Width, r.Height,
		r.Body, r.Recognition, r.AlternateData, r.UpdateSequenceNum, boolToInt(r.LocallyModified))
	return err
}

func (s *SQLite) UpdateResource(ctx context.Context, r model.Resource) error {
	_, err := s.db.ExecContext(ctx, `UPDATE resources SET guid = ?, note_guid = ?, note_local_id = ?, mime_type = ?,
		width = ?, height = ?, body = ?, recognition = ?, alternate_data = ?, usn = ?, locally_modified = ?
		WHERE local_id = ?`,
		nullableGUID(r.GUID), r.NoteGUID, r.NoteLocalID, r.MimeType, r.Width, r.Height,
		r.Body, r.Recognition, r.AlternateData, r.UpdateSequenceNum, boolToInt(r.LocallyModified), r.LocalID)
	return err
}

// ==================== Linked notebooks ====================

func (s *SQLite) ListAllLinkedNotebooks(ctx context.Context) ([]model.LinkedNotebook, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT local_id, guid, share_name, username, shard_id, note_store_url,
		web_api_url_prefix, shared_notebook_guid, usn, public FROM linked_notebooks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LinkedNotebook
	for rows.Next() {
		var ln model.LinkedNotebook
		var public int
		if err := rows.Scan(&ln.LocalID, &ln.GUID, &ln.ShareName, &ln.Username, &ln.ShardID, &ln.NoteStoreURL,
			&ln.WebAPIURLPrefix, &ln.SharedNotebookGUID, &ln.UpdateSequenceNum, &public); err != nil {
			return nil, err
		}
		ln.Public = public != 0
		out = append(out, ln)
	}
	return out, rows.Err()
}

func (s *SQLite) AddLinkedNotebook(ctx context.Context, ln model.LinkedNotebook) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO linked_notebooks (local_id, guid, share_name, username, shard_id,
		note_store_url, web_api_url_prefix, shared_notebook_guid, usn, public) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ln.LocalID, ln.GUID, ln.ShareName, ln.Username, ln.ShardID, ln.NoteStoreURL, ln.WebAPIURLPrefix,
		ln.SharedNotebookGUID, ln.UpdateSequenceNum, boolToInt(ln.Public))
	return err
}

func (s *SQLite) UpdateLinkedNotebook(ctx context.Context, ln model.LinkedNotebook) error {
	_, err := s.db.ExecContext(ctx, `UPDATE linked_notebooks SET share_name = ?, username = ?, shard_id = ?,
		note_store_url = ?, web_api_url_prefix = ?, shared_notebook_guid = ?, usn = ?, public = ? WHERE guid = ?`,
		ln.ShareName, ln.Username, ln.ShardID, ln.NoteStoreURL, ln.WebAPIURLPrefix, ln.SharedNotebookGUID,
		ln.UpdateSequenceNum, boolToInt(ln.Public), ln.GUID)
	return err
}

func (s *SQLite) ExpungeLinkedNotebook(ctx context.Context, guid model.GUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM linked_notebooks WHERE guid = ?`, guid)
	return err
}

// ==================== Users ====================

func (s *SQLite) AddUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, username, email, service_level, created, updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username, email = excluded.email,
			service_level = excluded.service_level, updated = excluded.updated`,
		u.ID, u.Username, u.Email, string(u.ServiceLevel), u.Created, u.Updated)
	return err
}

// ==================== Noteless tag cleanup ====================

// ExpungeNotelessTagsFromLinkedNotebooks removes every linked-notebook tag
// no longer referenced by any note's tag_guids column (spec.md §4.9: tags
// are the one entity linked notebooks expunge by inference rather than by
// explicit server expunge list).
func (s *SQLite) ExpungeNotelessTagsFromLinkedNotebooks(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT guid FROM tags WHERE linked_notebook_guid != ''`)
	if err != nil {
		return err
	}
	var candidates []model.GUID
	for rows.Next() {
		var g model.GUID
		if err := rows.Scan(&g); err != nil {
			rows.Close()
			return err
		}
		candidates = append(candidates, g)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, guid := range candidates {
		var count int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE ',' || tag_guids || ',' LIKE '%,' || ? || ',%'`, guid).Scan(&count)
		if err != nil {
			return err
		}
		if count == 0 {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE guid = ?`, guid); err != nil {
				return err
			}
		}
	}
	return nil
}

// ==================== Account limits cache ====================

// AccountLimitsStore is the SQLite-backed orchestrator.AccountLimitsCache
// (spec.md §3, §8: 30-day cache, keyed by user id).
type AccountLimitsStore struct {
	db *sql.DB
}

// AccountLimits returns the account-limits cache view of this SQLite
// connection.
func (s *SQLite) AccountLimits() *AccountLimitsStore {
	return &AccountLimitsStore{db: s.db}
}

func (a *AccountLimitsStore) Get(ctx context.Context, userID int32) (model.AccountLimits, bool, error) {
	row := a.db.QueryRowContext(ctx, `SELECT user_id, upload_limit, note_size_max, resource_size_max, note_tag_count_max,
		notebook_count_max, tag_count_max, saved_search_count_max, note_resource_count_max, cached_at
		FROM account_limits WHERE user_id = ?`, userID)

	var l model.AccountLimits
	err := row.Scan(&l.UserID, &l.UploadLimit, &l.NoteSizeMax, &l.ResourceSizeMax, &l.NoteTagCountMax,
		&l.NotebookCountMax, &l.TagCountMax, &l.SavedSearchCountMax, &l.NoteResourceCountMax, &l.CachedAt)
	if err == sql.ErrNoRows {
		return model.AccountLimits{}, false, nil
	}
	if err != nil {
		return model.AccountLimits{}, false, err
	}
	return l, true, nil
}

func (a *AccountLimitsStore) Put(ctx context.Context, limits model.AccountLimits) error {
	_, err := a.db.ExecContext(ctx, `INSERT INTO account_limits (user_id, upload_limit, note_size_max, resource_size_max,
		note_tag_count_max, notebook_count_max, tag_count_max, saved_search_count_max, note_resource_count_max, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET upload_limit = excluded.upload_limit, note_size_max = excluded.note_size_max,
			resource_size_max = excluded.resource_size_max, note_tag_count_max = excluded.note_tag_count_max,
			notebook_count_max = excluded.notebook_count_max, tag_count_max = excluded.tag_count_max,
			saved_search_count_max = excluded.saved_search_count_max, note_resource_count_max = excluded.note_resource_count_max,
			cached_at = excluded.cached_at`,
		limits.UserID, limits.UploadLimit, limits.NoteSizeMax, limits.ResourceSizeMax, limits.NoteTagCountMax,
		limits.NotebookCountMax, limits.TagCountMax, limits.SavedSearchCountMax, limits.NoteResourceCountMax, limits.CachedAt)
	return err
}

func queryGUIDs(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]model.GUID, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GUID
	for rows.Next() {
		var g model.GUID
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func nullableGUID(g model.GUID) interface{} {
	if g == "" {
		return nil
	}
	return string(g)
}
