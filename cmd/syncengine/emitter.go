package main

import (
	"github.com/rs/zerolog"

	"github.com/vesperpad/sync-engine/events"
	"github.com/vesperpad/sync-engine/model"
)

// consoleEmitter logs every emitted event through logx instead of
// collecting them (events.Recording) or discarding them (events.NoOp) —
// the CLI's whole purpose is to "surface those signals on a terminal"
// (SPEC_FULL.md §2).
type consoleEmitter struct {
	log zerolog.Logger
}

var _ events.Emitter = consoleEmitter{}

func (e consoleEmitter) SyncChunksDownloadProgress(scope string, highUSN, updateCount, lastPreviousUSN model.USN) {
	e.log.Info().Str("scope", scopeLabel(scope)).
		Int32("chunk_high_usn", int32(highUSN)).
		Int32("update_count", int32(updateCount)).
		Int32("last_previous_usn", int32(lastPreviousUSN)).
		Msg("downloading sync chunk")
}

func (e consoleEmitter) SyncChunksDataProcessingProgress(scope string, c events.Counters) {
	e.log.Info().Str("scope", scopeLabel(scope)).
		Int("notes_added", c.NotesAdded).Int("notes_updated", c.NotesUpdated).Int("notes_expunged", c.NotesExpunged).
		Int("notebooks_added", c.NotebooksAdded).Int("tags_added", c.TagsAdded).
		Msg("processed sync chunk")
}

func (e consoleEmitter) NotesDownloadProgress(scope string, done, total int) {
	e.log.Info().Str("scope", scopeLabel(scope)).Int("done", done).Int("total", total).Msg("note content progress")
}

func (e consoleEmitter) ResourcesDownloadProgress(scope string, done, total int) {
	e.log.Info().Str("scope", scopeLabel(scope)).Int("done", done).Int("total", total).Msg("resource content progress")
}

func (e consoleEmitter) RateLimitExceeded(seconds int) {
	e.log.Warn().Int("seconds", seconds).Msg("rate limit exceeded, waiting before retry")
}

func (e consoleEmitter) RequestAuthenticationToken() {
	e.log.Warn().Msg("user-scope auth token expired, waiting for refresh")
}

func (e consoleEmitter) RequestAuthenticationTokensForLinkedNotebooks(authData []model.LinkedNotebook) {
	e.log.Warn().Int("count", len(authData)).Msg("linked notebook auth tokens expiring, requesting refresh")
}

func (e consoleEmitter) SynchronizedContentFromUsersOwnAccount(lastUpdateCount model.USN, lastSyncTime int64) {
	e.log.Info().Int32("last_update_count", int32(lastUpdateCount)).Int64("last_sync_time", lastSyncTime).
		Msg("own-account content synchronized")
}

func (e consoleEmitter) ExpungedFromServerToClient() {
	e.log.Info().Msg("expunges applied")
}

func (e consoleEmitter) Stopped() {
	e.log.Info().Msg("session stopped")
}

func (e consoleEmitter) Failure(reason error) {
	e.log.Error().Err(reason).Msg("session failed")
}

func (e consoleEmitter) Finished(lastUpdateCount model.USN, lastSyncTime int64, perLinkedNotebook events.PerLinkedNotebookMaps) {
	e.log.Info().Int32("last_update_count", int32(lastUpdateCount)).Int64("last_sync_time", lastSyncTime).
		Int("linked_notebooks", len(perLinkedNotebook.LastUpdateCount)).
		Msg("session finished")
}

func scopeLabel(scope string) string {
	if scope == "" {
		return "own"
	}
	return scope
}
