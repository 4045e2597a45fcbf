package events

import "github.com/vesperpad/sync-engine/model"

// NoOp is an Emitter that discards every event. Useful as a default so
// components never need a nil check before emitting.
type NoOp struct{}

var _ Emitter = NoOp{}

func (NoOp) SyncChunksDownloadProgress(string, model.USN, model.USN, model.USN) {}
func (NoOp) SyncChunksDataProcessingProgress(string, Counters)                  {}
func (NoOp) NotesDownloadProgress(string, int, int)                            {}
func (NoOp) ResourcesDownloadProgress(string, int, int)                        {}
func (NoOp) RateLimitExceeded(int)                                             {}
func (NoOp) RequestAuthenticationToken()                                       {}
func (NoOp) RequestAuthenticationTokensForLinkedNotebooks([]model.LinkedNotebook) {}
func (NoOp) SynchronizedContentFromUsersOwnAccount(model.USN, int64)           {}
func (NoOp) ExpungedFromServerToClient()                                      {}
func (NoOp) Stopped()                                                         {}
func (NoOp) Failure(error)                                                    {}
func (NoOp) Finished(model.USN, int64, PerLinkedNotebookMaps)                  {}

// Recording is an Emitter that appends every call to an in-memory log, for
// assertions in tests (grounded on the teacher's testify/mock usage, but a
// plain recorder is a better fit here since test code asserts on event
// *sequences*, not individual call expectations).
type Recording struct {
	Calls []string
}

var _ Emitter = (*Recording)(nil)

func (r *Recording) record(name string) { r.Calls = append(r.Calls, name) }

func (r *Recording) SyncChunksDownloadProgress(scope string, _, _, _ model.USN) {
	r.record("SyncChunksDownloadProgress:" + scope)
}
func (r *Recording) SyncChunksDataProcessingProgress(scope string, _ Counters) {
	r.record("SyncChunksDataProcessingProgress:" + scope)
}
func (r *Recording) NotesDownloadProgress(scope string, _, _ int) {
	r.record("NotesDownloadProgress:" + scope)
}
func (r *Recording) ResourcesDownloadProgress(scope string, _, _ int) {
	r.record("ResourcesDownloadProgress:" + scope)
}
func (r *Recording) RateLimitExceeded(int) { r.record("RateLimitExceeded") }
func (r *Recording) RequestAuthenticationToken() {
	r.record("RequestAuthenticationToken")
}
func (r *Recording) RequestAuthenticationTokensForLinkedNotebooks([]model.LinkedNotebook) {
	r.record("RequestAuthenticationTokensForLinkedNotebooks")
}
func (r *Recording) SynchronizedContentFromUsersOwnAccount(model.USN, int64) {
	r.record("SynchronizedContentFromUsersOwnAccount")
}
func (r *Recording) ExpungedFromServerToClient() { r.record("ExpungedFromServerToClient") }
func (r *Recording) Stopped()                    { r.record("Stopped") }
func (r *Recording) Failure(error)               { r.record("Failure") }
func (r *Recording) Finished(model.USN, int64, PerLinkedNotebookMaps) {
	r.record("Finished")
}

// Has reports whether name appears anywhere in the recorded call log.
func (r *Recording) Has(name string) bool {
	for _, c := range r.Calls {
		if c == name {
			return true
		}
	}
	return false
}
