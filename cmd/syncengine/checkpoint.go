package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/vesperpad/sync-engine/model"
)

// checkpointFile is where the CLI persists the last sync parameters per
// scope between runs. The core itself never persists these (SPEC_FULL.md
// §2 / spec.md §6: "it never persists them itself") — that is left to the
// caller, and for this CLI the caller is a flat JSON file living next to
// the SQLite database rather than a dedicated table, since it holds
// nothing the local store itself needs to query.
type checkpointFile struct {
	path string
}

func newCheckpointFile(dbPath string) checkpointFile {
	return checkpointFile{path: dbPath + ".checkpoint.json"}
}

type storedCheckpoint struct {
	LastUpdateCount int32 `json:"lastUpdateCount"`
	LastSyncTimeUnix int64 `json:"lastSyncTimeUnix"`
	EverFullySynced bool  `json:"everFullySynced"`
}

func (c checkpointFile) load() (map[model.Scope]model.SyncParameters, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return map[model.Scope]model.SyncParameters{}, nil
	}
	if err != nil {
		return nil, err
	}

	var stored map[string]storedCheckpoint
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	out := make(map[model.Scope]model.SyncParameters, len(stored))
	for scope, sc := range stored {
		out[model.Scope(scope)] = model.SyncParameters{
			LastUpdateCount: model.USN(sc.LastUpdateCount),
			LastSyncTime:    time.Unix(sc.LastSyncTimeUnix, 0),
			EverFullySynced: sc.EverFullySynced,
		}
	}
	return out, nil
}

func (c checkpointFile) save(params map[model.Scope]model.SyncParameters) error {
	stored := make(map[string]storedCheckpoint, len(params))
	for scope, p := range params {
		stored[string(scope)] = storedCheckpoint{
			LastUpdateCount:  int32(p.LastUpdateCount),
			LastSyncTimeUnix: p.LastSyncTime.Unix(),
			EverFullySynced:  p.EverFullySynced,
		}
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}
