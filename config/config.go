// Package config loads the sync engine's settings from the environment
// (SPEC_FULL.md §2), adapted from the teacher's config/config.go: the same
// godotenv.Load()+GetEnv(key, default) shape, extended with the keys the
// orchestrator and its collaborators need instead of the teacher's
// Drive/OpenAI keys.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/vesperpad/sync-engine/model"
)

// Config holds every setting a cmd/syncengine session needs to construct
// an orchestrator.Config and wire its dependencies.
type Config struct {
	// DBPath locates the SQLite local store (localstore.Open).
	DBPath string `validate:"required"`

	// ClientName and the protocol version pair feed
	// RemoteApiGateway.checkProtocolVersion (spec.md §4.1 phase 1).
	ClientName   string `validate:"required"`
	MajorVersion int32  `validate:"min=0"`
	MinorVersion int32  `validate:"min=0"`

	// MaxChunksPerDownload is loaded from MAX_CHUNKS_PER_DOWNLOAD and
	// validated here. No other package reads it: SyncChunkFetcher bounds
	// each getSyncChunk call with its own chunkfetcher.MaxEntriesPerChunk
	// constant.
	MaxChunksPerDownload int `validate:"min=1"`

	DownloadNoteThumbnails   bool
	DownloadInkNoteImages    bool
	InkNoteImagesStoragePath string `validate:"required,dir"`
}

// Load reads configuration from the environment (.env first, via
// godotenv, then real env vars override it) and validates it. Unlike the
// teacher's config.Load, which os.Exit(1)s on a missing required value,
// Load returns an error — this package has no HTTP process lifecycle to
// own, so exiting is the caller's call, not this package's.
func Load() (Config, error) {
	_ = godotenv.Load()

	storagePath := resolveStoragePath(GetEnv("INK_NOTE_IMAGES_STORAGE_PATH", ""))

	cfg := Config{
		DBPath:                   GetEnv("DB_PATH", "./data/sync-engine.db"),
		ClientName:               GetEnv("CLIENT_NAME", "sync-engine"),
		MajorVersion:             int32(GetEnvInt("PROTOCOL_MAJOR_VERSION", 1)),
		MinorVersion:             int32(GetEnvInt("PROTOCOL_MINOR_VERSION", 0)),
		MaxChunksPerDownload:     GetEnvInt("MAX_CHUNKS_PER_DOWNLOAD", 50),
		DownloadNoteThumbnails:   GetEnvBool("DOWNLOAD_NOTE_THUMBNAILS", true),
		DownloadInkNoteImages:    GetEnvBool("DOWNLOAD_INK_NOTE_IMAGES", true),
		InkNoteImagesStoragePath: storagePath,
	}

	if err := model.Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolveStoragePath falls back to an OS-specific cache directory when
// path is empty or not a writable directory, mirroring the source's
// OS-specific app-data default (spec.md §2).
func resolveStoragePath(path string) string {
	if path != "" && dirIsWritable(path) {
		return path
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	fallback := filepath.Join(dir, "sync-engine", "inkNoteImages")
	_ = os.MkdirAll(fallback, 0o755)
	return fallback
}

func dirIsWritable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(path, 0o755) == nil
		}
		return false
	}
	if !info.IsDir() {
		return false
	}
	probe := filepath.Join(path, ".write-probe")
	f, err := os.Create(probe)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

// GetEnv returns the environment variable key, or defaultValue if unset.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt parses key as an integer, or returns defaultValue if unset or
// unparseable.
func GetEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n := 0
	for _, c := range value {
		if c < '0' || c > '9' {
			return defaultValue
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// GetEnvBool parses key as a bool ("true"/"1" are true; anything else,
// including unset, falls back to defaultValue).
func GetEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	switch value {
	case "true", "1":
		return true
	case "false", "0":
		return false
	default:
		return defaultValue
	}
}
