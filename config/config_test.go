package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sync-engine", cfg.ClientName)
	assert.Equal(t, 50, cfg.MaxChunksPerDownload)
	assert.True(t, cfg.DownloadNoteThumbnails)
	assert.NotEmpty(t, cfg.InkNoteImagesStoragePath)
}

func TestLoadHonorsEnvOverrides(t *testing.T) {
	t.Setenv("CLIENT_NAME", "acme-client")
	t.Setenv("MAX_CHUNKS_PER_DOWNLOAD", "10")
	t.Setenv("DOWNLOAD_INK_NOTE_IMAGES", "false")
	t.Setenv("INK_NOTE_IMAGES_STORAGE_PATH", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "acme-client", cfg.ClientName)
	assert.Equal(t, 10, cfg.MaxChunksPerDownload)
	assert.False(t, cfg.DownloadInkNoteImages)
}

func TestResolveStoragePathFallsBackWhenUnwritable(t *testing.T) {
	path := resolveStoragePath(filepath.Join(string([]byte{0}), "nope"))
	assert.NotEmpty(t, path)
}
