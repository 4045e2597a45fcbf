package auxdownload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperpad/sync-engine/model"
)

func TestDownloadThumbnailFetchesAndIncludesAuthToken(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte("thumbnail-bytes"))
	}))
	defer srv.Close()

	target := Target{Host: hostOf(t, srv.URL), ShardID: "s1", AuthToken: "tok123"}
	d := New(target, srv.Client())
	// Override scheme-sensitive host construction by hitting the test
	// server directly via a custom transport is overkill here; instead
	// build the downloader against the httptest host and rely on the
	// default https:// prefix being rewritten by a RoundTripper stub.
	d.client.Transport = rewriteToHTTP(srv.URL)

	note := model.Note{GUID: "n1", Resources: []model.Resource{{GUID: "r1"}}}
	updated, err := d.DownloadThumbnail(context.Background(), note)
	require.NoError(t, err)
	assert.Equal(t, []byte("thumbnail-bytes"), updated.ThumbnailData)
	assert.Equal(t, "/shard/s1/thm/note/n1", gotPath)
	assert.Equal(t, "auth=tok123", gotQuery)
}

func TestDownloadThumbnailSkipsNotesWithNoResources(t *testing.T) {
	d := New(Target{Host: "example.com", ShardID: "s1"}, nil)
	note := model.Note{GUID: "n1"}
	updated, err := d.DownloadThumbnail(context.Background(), note)
	require.NoError(t, err)
	assert.Nil(t, updated.ThumbnailData)
}

func TestDownloadInkImagesWritesPNGToStoragePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ink-bytes"))
	}))
	defer srv.Close()

	storageDir := filepath.Join(t.TempDir(), "inkNoteImages")
	d := New(Target{Host: hostOf(t, srv.URL), ShardID: "s1", StoragePath: storageDir}, srv.Client())
	d.client.Transport = rewriteToHTTP(srv.URL)

	note := model.Note{
		GUID: "n1",
		Resources: []model.Resource{
			{GUID: "r1", MimeType: model.MimeTypeInkNote, Width: 100, Height: 200},
			{GUID: "r2", MimeType: "image/png"},
		},
	}
	err := d.DownloadInkImages(context.Background(), note)
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(storageDir, "r1.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ink-bytes"), written)

	_, err = os.Stat(filepath.Join(storageDir, "r2.png"))
	assert.True(t, os.IsNotExist(err), "non-ink resources get no image file")
}

func TestDownloadInkImagesRequiresStoragePath(t *testing.T) {
	d := New(Target{Host: "example.com", ShardID: "s1"}, nil)
	note := model.Note{
		GUID:      "n1",
		Resources: []model.Resource{{GUID: "r1", MimeType: model.MimeTypeInkNote}},
	}
	err := d.DownloadInkImages(context.Background(), note)
	assert.Error(t, err)
}

func hostOf(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Host
}

// rewriteToHTTP returns a RoundTripper that sends every request to the
// given test server over plain HTTP instead of https, so tests can use a
// real *http.Client against httptest.Server without a TLS cert.
func rewriteToHTTP(base string) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		newURL := strings.Replace(req.URL.String(), "https://"+req.URL.Host, base, 1)
		parsed, err := url.Parse(newURL)
		if err != nil {
			return nil, err
		}
		req2 := req.Clone(req.Context())
		req2.URL = parsed
		req2.Host = parsed.Host
		return http.DefaultTransport.RoundTrip(req2)
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
