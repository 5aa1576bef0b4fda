package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matshelf/matshelf/pkg/errors"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		entry, err := zw.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDownloadAssetBundle(t *testing.T) {
	bundle := buildZip(t, map[string]string{
		"Metal001_COL_2K.jpg": "color map",
		"Metal001_NRM_2K.jpg": "normal map",
	})

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/download"):
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"url":        server.URL + "/bundle.zip",
				"size_bytes": len(bundle),
			})
		case r.URL.Path == "/bundle.zip":
			w.Header().Set("Content-Length", strconv.Itoa(len(bundle)))
			_, _ = w.Write(bundle)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	client := NewClient(server.URL, time.Second)
	client.SetToken("session")

	require.NoError(t, client.DownloadAssetBundle(context.Background(), 100, dir))

	assert.FileExists(t, filepath.Join(dir, "Metal001_COL_2K.jpg"))
	assert.FileExists(t, filepath.Join(dir, "Metal001_NRM_2K.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "asset_100.zip"))
}

func TestDownloadAssetBundleMissingURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"url": ""})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	client.SetToken("session")

	err := client.DownloadAssetBundle(context.Background(), 100, t.TempDir())
	assert.ErrorIs(t, err, errors.ErrMissingURLs)
}

func TestDownloadAssetBundleRequiresToken(t *testing.T) {
	client := NewClient("http://unreachable.invalid", time.Second)
	err := client.DownloadAssetBundle(context.Background(), 100, t.TempDir())
	assert.ErrorIs(t, err, errors.ErrNoToken)
}

func TestDownloadPreview(t *testing.T) {
	payload := []byte("thumbnail")
	server := serveBytes(payload)
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "Metal001_0.jpg")
	client := NewClient(server.URL, time.Second)

	require.NoError(t, client.DownloadPreview(context.Background(), server.URL, dest))
	assert.FileExists(t, dest)
}
