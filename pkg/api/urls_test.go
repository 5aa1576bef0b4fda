package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matshelf/matshelf/pkg/errors"
)

func urlsHandler(t *testing.T, files []fileRecord, wantRetry bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/assets/100/download", r.URL.Path)
		assert.Equal(t, wantRetry, r.URL.Query().Get("retry") == "true")

		var spec DownloadSpec
		require.NoError(t, json.NewDecoder(r.Body).Decode(&spec))

		_ = json.NewEncoder(w).Encode(downloadURLResponse{Files: files})
	})
}

func TestGetDownloadURLsBuildsPlan(t *testing.T) {
	files := []fileRecord{
		{Filename: "Metal001_COL_2K.jpg", URL: "https://cdn/col", SizeBytes: 100},
		{Filename: "Metal001_NRM_2K.jpg", URL: "https://cdn/nrm", SizeBytes: 200},
	}
	client, server := newTestClient(urlsHandler(t, files, false))
	defer server.Close()
	client.SetToken("tok")

	plan, err := client.GetDownloadURLs(context.Background(), 100, "/lib/Metal001",
		DownloadSpec{Sizes: []string{"2K"}}, false)
	require.NoError(t, err)

	assert.Equal(t, 100, plan.AssetID)
	assert.Equal(t, int64(300), plan.SizeTotal)
	require.Len(t, plan.Downloads, 2)
	assert.Equal(t, "/lib/Metal001", plan.Downloads[0].Directory)
	assert.Equal(t, "https://cdn/col", plan.Downloads[0].URL)
}

func TestGetDownloadURLsSkipsSourceFiles(t *testing.T) {
	files := []fileRecord{
		{Filename: "Chair01_SOURCE.max", URL: "u1", SizeBytes: 10},
		{Filename: "Chair01_LOD0.fbx", URL: "u2", SizeBytes: 20},
		{Filename: "Chair01_COL_2K.jpg", URL: "u3", SizeBytes: 30},
	}
	client, server := newTestClient(urlsHandler(t, files, false))
	defer server.Close()
	client.SetToken("tok")

	plan, err := client.GetDownloadURLs(context.Background(), 100, "/lib", DownloadSpec{}, false)
	require.NoError(t, err)

	names := []string{}
	for _, dl := range plan.Downloads {
		names = append(names, dl.Filename)
	}
	assert.Equal(t, []string{"Chair01_LOD0.fbx", "Chair01_COL_2K.jpg"}, names)
}

func TestGetDownloadURLsLoneSourceFBXKept(t *testing.T) {
	files := []fileRecord{
		{Filename: "Chair01_SOURCE.fbx", URL: "u1", SizeBytes: 10},
		{Filename: "Chair01_COL_2K.jpg", URL: "u2", SizeBytes: 30},
	}
	client, server := newTestClient(urlsHandler(t, files, false))
	defer server.Close()
	client.SetToken("tok")

	plan, err := client.GetDownloadURLs(context.Background(), 100, "/lib", DownloadSpec{}, false)
	require.NoError(t, err)
	require.Len(t, plan.Downloads, 2)
	assert.Equal(t, "Chair01_SOURCE.fbx", plan.Downloads[0].Filename)
}

func TestGetDownloadURLsDeduplicates(t *testing.T) {
	files := []fileRecord{
		{Filename: "Metal001_COL_2K.jpg", URL: "u1", SizeBytes: 100},
		{Filename: "Metal001_COL_2K.jpg", URL: "u1-again", SizeBytes: 100},
	}
	client, server := newTestClient(urlsHandler(t, files, false))
	defer server.Close()
	client.SetToken("tok")

	plan, err := client.GetDownloadURLs(context.Background(), 100, "/lib", DownloadSpec{}, false)
	require.NoError(t, err)
	assert.Len(t, plan.Downloads, 1)
	assert.Equal(t, int64(100), plan.SizeTotal)
}

func TestGetDownloadURLsEmptyList(t *testing.T) {
	client, server := newTestClient(urlsHandler(t, nil, true))
	defer server.Close()
	client.SetToken("tok")

	_, err := client.GetDownloadURLs(context.Background(), 100, "/lib", DownloadSpec{}, true)
	assert.ErrorIs(t, err, errors.ErrMissingURLs)
}

func TestGetDownloadURLsRequiresToken(t *testing.T) {
	client := NewClient("http://unused", time.Second)
	_, err := client.GetDownloadURLs(context.Background(), 100, "/lib", DownloadSpec{}, false)
	assert.ErrorIs(t, err, errors.ErrNoToken)
}
