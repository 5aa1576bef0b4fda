package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matshelf/matshelf/pkg/errors"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(server.URL, 5*time.Second)
	return client, server
}

func TestLoginInstallsToken(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"access_token":"tok123","user":{"id":7,"name":"Pat","email":"p@x.io"}}`))
	}))
	defer server.Close()

	resp, err := client.Login(context.Background(), "p@x.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok123", resp.Token)
	assert.Equal(t, "Pat", resp.User.Name)
	assert.Equal(t, "tok123", client.Token())
}

func TestLoginWrongCredentials(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"the email/password provided doesn't match our records"}`))
	}))
	defer server.Close()

	_, err := client.Login(context.Background(), "p@x.io", "bad")
	assert.ErrorIs(t, err, errors.ErrWrongCreds)
	assert.Empty(t, client.Token())
}

func TestTokenInvalidCallbackFiresOnce(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token revoked"}`))
	}))
	defer server.Close()

	var fired atomic.Int32
	client.SetToken("stale")
	client.OnTokenInvalid(func(token string) {
		assert.Equal(t, "stale", token)
		fired.Add(1)
	})

	for i := 0; i < 3; i++ {
		_, err := client.GetUserBalance(context.Background())
		assert.ErrorIs(t, err, errors.ErrNotAuthorized)
	}
	assert.Equal(t, int32(1), fired.Load())
}

func TestAuthenticatedCallWithoutToken(t *testing.T) {
	client := NewClient("http://unused", time.Second)
	_, err := client.GetUserBalance(context.Background())
	assert.ErrorIs(t, err, errors.ErrNoToken)
}

func TestGetAssetsSendsBearer(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "metal", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(`{"assets":[{"id":100,"name":"Metal001","type":"Texture","credit":30}],"total":1}`))
	}))
	defer server.Close()

	client.SetToken("tok")
	records, total, err := client.GetAssets(context.Background(), AssetQuery{Search: "metal"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "Metal001", records[0].Name)
	assert.Equal(t, 30, records[0].Credits)
}

func TestConnectionErrorClassified(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 500*time.Millisecond)
	_, _, err := client.GetAssets(context.Background(), AssetQuery{})
	assert.ErrorIs(t, err, errors.ErrConnection)
	assert.True(t, errors.Retryable(err))
}

func TestCheckUpdate(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"latest_version":"2.4.0","minimum_version":"2.0.0"}`))
	}))
	defer server.Close()

	info, err := client.CheckUpdate(context.Background(), "2.1.0")
	require.NoError(t, err)
	assert.True(t, info.UpdateAvailable)
	assert.False(t, info.Required)

	info, err = client.CheckUpdate(context.Background(), "1.9.0")
	require.NoError(t, err)
	assert.True(t, info.Required)

	info, err = client.CheckUpdate(context.Background(), "2.4.0")
	require.NoError(t, err)
	assert.False(t, info.UpdateAvailable)
}
