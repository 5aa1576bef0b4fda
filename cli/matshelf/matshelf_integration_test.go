//go:build integration

package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matshelf/matshelf/pkg/config"
	"github.com/matshelf/matshelf/test/testutil"
)

func TestLoginLogout(t *testing.T) {
	catalog := testutil.NewFakeCatalog()
	defer catalog.Close()
	env := writeTempConfig(t, catalog.URL(), false)

	require.NoError(t, runCLI(t, env, "login", "--email", catalog.Email, "--password", catalog.Password))

	cfg, err := config.LoadConfig(env.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestToken, cfg.Token())

	require.NoError(t, runCLI(t, env, "logout"))
	cfg, err = config.LoadConfig(env.ConfigPath)
	require.NoError(t, err)
	assert.Empty(t, cfg.Token())
}

func TestLoginWrongPassword(t *testing.T) {
	catalog := testutil.NewFakeCatalog()
	defer catalog.Close()
	env := writeTempConfig(t, catalog.URL(), false)

	err := runCLI(t, env, "login", "--email", catalog.Email, "--password", "nope")
	require.Error(t, err)
}

func TestDownloadAndList(t *testing.T) {
	catalog := testutil.NewFakeCatalog()
	defer catalog.Close()
	catalog.AddAsset(textureRecord(),
		testutil.FileSpec{Filename: "Metal001_COL_2K.jpg", SizeBytes: 256},
		testutil.FileSpec{Filename: "Metal001_NRM_2K.jpg", SizeBytes: 512},
	)
	env := writeTempConfig(t, catalog.URL(), true)

	require.NoError(t, runCLI(t, env, "download", "100", "--size", "2K"))

	assetDir := filepath.Join(env.Library, "Metal001")
	assert.FileExists(t, filepath.Join(assetDir, "Metal001_COL_2K.jpg"))
	assert.FileExists(t, filepath.Join(assetDir, "Metal001_NRM_2K.jpg"))
	assert.Equal(t, 1, catalog.URLCalls())

	// The index snapshot recorded the download.
	assert.FileExists(t, filepath.Join(env.CacheDir, "assets.json.gz"))
	require.NoError(t, runCLI(t, env, "list"))

	// Downloading again finds the files in place and still succeeds.
	require.NoError(t, runCLI(t, env, "download", "100", "--size", "2K"))
}

func TestSyncRescansLibrary(t *testing.T) {
	catalog := testutil.NewFakeCatalog()
	defer catalog.Close()
	catalog.AddAsset(textureRecord())
	env := writeTempConfig(t, catalog.URL(), true)

	require.NoError(t, runCLI(t, env, "sync"))
	require.NoError(t, runCLI(t, env, "list", "--purchased"))
}

func TestSearchOnline(t *testing.T) {
	catalog := testutil.NewFakeCatalog()
	defer catalog.Close()
	catalog.AddAsset(textureRecord())
	env := writeTempConfig(t, catalog.URL(), true)

	require.NoError(t, runCLI(t, env, "search", "metal", "--online"))
}

func TestPurchase(t *testing.T) {
	catalog := testutil.NewFakeCatalog()
	defer catalog.Close()
	catalog.AddAsset(textureRecord())
	env := writeTempConfig(t, catalog.URL(), true)

	require.NoError(t, runCLI(t, env, "purchase", "100"))
	assert.True(t, catalog.Purchased(100))
}

func TestConfigInitAndShow(t *testing.T) {
	catalog := testutil.NewFakeCatalog()
	defer catalog.Close()
	env := writeTempConfig(t, catalog.URL(), false)

	require.NoError(t, runCLI(t, env, "config", "show"))
	require.Error(t, runCLI(t, env, "config", "init"))
	require.NoError(t, runCLI(t, env, "config", "init", "--force"))
}

func TestVersion(t *testing.T) {
	catalog := testutil.NewFakeCatalog()
	defer catalog.Close()
	env := writeTempConfig(t, catalog.URL(), false)

	require.NoError(t, runCLI(t, env, "version"))
	require.NoError(t, runCLI(t, env, "version", "--check"))
}
