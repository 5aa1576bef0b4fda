//go:build integration

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matshelf/matshelf/pkg/api"
	"github.com/matshelf/matshelf/test/testutil"
)

// testEnv is the on-disk layout one integration test runs against.
type testEnv struct {
	ConfigPath string
	Library    string
	CacheDir   string
}

// writeTempConfig writes a config file pointing at the fake service. When
// loggedIn is set the stored session token matches the fake's.
func writeTempConfig(t *testing.T, apiURL string, loggedIn bool) testEnv {
	t.Helper()
	root := t.TempDir()
	env := testEnv{
		ConfigPath: filepath.Join(root, "config.yaml"),
		Library:    filepath.Join(root, "library"),
		CacheDir:   filepath.Join(root, "cache"),
	}
	require.NoError(t, os.MkdirAll(env.Library, 0o755))

	yamlContent := "libraries:\n" +
		"  - name: primary\n" +
		"    path: " + escapePath(env.Library) + "\n" +
		"settings:\n" +
		"  cache_dir: " + escapePath(env.CacheDir) + "\n" +
		"  api_base_url: " + apiURL + "\n" +
		"  log_level: warn\n"
	if loggedIn {
		yamlContent += "auth:\n" +
			"  bearer:\n" +
			"    token: " + testutil.TestToken + "\n"
	}
	require.NoError(t, os.WriteFile(env.ConfigPath, []byte(yamlContent), 0o600))
	return env
}

func escapePath(path string) string {
	return strings.ReplaceAll(path, "\\", "\\\\")
}

// runCLI executes one command against a fresh command tree.
func runCLI(t *testing.T, env testEnv, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--config", env.ConfigPath}, args...))
	return cmd.ExecuteContext(context.Background())
}

// textureRecord is the catalog record the download tests use.
func textureRecord() api.AssetRecord {
	return api.AssetRecord{
		ID:    100,
		Name:  "Metal001",
		Type:  "Texture",
		Sizes: []string{"1K", "2K", "4K"},
		Workflows: map[string][]api.MapDescRecord{
			"REGULAR": {
				{TypeCode: "COL", Sizes: []string{"1K", "2K", "4K"}},
				{TypeCode: "NRM", Sizes: []string{"1K", "2K", "4K"}},
			},
		},
	}
}
