package hook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matshelf/matshelf/pkg/errors"
)

func TestExecuteNoScript(t *testing.T) {
	executor := NewExecutor()
	assert.NoError(t, executor.Execute(PreDownload, Context{AssetID: 100}))
	assert.False(t, executor.HasScript(PreDownload))
}

func TestExecuteScriptSeesContext(t *testing.T) {
	executor := NewExecutor()
	executor.AddScript(PreDownload, `
err := ""
if assetName != "Metal001" {
	err = "unexpected asset: " + assetName
}
if assetID != 100 {
	err = "unexpected id"
}
`)
	assert.NoError(t, executor.Execute(PreDownload, Context{AssetID: 100, AssetName: "Metal001"}))
}

func TestExecuteScriptError(t *testing.T) {
	executor := NewExecutor()
	executor.AddScript(PostDownload, `err := "refusing"`)

	err := executor.Execute(PostDownload, Context{})
	assert.ErrorIs(t, err, errors.ErrHookScript)
	assert.Contains(t, err.Error(), "refusing")
}

func TestExecuteBrokenScript(t *testing.T) {
	executor := NewExecutor()
	executor.AddScript(PreDownload, `this is not tengo ===`)

	err := executor.Execute(PreDownload, Context{})
	assert.ErrorIs(t, err, errors.ErrHookExecution)
}

func TestLoadScripts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pre_download.tengo"), []byte(`err := ""`), 0o644))

	executor := NewExecutor()
	require.NoError(t, executor.LoadScripts(dir))

	assert.True(t, executor.HasScript(PreDownload))
	assert.False(t, executor.HasScript(PostDownload))
	assert.NoError(t, executor.Execute(PreDownload, Context{}))
}
