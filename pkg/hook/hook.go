// Package hook runs optional user scripts around download events. Scripts
// are Tengo files in the config directory; a failing or missing script never
// fails the download itself.
package hook

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/matshelf/matshelf/pkg/errors"
)

// Type names a download event a script can attach to.
type Type string

// Supported hook points.
const (
	PreDownload  Type = "pre_download"
	PostDownload Type = "post_download"
)

// scriptFilenames maps hook points to their script files in the config dir.
var scriptFilenames = map[Type]string{
	PreDownload:  "pre_download.tengo",
	PostDownload: "post_download.tengo",
}

// Context carries the download details into a script.
type Context struct {
	AssetID   int
	AssetName string
	Directory string
	SizeBytes int64
}

// Executor loads and runs the hook scripts.
type Executor struct {
	mu      sync.RWMutex
	scripts map[Type]string
}

// NewExecutor creates an executor with no scripts loaded.
func NewExecutor() *Executor {
	return &Executor{scripts: map[Type]string{}}
}

// LoadScripts reads the hook scripts from the given directory. Missing files
// simply leave their hook point empty.
func (e *Executor) LoadScripts(dir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for hookType, filename := range scriptFilenames {
		data, err := os.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			if os.IsNotExist(err) {
				delete(e.scripts, hookType)
				continue
			}
			return errors.Wrapf(err, "failed to read hook script %s", filename)
		}
		e.scripts[hookType] = string(data)
	}
	return nil
}

// AddScript installs a script for a hook point.
func (e *Executor) AddScript(hookType Type, script string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts[hookType] = script
}

// HasScript reports whether a hook point has a script.
func (e *Executor) HasScript(hookType Type) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.scripts[hookType]
	return ok
}

// Execute runs the script for a hook point. Hook points without a script
// succeed trivially. A script can report failure by assigning a non-empty
// string to `err`.
func (e *Executor) Execute(hookType Type, ctx Context) error {
	e.mu.RLock()
	script, ok := e.scripts[hookType]
	e.mu.RUnlock()
	if !ok {
		return nil
	}

	instance := tengo.NewScript([]byte(script))
	instance.SetImports(stdlib.GetModuleMap("fmt", "os", "strings", "times", "text"))

	_ = instance.Add("assetID", ctx.AssetID)
	_ = instance.Add("assetName", ctx.AssetName)
	_ = instance.Add("directory", ctx.Directory)
	_ = instance.Add("sizeBytes", ctx.SizeBytes)

	compiled, err := instance.Run()
	if err != nil {
		return errors.Wrapf(errors.ErrHookExecution, "%s: %v", hookType, err)
	}

	if errVar := compiled.Get("err"); errVar != nil {
		switch v := errVar.Value().(type) {
		case error:
			return errors.Wrap(errors.ErrHookScript, v.Error())
		case string:
			if v != "" {
				return errors.Wrap(errors.ErrHookScript, v)
			}
		}
	}
	return nil
}
