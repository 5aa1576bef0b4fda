// Package archive extracts legacy asset bundles. Older purchases are served
// as one ZIP per asset instead of individual file URLs; the bundle is
// unpacked flat into the asset directory.
package archive

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/matshelf/matshelf/pkg/errors"
	"github.com/matshelf/matshelf/pkg/fsutil"
)

// Manager handles bundle extraction.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// ExtractBundle unpacks an asset bundle into destDir. Directory structure
// inside the bundle is flattened; asset files are classified by filename, so
// nesting carries no information. Entries escaping the destination are
// rejected.
func (m *Manager) ExtractBundle(ctx context.Context, bundlePath, destDir string) error {
	fsys, err := archives.FileSystem(ctx, bundlePath, nil)
	if err != nil {
		return errors.Wrap(errors.ErrUnzipFailed, err.Error())
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := fsutil.EnsureDir(destDir); err != nil {
		return errors.Wrap(errors.ErrUnzipFailed, err.Error())
	}

	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		return m.extractEntry(fsys, path, destDir)
	})
	if err != nil {
		return errors.Wrap(errors.ErrUnzipFailed, err.Error())
	}
	return nil
}

func (m *Manager) extractEntry(fsys fs.FS, path, destDir string) error {
	name := filepath.Base(path)
	if name == "." || name == "" || strings.HasPrefix(name, "..") {
		return errors.Wrapf(errors.ErrInvalidPath, "bundle entry %q", path)
	}
	destPath := filepath.Join(destDir, name)
	if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return errors.Wrapf(errors.ErrInvalidPath, "bundle entry %q escapes destination", path)
	}

	src, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := fsutil.CreateFilePerm(destPath, fsutil.FileModeDefault)
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	_, err = io.Copy(dst, src)
	return err
}
