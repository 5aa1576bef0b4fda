package index

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"time"

	"github.com/matshelf/matshelf/internal/logger"
	"github.com/matshelf/matshelf/pkg/assets"
	"github.com/matshelf/matshelf/pkg/errors"
	"github.com/matshelf/matshelf/pkg/fsutil"
)

// cacheVersion is written into snapshots. Readers accept any version; the
// document format is forward compatible, unknown fields are ignored and
// missing fields default.
const cacheVersion = 1

// cacheDocument is the on-disk snapshot format: gzip-compressed JSON.
type cacheDocument struct {
	Version int                 `json:"version"`
	SavedAt time.Time           `json:"saved_at"`
	Assets  []*assets.AssetData `json:"assets"`
}

// SaveCache writes a snapshot of the index to the configured cache path,
// replacing it atomically. Query pages are not persisted; they are cheap to
// recompute and online pages go stale anyway.
func (idx *AssetIndex) SaveCache() error {
	if idx.cachePath == "" {
		return nil
	}

	doc := cacheDocument{
		Version: cacheVersion,
		SavedAt: time.Now(),
		Assets:  idx.AllAssets(),
	}

	if err := fsutil.EnsureFileDir(idx.cachePath); err != nil {
		return errors.Wrap(err, "failed to create cache directory")
	}
	tempPath := idx.cachePath + ".tmp"
	file, err := fsutil.CreateFilePerm(tempPath, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(err, "failed to create cache file")
	}

	writer := gzip.NewWriter(file)
	if err := json.NewEncoder(writer).Encode(&doc); err != nil {
		_ = writer.Close()
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to encode asset cache")
	}
	if err := writer.Close(); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to compress asset cache")
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to close cache file")
	}

	if err := os.Rename(tempPath, idx.cachePath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to replace cache file")
	}

	logger.DebugfWithFields(logger.Fields{
		"path":   idx.cachePath,
		"assets": len(doc.Assets),
	}, "asset cache saved")
	return nil
}

// LoadCache restores the index from the snapshot on disk. A missing file is
// a clean cold start; an unreadable one fails with ErrCacheCorrupted so the
// caller can decide to discard it.
func (idx *AssetIndex) LoadCache() error {
	if idx.cachePath == "" {
		return nil
	}

	file, err := os.Open(idx.cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to open cache file")
	}
	defer func() { _ = file.Close() }()

	reader, err := gzip.NewReader(file)
	if err != nil {
		return errors.Wrap(errors.ErrCacheCorrupted, err.Error())
	}
	defer func() { _ = reader.Close() }()

	var doc cacheDocument
	if err := json.NewDecoder(reader).Decode(&doc); err != nil {
		return errors.Wrap(errors.ErrCacheCorrupted, err.Error())
	}

	loaded := 0
	for _, asset := range doc.Assets {
		if asset == nil || asset.AssetID == 0 {
			continue
		}
		if err := idx.LoadAsset(asset); err != nil {
			logger.WarnfWithFields(logger.Fields{
				"asset": asset.AssetName,
				"error": err.Error(),
			}, "skipping cached asset")
			continue
		}
		loaded++
	}

	logger.DebugfWithFields(logger.Fields{
		"path":   idx.cachePath,
		"assets": loaded,
	}, "asset cache loaded")
	return nil
}

// DeleteCache removes the snapshot file.
func (idx *AssetIndex) DeleteCache() error {
	if idx.cachePath == "" {
		return nil
	}
	if err := os.Remove(idx.cachePath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete cache file")
	}
	return nil
}
