// Package index maintains the local asset index: the merged view of catalog
// metadata and files found in the on-disk libraries. A single coarse RWMutex
// guards the whole index; every accessor hands out deep clones so callers
// never observe concurrent mutation.
package index

import (
	"sync"
	"time"

	"github.com/matshelf/matshelf/internal/logger"
	"github.com/matshelf/matshelf/pkg/assets"
	"github.com/matshelf/matshelf/pkg/errors"
)

// AssetIndex is the in-memory asset database. Writes are expected from a
// single coordinator goroutine; reads can come from anywhere.
type AssetIndex struct {
	mu      sync.RWMutex
	assets  map[int]*assets.AssetData
	byName  map[string]int
	queries map[QueryKey][]int

	cachePath string
}

// NewAssetIndex creates an empty index. cachePath is where snapshots are
// written; empty disables snapshotting.
func NewAssetIndex(cachePath string) *AssetIndex {
	return &AssetIndex{
		assets:    map[int]*assets.AssetData{},
		byName:    map[string]int{},
		queries:   map[QueryKey][]int{},
		cachePath: cachePath,
	}
}

// LoadAsset inserts an asset or merges it into the existing record.
func (idx *AssetIndex) LoadAsset(asset *assets.AssetData) error {
	if asset == nil || asset.AssetID == 0 {
		return errors.Wrap(errors.ErrAssetMismatch, "asset without id")
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.mergeLocked(asset, false)
}

func (idx *AssetIndex) mergeLocked(asset *assets.AssetData, purgeMaps bool) error {
	existing, ok := idx.assets[asset.AssetID]
	if !ok {
		clone := asset.Clone()
		idx.assets[asset.AssetID] = clone
		if clone.AssetName != "" {
			idx.byName[clone.AssetName] = clone.AssetID
		}
		return nil
	}
	if err := existing.Update(asset, purgeMaps); err != nil {
		return err
	}
	if existing.AssetName != "" {
		idx.byName[existing.AssetName] = existing.AssetID
	}
	return nil
}

// UpdateAsset merges an update into an existing record. Unknown assets fail
// with ErrAssetNotFound; identity changes fail with ErrAssetMismatch.
func (idx *AssetIndex) UpdateAsset(assetID int, update *assets.AssetData, purgeMaps bool) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	existing, ok := idx.assets[assetID]
	if !ok {
		return errors.Wrapf(errors.ErrAssetNotFound, "asset %d", assetID)
	}
	return existing.Update(update, purgeMaps)
}

// MarkPurchased records a successful purchase.
func (idx *AssetIndex) MarkPurchased(assetID int) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	asset, ok := idx.assets[assetID]
	if !ok {
		return errors.Wrapf(errors.ErrAssetNotFound, "asset %d", assetID)
	}
	asset.SetPurchased(true)
	now := time.Now()
	asset.PurchasedAt = &now
	return nil
}

// GetAsset returns a snapshot of one asset.
func (idx *AssetIndex) GetAsset(assetID int) (*assets.AssetData, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	asset, ok := idx.assets[assetID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrAssetNotFound, "asset %d", assetID)
	}
	return asset.Clone(), nil
}

// GetAssetByName returns a snapshot of one asset looked up by its unique
// name.
func (idx *AssetIndex) GetAssetByName(name string) (*assets.AssetData, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	assetID, ok := idx.byName[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrAssetNotFound, "asset %q", name)
	}
	return idx.assets[assetID].Clone(), nil
}

// AllAssets returns snapshots of every indexed asset.
func (idx *AssetIndex) AllAssets() []*assets.AssetData {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	result := make([]*assets.AssetData, 0, len(idx.assets))
	for _, asset := range idx.assets {
		result = append(result, asset.Clone())
	}
	return result
}

// Len returns the number of indexed assets.
func (idx *AssetIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.assets)
}

// LocalSizes returns the sizes of an asset present on disk. Watermarked
// files do not count.
func (idx *AssetIndex) LocalSizes(assetID int) (map[string]bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	asset, ok := idx.assets[assetID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrAssetNotFound, "asset %d", assetID)
	}
	return asset.LocalSizes(false), nil
}

// LocalLODs returns the mesh LOD tags of an asset present on disk.
func (idx *AssetIndex) LocalLODs(assetID int, modelType assets.ModelType) (map[string]bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	asset, ok := idx.assets[assetID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrAssetNotFound, "asset %d", assetID)
	}
	if asset.Model == nil {
		return map[string]bool{}, nil
	}
	return asset.Model.LocalLODs(modelType), nil
}

// CheckAssetIsLocal reports whether an asset satisfies a concrete local
// requirement: every requested size present, every requested LOD present and
// a native mesh present when one is required. Empty slices skip their check;
// with everything empty this is the plain known-local flag.
func (idx *AssetIndex) CheckAssetIsLocal(assetID int, sizes, lods []string, nativeMesh assets.ModelType) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	asset, ok := idx.assets[assetID]
	if !ok {
		return false, errors.Wrapf(errors.ErrAssetNotFound, "asset %d", assetID)
	}

	if len(sizes) == 0 && len(lods) == 0 && nativeMesh == "" {
		return asset.Local(), nil
	}

	localSizes := asset.LocalSizes(false)
	for _, size := range sizes {
		if !localSizes[size] {
			return false, nil
		}
	}

	if len(lods) > 0 || nativeMesh != "" {
		if asset.Model == nil {
			return false, nil
		}
		if nativeMesh != "" && !asset.Model.HasMesh(nativeMesh) {
			return false, nil
		}
		localLODs := asset.Model.LocalLODs(nativeMesh)
		for _, lod := range lods {
			if !localLODs[lod] {
				return false, nil
			}
		}
	}
	return true, nil
}

// SetLocal overwrites the locality flag of an asset, stamping DownloadedAt
// on the first transition to local.
func (idx *AssetIndex) SetLocal(assetID int, local bool) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	asset, ok := idx.assets[assetID]
	if !ok {
		return errors.Wrapf(errors.ErrAssetNotFound, "asset %d", assetID)
	}
	if local && !asset.Local() && asset.DownloadedAt == nil {
		now := time.Now()
		asset.DownloadedAt = &now
	}
	asset.SetLocal(local)
	return nil
}

// Flush drops all in-memory state. The cache file on disk is untouched.
func (idx *AssetIndex) Flush() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.assets = map[int]*assets.AssetData{}
	idx.byName = map[string]int{}
	idx.queries = map[QueryKey][]int{}
	logger.Debug("asset index flushed")
}
