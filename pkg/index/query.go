package index

import (
	"slices"
	"strings"

	"github.com/matshelf/matshelf/pkg/assets"
	"github.com/matshelf/matshelf/pkg/errors"
)

// Query tabs. Online listings come from the API and are only served from
// the query cache; the other tabs can be computed offline from the index.
const (
	TabOnline   = "online"
	TabMyAssets = "my_assets"
	TabImported = "imported"
)

// FreeSearchTerm is the magic search string selecting zero-credit assets.
const FreeSearchTerm = "free"

// QueryKey identifies one cached listing page. The struct is comparable and
// used directly as the cache map key.
type QueryKey struct {
	Tab       string
	Type      assets.AssetType
	Category  string
	Search    string
	Chunk     int
	ChunkSize int
}

// StoreQuery records the asset IDs of a resolved listing page, typically
// after an API fetch was merged into the index.
func (idx *AssetIndex) StoreQuery(key QueryKey, assetIDs []int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.queries[key] = slices.Clone(assetIDs)
}

// QueryExists reports whether a listing page is cached.
func (idx *AssetIndex) QueryExists(key QueryKey) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.queries[key]
	return ok
}

// FlushQueries drops the cached listing pages, keeping the assets. Called
// when purchases or downloads invalidate listing membership.
func (idx *AssetIndex) FlushQueries() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.queries = map[QueryKey][]int{}
}

// Query resolves a listing page to asset snapshots. Cached pages are served
// as stored. Uncached pages for the offline tabs (my_assets, imported) are
// computed from the index by filtering; an uncached online page fails with
// ErrAssetNotFound since only the API can answer it.
func (idx *AssetIndex) Query(key QueryKey) ([]*assets.AssetData, error) {
	idx.mu.RLock()
	cached, ok := idx.queries[key]
	idx.mu.RUnlock()

	if ok {
		result := make([]*assets.AssetData, 0, len(cached))
		for _, assetID := range cached {
			if asset, err := idx.GetAsset(assetID); err == nil {
				result = append(result, asset)
			}
		}
		return result, nil
	}

	if key.Tab == TabOnline {
		return nil, errors.Wrapf(errors.ErrAssetNotFound, "online query not cached")
	}

	page := chunk(idx.filterOffline(key), key.Chunk, key.ChunkSize)
	ids := make([]int, 0, len(page))
	for _, asset := range page {
		ids = append(ids, asset.AssetID)
	}
	idx.StoreQuery(key, ids)

	return page, nil
}

// filterOffline computes a tab listing from the index contents, ordered by
// asset name for stable pagination.
func (idx *AssetIndex) filterOffline(key QueryKey) []*assets.AssetData {
	all := idx.AllAssets()
	slices.SortFunc(all, func(a, b *assets.AssetData) int {
		return strings.Compare(a.AssetName, b.AssetName)
	})

	search := strings.ToLower(strings.TrimSpace(key.Search))
	result := make([]*assets.AssetData, 0, len(all))
	for _, asset := range all {
		switch key.Tab {
		case TabMyAssets:
			if !asset.Purchased() {
				continue
			}
		case TabImported:
			if !asset.Local() {
				continue
			}
		}
		if key.Type != assets.AssetUnknown && asset.AssetType != key.Type {
			continue
		}
		if key.Category != "" && !slices.Contains(asset.Categories, key.Category) {
			continue
		}
		if search != "" && !matchesSearch(asset, search) {
			continue
		}
		result = append(result, asset)
	}
	return result
}

func matchesSearch(asset *assets.AssetData, search string) bool {
	if search == FreeSearchTerm {
		return asset.Credits == 0
	}
	return strings.Contains(strings.ToLower(asset.AssetName), search) ||
		strings.Contains(strings.ToLower(asset.DisplayName), search)
}

func chunk(all []*assets.AssetData, chunkIdx, chunkSize int) []*assets.AssetData {
	if chunkSize <= 0 {
		return all
	}
	start := chunkIdx * chunkSize
	if start >= len(all) {
		return nil
	}
	end := min(start+chunkSize, len(all))
	return all[start:end]
}
