// Package assets defines the asset data model shared by the catalog client,
// the download orchestrator and the local asset index: one AssetData record
// per asset with exactly one type-specific payload, plus the closed
// vocabularies used to classify files on disk.
package assets

import (
	"slices"
	"time"

	"github.com/matshelf/matshelf/pkg/errors"
)

// AssetType discriminates the payload carried by an AssetData.
type AssetType string

// Known asset types. Substance archives are recognized in catalog data but
// have no local handling.
const (
	AssetUnknown   AssetType = ""
	AssetTexture   AssetType = "Texture"
	AssetModel     AssetType = "Model"
	AssetHDRI      AssetType = "HDRI"
	AssetBrush     AssetType = "Brush"
	AssetSubstance AssetType = "Substance"
)

// AssetData is the index record for one asset. The Is*/At pointer fields are
// tri-state: nil means unknown, which an Update never lets overwrite a known
// value with.
type AssetData struct {
	AssetID   int       `json:"asset_id"`
	AssetName string    `json:"asset_name"`
	AssetType AssetType `json:"asset_type"`

	DisplayName string   `json:"display_name,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	URL         string   `json:"url,omitempty"`
	Slug        string   `json:"slug,omitempty"`
	Credits     int      `json:"credits"`
	ThumbURLs   []string `json:"thumb_urls,omitempty"`

	PublishedAt  *time.Time `json:"published_at,omitempty"`
	IsLocal      *bool      `json:"is_local,omitempty"`
	IsPurchased  *bool      `json:"is_purchased,omitempty"`
	PurchasedAt  *time.Time `json:"purchased_at,omitempty"`
	DownloadedAt *time.Time `json:"downloaded_at,omitempty"`

	Texture *Texture `json:"texture,omitempty"`
	Model   *Model   `json:"model,omitempty"`
	HDRI    *HDRI    `json:"hdri,omitempty"`
	Brush   *Brush   `json:"brush,omitempty"`
}

// Local reports the known-local flag, false when unknown.
func (a *AssetData) Local() bool {
	return a.IsLocal != nil && *a.IsLocal
}

// Purchased reports the known-purchased flag, false when unknown.
func (a *AssetData) Purchased() bool {
	return a.IsPurchased != nil && *a.IsPurchased
}

// SetLocal records the locality flag.
func (a *AssetData) SetLocal(local bool) {
	a.IsLocal = &local
}

// SetPurchased records the purchase flag.
func (a *AssetData) SetPurchased(purchased bool) {
	a.IsPurchased = &purchased
}

// SizeList returns the download sizes the catalog advertises for this asset,
// ascending. Empty for types without sized content.
func (a *AssetData) SizeList(includeWatermarked bool) []string {
	switch {
	case a.Texture != nil:
		return a.Texture.SizeList(includeWatermarked)
	case a.Model != nil:
		return a.Model.SizeList(includeWatermarked)
	case a.HDRI != nil:
		return a.HDRI.SizeList(includeWatermarked)
	case a.Brush != nil:
		return a.Brush.SizeList(includeWatermarked)
	}
	return nil
}

// LocalSizes returns the sizes present on disk per the payload's rules.
func (a *AssetData) LocalSizes(includeWatermarked bool) map[string]bool {
	switch {
	case a.Texture != nil:
		return a.Texture.LocalSizes(includeWatermarked)
	case a.Model != nil && a.Model.Texture != nil:
		return a.Model.Texture.LocalSizes(includeWatermarked)
	case a.HDRI != nil:
		return a.HDRI.LocalSizes(includeWatermarked)
	case a.Brush != nil:
		return a.Brush.LocalSizes(includeWatermarked)
	}
	return map[string]bool{}
}

// Update merges in into a. Identity fields must match; an attempt to change
// asset ID, name or type fails with ErrAssetMismatch. Zero and nil fields of
// in never clear known state. purgeMaps discards recorded on-disk files
// before merging, so a full rescan replaces stale entries.
func (a *AssetData) Update(in *AssetData, purgeMaps bool) error {
	if in == nil {
		return nil
	}
	if in.AssetID != 0 && a.AssetID != 0 && in.AssetID != a.AssetID {
		return errors.Wrapf(errors.ErrAssetMismatch, "asset id %d vs %d", a.AssetID, in.AssetID)
	}
	if in.AssetName != "" && a.AssetName != "" && in.AssetName != a.AssetName {
		return errors.Wrapf(errors.ErrAssetMismatch, "asset name %s vs %s", a.AssetName, in.AssetName)
	}
	if in.AssetType != AssetUnknown && a.AssetType != AssetUnknown && in.AssetType != a.AssetType {
		return errors.Wrapf(errors.ErrAssetMismatch, "asset type %s vs %s", a.AssetType, in.AssetType)
	}

	if a.AssetID == 0 {
		a.AssetID = in.AssetID
	}
	if a.AssetName == "" {
		a.AssetName = in.AssetName
	}
	if a.AssetType == AssetUnknown {
		a.AssetType = in.AssetType
	}
	if in.DisplayName != "" {
		a.DisplayName = in.DisplayName
	}
	if len(in.Categories) > 0 {
		a.Categories = slices.Clone(in.Categories)
	}
	if in.URL != "" {
		a.URL = in.URL
	}
	if in.Slug != "" {
		a.Slug = in.Slug
	}
	if in.Credits != 0 {
		a.Credits = in.Credits
	}
	if len(in.ThumbURLs) > 0 {
		a.ThumbURLs = slices.Clone(in.ThumbURLs)
	}
	if in.PublishedAt != nil {
		a.PublishedAt = cloneTime(in.PublishedAt)
	}
	if in.IsLocal != nil {
		a.SetLocal(*in.IsLocal)
	}
	if in.IsPurchased != nil {
		a.SetPurchased(*in.IsPurchased)
	}
	if in.PurchasedAt != nil {
		a.PurchasedAt = cloneTime(in.PurchasedAt)
	}
	if in.DownloadedAt != nil {
		a.DownloadedAt = cloneTime(in.DownloadedAt)
	}

	if in.Texture != nil {
		if a.Texture == nil {
			a.Texture = &Texture{}
		}
		a.Texture.merge(in.Texture, purgeMaps)
	}
	if in.Model != nil {
		if a.Model == nil {
			a.Model = &Model{}
		}
		a.Model.merge(in.Model, purgeMaps)
	}
	if in.HDRI != nil {
		if a.HDRI == nil {
			a.HDRI = &HDRI{}
		}
		a.HDRI.merge(in.HDRI, purgeMaps)
	}
	if in.Brush != nil {
		if a.Brush == nil {
			a.Brush = &Brush{}
		}
		a.Brush.merge(in.Brush, purgeMaps)
	}
	return nil
}

// Clone returns a deep copy. Index accessors hand out clones so callers can
// never mutate shared state.
func (a *AssetData) Clone() *AssetData {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Categories = slices.Clone(a.Categories)
	clone.ThumbURLs = slices.Clone(a.ThumbURLs)
	clone.PublishedAt = cloneTime(a.PublishedAt)
	clone.IsLocal = cloneBool(a.IsLocal)
	clone.IsPurchased = cloneBool(a.IsPurchased)
	clone.PurchasedAt = cloneTime(a.PurchasedAt)
	clone.DownloadedAt = cloneTime(a.DownloadedAt)
	clone.Texture = a.Texture.Clone()
	clone.Model = a.Model.Clone()
	clone.HDRI = a.HDRI.Clone()
	clone.Brush = a.Brush.Clone()
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	clone := *b
	return &clone
}
