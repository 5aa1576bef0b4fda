package index

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/matshelf/matshelf/internal/logger"
	"github.com/matshelf/matshelf/pkg/assets"
	"github.com/matshelf/matshelf/pkg/download"
	"github.com/matshelf/matshelf/pkg/errors"
)

// parsedFile is the classification of one file inside an asset directory.
type parsedFile struct {
	isMesh    bool
	modelType assets.ModelType

	mapType  assets.MapType
	size     string
	variant  string
	lod      string
	workflow string
}

// parseAssetFile classifies a filename against the tag vocabularies. The
// second return is false for files that carry no asset content: previews,
// in-flight temp files and unrelated formats.
func parseAssetFile(filename string) (*parsedFile, bool) {
	if strings.HasSuffix(strings.ToLower(filepath.Ext(filename)), download.TempSuffix) {
		return nil, false
	}
	if assets.IsPreviewFilename(filename) {
		return nil, false
	}

	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	tokens := strings.Split(base, "_")

	if modelType, ok := assets.MeshExtensions[ext]; ok {
		parsed := &parsedFile{isMesh: true, modelType: modelType}
		for _, token := range tokens[1:] {
			upper := strings.ToUpper(token)
			switch {
			case isLODToken(upper):
				parsed.lod = upper
			case assets.IsValidSize(upper):
				parsed.size = upper
			}
		}
		return parsed, true
	}

	if !assets.IsImageFilename(filename) && ext != ".exr" && ext != ".hdr" {
		return nil, false
	}

	parsed := &parsedFile{workflow: assets.WorkflowDefault}
	for _, token := range tokens[1:] {
		upper := strings.ToUpper(token)
		switch {
		case assets.IsValidSize(upper):
			parsed.size = upper
		case assets.IsMapTypeCode(upper):
			parsed.mapType = assets.MapType(upper)
		case isVariantToken(upper):
			parsed.variant = upper
		case isLODToken(upper):
			parsed.lod = upper
		case isWorkflowToken(upper):
			parsed.workflow = upper
		}
	}
	if parsed.mapType == "" {
		// Untagged images in an asset directory are diffuse-like color maps.
		parsed.mapType = assets.MapDiff
	}
	return parsed, true
}

func isLODToken(token string) bool {
	for _, lod := range assets.LODs {
		if token == lod {
			return true
		}
	}
	return false
}

func isVariantToken(token string) bool {
	for _, variant := range assets.Variants {
		if token == variant {
			return true
		}
	}
	return false
}

func isWorkflowToken(token string) bool {
	for _, workflow := range assets.Workflows {
		if token == workflow {
			return true
		}
	}
	return false
}

// UpdateFromDirectory rescans one asset directory and replaces the asset's
// on-disk state with what is actually there. The locality flag and the
// downloaded timestamp follow from the scan result.
func (idx *AssetIndex) UpdateFromDirectory(assetID int, directory string) error {
	asset, err := idx.GetAsset(assetID)
	if err != nil {
		return err
	}

	update, err := buildDirectoryUpdate(asset, directory)
	if err != nil {
		return err
	}
	if err := idx.UpdateAsset(assetID, update, true); err != nil {
		return err
	}

	rescanned, err := idx.GetAsset(assetID)
	if err != nil {
		return err
	}
	local := len(rescanned.LocalSizes(false)) > 0
	if rescanned.Model != nil && rescanned.Model.HasMesh("") {
		local = true
	}
	return idx.SetLocal(assetID, local)
}

// buildDirectoryUpdate walks the directory and assembles the payload update
// for the asset's type.
func buildDirectoryUpdate(asset *assets.AssetData, directory string) (*assets.AssetData, error) {
	update := &assets.AssetData{
		AssetID:   asset.AssetID,
		AssetName: asset.AssetName,
		AssetType: asset.AssetType,
	}
	texture := &assets.Texture{}
	model := &assets.Model{}
	hdri := &assets.HDRI{}
	brush := &assets.Brush{}

	err := filepath.WalkDir(directory, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		parsed, ok := parseAssetFile(entry.Name())
		if !ok {
			return nil
		}
		fileDir := filepath.Dir(path)

		if parsed.isMesh {
			model.AppendMesh(assets.ModelMesh{
				ModelType: parsed.modelType,
				LOD:       parsed.lod,
				Filename:  entry.Name(),
				Directory: fileDir,
			})
			return nil
		}

		texMap := assets.TextureMap{
			MapType:   parsed.mapType,
			Size:      parsed.size,
			Variant:   parsed.variant,
			LOD:       parsed.lod,
			Filename:  entry.Name(),
			Directory: fileDir,
		}
		switch asset.AssetType {
		case assets.AssetHDRI:
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if ext == ".exr" || ext == ".hdr" {
				hdri.Light.AppendMap(parsed.workflow, texMap)
			} else {
				hdri.Background.AppendMap(parsed.workflow, texMap)
			}
		case assets.AssetBrush:
			brush.Alpha.AppendMap(parsed.workflow, texMap)
		case assets.AssetModel:
			if model.Texture == nil {
				model.Texture = &assets.Texture{}
			}
			model.Texture.AppendMap(parsed.workflow, texMap)
		default:
			texture.AppendMap(parsed.workflow, texMap)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan %s", directory)
	}

	switch asset.AssetType {
	case assets.AssetTexture:
		update.Texture = texture
	case assets.AssetModel:
		update.Model = model
	case assets.AssetHDRI:
		update.HDRI = hdri
	case assets.AssetBrush:
		update.Brush = brush
	default:
		return nil, errors.Wrapf(errors.ErrNotSupported, "asset type %q", asset.AssetType)
	}
	return update, nil
}

// UpdateAllLocalAssets rescans every configured library. Libraries are
// processed in reverse priority order so that when an asset exists in
// several libraries, the primary's files end up as the asset's on-disk
// state. The first return maps the name of every purchased asset whose
// files were found in no library to its ID; the second lists directory
// names that match no indexed asset. Both are for reporting.
func (idx *AssetIndex) UpdateAllLocalAssets(libraryPaths []string) (map[string]int, []string, error) {
	matched := map[int]bool{}
	var unmatchedDirs []string
	for i := len(libraryPaths) - 1; i >= 0; i-- {
		library := libraryPaths[i]
		entries, err := os.ReadDir(library)
		if err != nil {
			if os.IsNotExist(err) {
				logger.DebugfWithFields(logger.Fields{"library": library},
					"library directory does not exist, skipping")
				continue
			}
			return nil, unmatchedDirs, errors.Wrapf(err, "failed to read library %s", library)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			asset, err := idx.GetAssetByName(entry.Name())
			if err != nil {
				unmatchedDirs = append(unmatchedDirs, filepath.Join(library, entry.Name()))
				continue
			}
			matched[asset.AssetID] = true
			if err := idx.UpdateFromDirectory(asset.AssetID, filepath.Join(library, entry.Name())); err != nil {
				logger.WarnfWithFields(logger.Fields{
					"asset": asset.AssetName,
					"error": err.Error(),
				}, "failed to rescan asset directory")
			}
		}
	}

	unmatchedAssets := map[string]int{}
	for _, asset := range idx.AllAssets() {
		if asset.Purchased() && !matched[asset.AssetID] {
			unmatchedAssets[asset.AssetName] = asset.AssetID
		}
	}
	return unmatchedAssets, unmatchedDirs, nil
}

// FindAssetDirectory returns the directory of an asset within the given
// libraries, preferring earlier (higher priority) libraries. Empty when the
// asset exists in none of them.
func FindAssetDirectory(assetName string, libraryPaths []string) string {
	for _, library := range libraryPaths {
		candidate := filepath.Join(library, assetName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return ""
}
