package assets

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// The vocabularies below are closed, ordered sets. Filename classification
// never infers tags outside of them; an unrecognized token is simply absent
// from the derived lists. They are policy data and can be revised without
// touching the download or index code.

// Workflows lists the known texture authoring conventions.
var Workflows = []string{"REGULAR", "METALNESS", "SPECULAR"}

// WorkflowDefault is used whenever a filename or asset carries no workflow tag.
const WorkflowDefault = "REGULAR"

// Sizes lists all texture resolution tags in ascending order. SizeWatermarked
// sorts last so that a reverse scan considers it before the real resolutions
// only when nothing else matched.
var Sizes = []string{
	"1K", "2K", "3K", "4K", "6K", "8K", "12K", "16K", "18K", "HIRES", SizeWatermarked,
}

// SizeWatermarked tags free watermarked preview textures.
const SizeWatermarked = "WM"

// LODs lists the known mesh level-of-detail tags.
var LODs = []string{"SOURCE", "LOD0", "LOD1", "LOD2", "LOD3", "LOD4"}

// LODNone marks files without any LOD tag.
const LODNone = "NONE"

// Variants lists the known map variant tags.
var Variants = []string{
	"VAR1", "VAR2", "VAR3", "VAR4", "VAR5", "VAR6", "VAR7", "VAR8", "VAR9",
}

// MapType identifies one logical texture channel.
type MapType string

// Known map type codes.
const (
	MapAlpha        MapType = "ALPHA"
	MapAO           MapType = "AO"
	MapBump         MapType = "BUMP"
	MapBump16       MapType = "BUMP16"
	MapCol          MapType = "COL"
	MapDiff         MapType = "DIFF"
	MapDisp         MapType = "DISP"
	MapDisp16       MapType = "DISP16"
	MapEmission     MapType = "EMISSION"
	MapEnv          MapType = "ENV"
	MapFuzz         MapType = "FUZZ"
	MapGloss        MapType = "GLOSS"
	MapHDR          MapType = "HDR"
	MapIDMap        MapType = "IDMAP"
	MapJPG          MapType = "JPG"
	MapLight        MapType = "LIGHT"
	MapMask         MapType = "MASK"
	MapMetalness    MapType = "METALNESS"
	MapNrm          MapType = "NRM"
	MapNrm16        MapType = "NRM16"
	MapOverlay      MapType = "OVERLAY"
	MapRefl         MapType = "REFL"
	MapRoughness    MapType = "ROUGHNESS"
	MapSSS          MapType = "SSS"
	MapTranslucency MapType = "TRANSLUCENCY"
	MapTransmission MapType = "TRANSMISSION"
	MapUnknown      MapType = "UNKNOWN"
)

// MapTypes lists every recognized map type code.
var MapTypes = []MapType{
	MapAlpha, MapAO, MapBump, MapBump16, MapCol, MapDiff, MapDisp, MapDisp16,
	MapEmission, MapEnv, MapFuzz, MapGloss, MapHDR, MapIDMap, MapJPG, MapLight,
	MapMask, MapMetalness, MapNrm, MapNrm16, MapOverlay, MapRefl, MapRoughness,
	MapSSS, MapTranslucency, MapTransmission,
}

// ModelType identifies the source DCC format of a mesh file.
type ModelType string

// Known mesh formats.
const (
	ModelFBX   ModelType = "FBX"
	ModelBlend ModelType = "BLEND"
	ModelMax   ModelType = "MAX"
	ModelC4D   ModelType = "C4D"
)

// MeshExtensions maps file extensions to mesh formats.
var MeshExtensions = map[string]ModelType{
	".fbx":   ModelFBX,
	".blend": ModelBlend,
	".max":   ModelMax,
	".c4d":   ModelC4D,
}

// ModelFileExtensions lists extensions the API may report for mesh files,
// including formats no local importer handles.
var ModelFileExtensions = []string{"fbx", "blend", "max", "c4d", "skp", "ma"}

// ImageExtensions lists extensions classified as texture map candidates.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".tif", ".exr", ".psd"}

// PreviewSuffixes lists filename endings of bundled preview renders.
var PreviewSuffixes = []string{"_atlas", "_cube", "_flat", "_sphere"}

// Matches a trailing _preview, _preview1, _previewA style tail.
var previewPattern = regexp.MustCompile(`(?i)_[^_]*preview[^_]*$`)

// IsMapTypeCode reports whether code (without variant suffix) is a known
// map type.
func IsMapTypeCode(code string) bool {
	return slices.Contains(MapTypes, MapType(code))
}

// MapTypeFromCode resolves a type code like "COL" or "COL_VAR1" to a MapType,
// returning the variant tag separately. Unknown codes yield MapUnknown.
func MapTypeFromCode(code string) (MapType, string) {
	variant := ""
	if base, v, ok := strings.Cut(code, "_"); ok {
		code = base
		variant = v
	}
	if !IsMapTypeCode(code) {
		return MapUnknown, variant
	}
	return MapType(code), variant
}

// IsImageFilename reports whether the filename has a recognized image
// extension.
func IsImageFilename(filename string) bool {
	return slices.Contains(ImageExtensions, strings.ToLower(filepath.Ext(filename)))
}

// IsPreviewFilename reports whether the filename is a bundled preview render
// rather than a material map.
func IsPreviewFilename(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.ToLower(strings.TrimSuffix(filename, filepath.Ext(filename)))
	if ext == ".mp4" {
		return true
	}
	if !slices.Contains(ImageExtensions, ext) && ext != ".webp" {
		return false
	}
	for _, suffix := range PreviewSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return previewPattern.MatchString(base)
}

// SizeRank returns the position of size within the Sizes ordering, or -1.
func SizeRank(size string) int {
	return slices.Index(Sizes, size)
}

// IsValidSize reports whether size is part of the closed size vocabulary.
func IsValidSize(size string) bool {
	return SizeRank(size) >= 0
}

// SortSizes orders sizes ascending per the vocabulary ordering. Unknown tags
// sort first so they never win a "largest available" scan.
func SortSizes(sizes []string) {
	slices.SortFunc(sizes, func(a, b string) int {
		return SizeRank(a) - SizeRank(b)
	})
}
