package assets

import (
	"path/filepath"
	"slices"
)

// TextureMapDesc describes one downloadable texture map as reported by the
// catalog, before any file exists locally.
type TextureMapDesc struct {
	MapTypeCode     string   `json:"map_type_code"`
	Sizes           []string `json:"sizes,omitempty"`
	Variants        []string `json:"variants,omitempty"`
	FilenamePreview string   `json:"filename_preview,omitempty"`
}

// MapType resolves the descriptor's code, ignoring any variant suffix.
func (d *TextureMapDesc) MapType() MapType {
	t, _ := MapTypeFromCode(d.MapTypeCode)
	return t
}

// TextureMap is one texture map file found on disk.
type TextureMap struct {
	MapType   MapType `json:"map_type"`
	Size      string  `json:"size"`
	Variant   string  `json:"variant,omitempty"`
	LOD       string  `json:"lod,omitempty"`
	Filename  string  `json:"filename"`
	Directory string  `json:"directory"`
}

// Path returns the absolute location of the map file.
func (m *TextureMap) Path() string {
	return filepath.Join(m.Directory, m.Filename)
}

// Texture is the payload of texture assets and the texture component of
// models, HDRIs and brushes. MapDescs holds what the catalog offers, Maps
// what exists on disk, both keyed by workflow.
type Texture struct {
	MapDescs map[string][]TextureMapDesc `json:"map_descs,omitempty"`
	Maps     map[string][]TextureMap     `json:"maps,omitempty"`

	Sizes    []string `json:"sizes,omitempty"`
	Variants []string `json:"variants,omitempty"`
	LODs     []string `json:"lods,omitempty"`

	WatermarkedURLs []string `json:"watermarked_urls,omitempty"`

	// Physical size in meters, zero when the catalog reports none.
	RealWorldDimension [2]float64 `json:"real_world_dimension,omitempty"`
}

// WorkflowList returns the workflows the catalog or the disk knows about,
// ordered per the workflow vocabulary.
func (t *Texture) WorkflowList() []string {
	seen := map[string]bool{}
	for workflow := range t.MapDescs {
		seen[workflow] = true
	}
	for workflow := range t.Maps {
		seen[workflow] = true
	}
	result := make([]string, 0, len(seen))
	for _, workflow := range Workflows {
		if seen[workflow] {
			result = append(result, workflow)
			delete(seen, workflow)
		}
	}
	for workflow := range seen {
		result = append(result, workflow)
	}
	slices.Sort(result[len(result)-len(seen):])
	return result
}

// Workflow picks a workflow for use, preferring the requested one, then the
// default, then whatever exists.
func (t *Texture) Workflow(preferred string) string {
	workflows := t.WorkflowList()
	if slices.Contains(workflows, preferred) {
		return preferred
	}
	if slices.Contains(workflows, WorkflowDefault) {
		return WorkflowDefault
	}
	if len(workflows) > 0 {
		return workflows[0]
	}
	return WorkflowDefault
}

// SizeList returns the sizes the catalog advertises, ascending. Watermarked
// is excluded unless requested.
func (t *Texture) SizeList(includeWatermarked bool) []string {
	result := make([]string, 0, len(t.Sizes))
	for _, size := range t.Sizes {
		if size == SizeWatermarked && !includeWatermarked {
			continue
		}
		result = append(result, size)
	}
	SortSizes(result)
	return result
}

// LocalSizes returns the sizes for which at least one map file exists,
// across all workflows. Watermarked files never count unless requested.
func (t *Texture) LocalSizes(includeWatermarked bool) map[string]bool {
	result := map[string]bool{}
	for _, maps := range t.Maps {
		for i := range maps {
			size := maps[i].Size
			if size == SizeWatermarked && !includeWatermarked {
				continue
			}
			if size != "" {
				result[size] = true
			}
		}
	}
	return result
}

// MapTypeList returns the map types offered for a workflow, with the 8/16 bit
// pairs collapsed to the preferred depth when both are present.
func (t *Texture) MapTypeList(workflow string, prefer16Bit bool) []MapType {
	seen := map[MapType]bool{}
	for i := range t.MapDescs[workflow] {
		seen[t.MapDescs[workflow][i].MapType()] = true
	}
	pairs := map[MapType]MapType{
		MapBump: MapBump16,
		MapDisp: MapDisp16,
		MapNrm:  MapNrm16,
	}
	for low, high := range pairs {
		if !seen[low] || !seen[high] {
			continue
		}
		if prefer16Bit {
			delete(seen, low)
		} else {
			delete(seen, high)
		}
	}
	result := make([]MapType, 0, len(seen))
	for _, mapType := range MapTypes {
		if seen[mapType] {
			result = append(result, mapType)
		}
	}
	return result
}

// HasMaps reports whether any map file is known on disk.
func (t *Texture) HasMaps() bool {
	for _, maps := range t.Maps {
		if len(maps) > 0 {
			return true
		}
	}
	return false
}

// AppendMap records a discovered map file under a workflow, ignoring exact
// duplicates.
func (t *Texture) AppendMap(workflow string, m TextureMap) {
	if t.Maps == nil {
		t.Maps = map[string][]TextureMap{}
	}
	if slices.Contains(t.Maps[workflow], m) {
		return
	}
	t.Maps[workflow] = append(t.Maps[workflow], m)
}

// Clone returns a deep copy.
func (t *Texture) Clone() *Texture {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Sizes = slices.Clone(t.Sizes)
	clone.Variants = slices.Clone(t.Variants)
	clone.LODs = slices.Clone(t.LODs)
	clone.WatermarkedURLs = slices.Clone(t.WatermarkedURLs)
	if t.MapDescs != nil {
		clone.MapDescs = make(map[string][]TextureMapDesc, len(t.MapDescs))
		for workflow, descs := range t.MapDescs {
			cloned := slices.Clone(descs)
			for i := range cloned {
				cloned[i].Sizes = slices.Clone(cloned[i].Sizes)
				cloned[i].Variants = slices.Clone(cloned[i].Variants)
			}
			clone.MapDescs[workflow] = cloned
		}
	}
	if t.Maps != nil {
		clone.Maps = make(map[string][]TextureMap, len(t.Maps))
		for workflow, maps := range t.Maps {
			clone.Maps[workflow] = slices.Clone(maps)
		}
	}
	return &clone
}

// merge folds non-empty fields of in into t. With purgeMaps the existing
// on-disk map records are discarded first, so a fresh directory scan fully
// replaces stale state.
func (t *Texture) merge(in *Texture, purgeMaps bool) {
	if in == nil {
		return
	}
	if purgeMaps {
		t.Maps = nil
	}
	if len(in.MapDescs) > 0 {
		t.MapDescs = in.Clone().MapDescs
	}
	for workflow, maps := range in.Maps {
		for i := range maps {
			t.AppendMap(workflow, maps[i])
		}
	}
	if len(in.Sizes) > 0 {
		t.Sizes = slices.Clone(in.Sizes)
	}
	if len(in.Variants) > 0 {
		t.Variants = slices.Clone(in.Variants)
	}
	if len(in.LODs) > 0 {
		t.LODs = slices.Clone(in.LODs)
	}
	if len(in.WatermarkedURLs) > 0 {
		t.WatermarkedURLs = slices.Clone(in.WatermarkedURLs)
	}
	if in.RealWorldDimension != [2]float64{} {
		t.RealWorldDimension = in.RealWorldDimension
	}
}
