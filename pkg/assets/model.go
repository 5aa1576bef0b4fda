package assets

import (
	"path/filepath"
	"slices"
)

// ModelMesh is one mesh file found on disk.
type ModelMesh struct {
	ModelType ModelType `json:"model_type"`
	LOD       string    `json:"lod,omitempty"`
	Filename  string    `json:"filename"`
	Directory string    `json:"directory"`
}

// Path returns the absolute location of the mesh file.
func (m *ModelMesh) Path() string {
	return filepath.Join(m.Directory, m.Filename)
}

// Model is the payload of model assets: mesh files plus their texture set.
type Model struct {
	Meshes  []ModelMesh `json:"meshes,omitempty"`
	Texture *Texture    `json:"texture,omitempty"`

	Sizes       []string `json:"sizes,omitempty"`
	SizeDefault string   `json:"size_default,omitempty"`
	Variants    []string `json:"variants,omitempty"`
	LODs        []string `json:"lods,omitempty"`
}

// HasMesh reports whether a mesh file of the given format exists on disk.
// A zero modelType matches any format.
func (m *Model) HasMesh(modelType ModelType) bool {
	for i := range m.Meshes {
		if modelType == "" || m.Meshes[i].ModelType == modelType {
			return true
		}
	}
	return false
}

// LocalLODs returns the LOD tags for which a mesh of the given format exists
// on disk. Untagged meshes report under LODNone.
func (m *Model) LocalLODs(modelType ModelType) map[string]bool {
	result := map[string]bool{}
	for i := range m.Meshes {
		if modelType != "" && m.Meshes[i].ModelType != modelType {
			continue
		}
		lod := m.Meshes[i].LOD
		if lod == "" {
			lod = LODNone
		}
		result[lod] = true
	}
	return result
}

// AppendMesh records a discovered mesh file, ignoring exact duplicates.
func (m *Model) AppendMesh(mesh ModelMesh) {
	if slices.Contains(m.Meshes, mesh) {
		return
	}
	m.Meshes = append(m.Meshes, mesh)
}

// SizeList returns the texture sizes the catalog advertises for this model,
// ascending.
func (m *Model) SizeList(includeWatermarked bool) []string {
	result := make([]string, 0, len(m.Sizes))
	for _, size := range m.Sizes {
		if size == SizeWatermarked && !includeWatermarked {
			continue
		}
		result = append(result, size)
	}
	SortSizes(result)
	return result
}

// Clone returns a deep copy.
func (m *Model) Clone() *Model {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Meshes = slices.Clone(m.Meshes)
	clone.Texture = m.Texture.Clone()
	clone.Sizes = slices.Clone(m.Sizes)
	clone.Variants = slices.Clone(m.Variants)
	clone.LODs = slices.Clone(m.LODs)
	return &clone
}

// merge folds non-empty fields of in into m. purgeMaps clears recorded mesh
// and map files before merging, for a full directory rescan.
func (m *Model) merge(in *Model, purgeMaps bool) {
	if in == nil {
		return
	}
	if purgeMaps {
		m.Meshes = nil
	}
	for i := range in.Meshes {
		m.AppendMesh(in.Meshes[i])
	}
	if in.Texture != nil {
		if m.Texture == nil {
			m.Texture = &Texture{}
		}
		m.Texture.merge(in.Texture, purgeMaps)
	} else if purgeMaps && m.Texture != nil {
		m.Texture.Maps = nil
	}
	if len(in.Sizes) > 0 {
		m.Sizes = slices.Clone(in.Sizes)
	}
	if in.SizeDefault != "" {
		m.SizeDefault = in.SizeDefault
	}
	if len(in.Variants) > 0 {
		m.Variants = slices.Clone(in.Variants)
	}
	if len(in.LODs) > 0 {
		m.LODs = slices.Clone(in.LODs)
	}
}
