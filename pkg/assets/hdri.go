package assets

// HDRI is the payload of HDRI assets. The background is a tonemapped JPG
// panorama, the light an EXR/HDR panorama, tracked as single-map textures.
type HDRI struct {
	Background Texture `json:"background"`
	Light      Texture `json:"light"`
}

// LocalSizes returns the sizes at which both the background and the light
// panorama exist on disk.
func (h *HDRI) LocalSizes(includeWatermarked bool) map[string]bool {
	background := h.Background.LocalSizes(includeWatermarked)
	light := h.Light.LocalSizes(includeWatermarked)
	result := map[string]bool{}
	for size := range background {
		if light[size] {
			result[size] = true
		}
	}
	return result
}

// SizeList returns the light panorama sizes the catalog advertises.
func (h *HDRI) SizeList(includeWatermarked bool) []string {
	return h.Light.SizeList(includeWatermarked)
}

// Clone returns a deep copy.
func (h *HDRI) Clone() *HDRI {
	if h == nil {
		return nil
	}
	return &HDRI{
		Background: *h.Background.Clone(),
		Light:      *h.Light.Clone(),
	}
}

func (h *HDRI) merge(in *HDRI, purgeMaps bool) {
	if in == nil {
		return
	}
	h.Background.merge(&in.Background, purgeMaps)
	h.Light.merge(&in.Light, purgeMaps)
}

// Brush is the payload of brush assets: a single alpha texture.
type Brush struct {
	Alpha Texture `json:"alpha"`
}

// LocalSizes returns the sizes at which the alpha texture exists on disk.
func (b *Brush) LocalSizes(includeWatermarked bool) map[string]bool {
	return b.Alpha.LocalSizes(includeWatermarked)
}

// SizeList returns the sizes the catalog advertises.
func (b *Brush) SizeList(includeWatermarked bool) []string {
	return b.Alpha.SizeList(includeWatermarked)
}

// Clone returns a deep copy.
func (b *Brush) Clone() *Brush {
	if b == nil {
		return nil
	}
	return &Brush{Alpha: *b.Alpha.Clone()}
}

func (b *Brush) merge(in *Brush, purgeMaps bool) {
	if in == nil {
		return
	}
	b.Alpha.merge(&in.Alpha, purgeMaps)
}
