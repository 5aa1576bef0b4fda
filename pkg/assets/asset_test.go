package assets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matshelf/matshelf/pkg/errors"
)

func testTextureAsset() *AssetData {
	return &AssetData{
		AssetID:   100,
		AssetName: "Metal001",
		AssetType: AssetTexture,
		Texture: &Texture{
			MapDescs: map[string][]TextureMapDesc{
				"REGULAR": {
					{MapTypeCode: "COL", Sizes: []string{"1K", "2K", "4K"}},
					{MapTypeCode: "NRM", Sizes: []string{"1K", "2K", "4K"}},
					{MapTypeCode: "NRM16", Sizes: []string{"1K", "2K", "4K"}},
				},
			},
			Sizes: []string{"1K", "2K", "4K", "WM"},
		},
	}
}

func TestUpdateIdentityMismatch(t *testing.T) {
	asset := testTextureAsset()

	err := asset.Update(&AssetData{AssetID: 999, AssetName: "Metal001"}, false)
	require.ErrorIs(t, err, errors.ErrAssetMismatch)

	err = asset.Update(&AssetData{AssetID: 100, AssetName: "Wood042"}, false)
	require.ErrorIs(t, err, errors.ErrAssetMismatch)

	err = asset.Update(&AssetData{AssetID: 100, AssetType: AssetModel}, false)
	require.ErrorIs(t, err, errors.ErrAssetMismatch)
}

func TestUpdateTriState(t *testing.T) {
	asset := testTextureAsset()
	require.Nil(t, asset.IsLocal)

	// A nil flag in the update must not clear a known value.
	asset.SetLocal(true)
	require.NoError(t, asset.Update(&AssetData{AssetID: 100}, false))
	assert.True(t, asset.Local())

	// A known flag overwrites.
	update := &AssetData{AssetID: 100}
	update.SetLocal(false)
	require.NoError(t, asset.Update(update, false))
	assert.False(t, asset.Local())
}

func TestUpdateMergesMaps(t *testing.T) {
	asset := testTextureAsset()
	onDisk := &AssetData{
		AssetID: 100,
		Texture: &Texture{Maps: map[string][]TextureMap{
			"REGULAR": {
				{MapType: MapCol, Size: "2K", Filename: "Metal001_COL_2K.jpg", Directory: "/lib/Metal001"},
			},
		}},
	}
	require.NoError(t, asset.Update(onDisk, false))
	assert.True(t, asset.Texture.LocalSizes(false)["2K"])

	// Duplicate records collapse.
	require.NoError(t, asset.Update(onDisk, false))
	assert.Len(t, asset.Texture.Maps["REGULAR"], 1)

	// A purging update replaces the on-disk view entirely.
	rescan := &AssetData{
		AssetID: 100,
		Texture: &Texture{Maps: map[string][]TextureMap{
			"REGULAR": {
				{MapType: MapCol, Size: "4K", Filename: "Metal001_COL_4K.jpg", Directory: "/lib/Metal001"},
			},
		}},
	}
	require.NoError(t, asset.Update(rescan, true))
	local := asset.Texture.LocalSizes(false)
	assert.False(t, local["2K"])
	assert.True(t, local["4K"])
}

func TestCloneIsDeep(t *testing.T) {
	asset := testTextureAsset()
	asset.SetPurchased(true)
	now := time.Now()
	asset.PurchasedAt = &now
	asset.Texture.AppendMap("REGULAR", TextureMap{
		MapType: MapCol, Size: "1K", Filename: "Metal001_COL_1K.jpg", Directory: "/lib/Metal001",
	})

	clone := asset.Clone()
	clone.SetPurchased(false)
	clone.Texture.Maps["REGULAR"][0].Size = "8K"
	clone.Categories = append(clone.Categories, "Metal")
	clone.Texture.Sizes[0] = "18K"

	assert.True(t, asset.Purchased())
	assert.Equal(t, "1K", asset.Texture.Maps["REGULAR"][0].Size)
	assert.Empty(t, asset.Categories)
	assert.Equal(t, "1K", asset.Texture.Sizes[0])
}

func TestTextureSizeList(t *testing.T) {
	texture := testTextureAsset().Texture
	assert.Equal(t, []string{"1K", "2K", "4K"}, texture.SizeList(false))
	assert.Equal(t, []string{"1K", "2K", "4K", "WM"}, texture.SizeList(true))
}

func TestTextureLocalSizesExcludesWatermarked(t *testing.T) {
	texture := &Texture{}
	texture.AppendMap("REGULAR", TextureMap{MapType: MapCol, Size: "WM", Filename: "a_COL_WM.jpg"})
	assert.Empty(t, texture.LocalSizes(false))
	assert.True(t, texture.LocalSizes(true)["WM"])
}

func TestMapTypeListCollapses16Bit(t *testing.T) {
	texture := testTextureAsset().Texture

	low := texture.MapTypeList("REGULAR", false)
	assert.Contains(t, low, MapNrm)
	assert.NotContains(t, low, MapNrm16)

	high := texture.MapTypeList("REGULAR", true)
	assert.Contains(t, high, MapNrm16)
	assert.NotContains(t, high, MapNrm)
}

func TestWorkflowFallback(t *testing.T) {
	texture := &Texture{MapDescs: map[string][]TextureMapDesc{
		"METALNESS": {{MapTypeCode: "COL"}},
		"SPECULAR":  {{MapTypeCode: "COL"}},
	}}
	assert.Equal(t, "SPECULAR", texture.Workflow("SPECULAR"))
	// No REGULAR present, unknown preference falls back to vocabulary order.
	assert.Equal(t, "METALNESS", texture.Workflow("MOSSY"))
}

func TestHDRILocalSizesIntersect(t *testing.T) {
	hdri := &HDRI{}
	hdri.Background.AppendMap("REGULAR", TextureMap{MapType: MapJPG, Size: "4K", Filename: "Sky_4K_JPG.jpg"})
	hdri.Background.AppendMap("REGULAR", TextureMap{MapType: MapJPG, Size: "8K", Filename: "Sky_8K_JPG.jpg"})
	hdri.Light.AppendMap("REGULAR", TextureMap{MapType: MapHDR, Size: "4K", Filename: "Sky_4K_HDR.exr"})

	local := hdri.LocalSizes(false)
	assert.True(t, local["4K"])
	assert.False(t, local["8K"])
}

func TestModelLocalLODs(t *testing.T) {
	model := &Model{}
	model.AppendMesh(ModelMesh{ModelType: ModelFBX, LOD: "LOD1", Filename: "Chair_LOD1.fbx"})
	model.AppendMesh(ModelMesh{ModelType: ModelBlend, Filename: "Chair.blend"})

	assert.True(t, model.HasMesh(ModelFBX))
	assert.True(t, model.HasMesh(""))
	assert.False(t, model.HasMesh(ModelMax))

	fbx := model.LocalLODs(ModelFBX)
	assert.True(t, fbx["LOD1"])
	assert.False(t, fbx[LODNone])
	assert.True(t, model.LocalLODs(ModelBlend)[LODNone])
}
