package index

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/matshelf/matshelf/internal/logger"
	"github.com/matshelf/matshelf/pkg/api"
	"github.com/matshelf/matshelf/pkg/assets"
	"github.com/matshelf/matshelf/pkg/errors"
)

var titleCaser = cases.Title(language.English)

// timestampLayouts are the formats catalog timestamps arrive in.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ConstructAsset turns a catalog record into an index record. Substance
// archives are recognized but unsupported and fail with ErrNotSupported.
func ConstructAsset(record *api.AssetRecord) (*assets.AssetData, error) {
	if record == nil || record.ID == 0 || record.Name == "" {
		return nil, errors.Wrap(errors.ErrNotPopulated, "asset record missing identity")
	}

	asset := &assets.AssetData{
		AssetID:     record.ID,
		AssetName:   record.Name,
		AssetType:   assets.AssetType(record.Type),
		DisplayName: record.DisplayName,
		Categories:  titleCaseAll(record.Categories),
		URL:         record.URL,
		Slug:        record.Slug,
		Credits:     record.Credits,
		ThumbURLs:   record.ThumbURLs,
		PublishedAt: parseTimestamp(record.PublishedAt),
	}
	if asset.DisplayName == "" {
		asset.DisplayName = record.Name
	}
	if purchasedAt := parseTimestamp(record.PurchasedAt); purchasedAt != nil {
		asset.PurchasedAt = purchasedAt
		asset.SetPurchased(true)
	}

	switch asset.AssetType {
	case assets.AssetTexture:
		asset.Texture = constructTexture(record)
	case assets.AssetModel:
		asset.Model = &assets.Model{
			Texture:     constructTexture(record),
			Sizes:       record.Sizes,
			SizeDefault: record.SizeDefault,
			Variants:    record.Variants,
			LODs:        record.LODs,
		}
	case assets.AssetHDRI:
		// HDRIs carry their map offer under the default workflow only.
		if len(record.Workflows) > 0 && record.Workflows[assets.WorkflowDefault] == nil {
			return nil, errors.Wrapf(errors.ErrNotPopulated,
				"HDRI %s lacks the %s workflow", record.Name, assets.WorkflowDefault)
		}
		asset.HDRI = &assets.HDRI{
			Background: assets.Texture{Sizes: record.Sizes},
			Light:      *constructTexture(record),
		}
	case assets.AssetBrush:
		asset.Brush = &assets.Brush{Alpha: *constructTexture(record)}
	case assets.AssetSubstance:
		return nil, errors.Wrapf(errors.ErrNotSupported, "substance asset %s", record.Name)
	default:
		return nil, errors.Wrapf(errors.ErrNotSupported, "asset type %q", record.Type)
	}

	return asset, nil
}

func constructTexture(record *api.AssetRecord) *assets.Texture {
	texture := &assets.Texture{
		Sizes:              record.Sizes,
		Variants:           record.Variants,
		LODs:               record.LODs,
		WatermarkedURLs:    record.WatermarkedURLs,
		RealWorldDimension: parseDimensions(record.Dimensions),
	}
	if len(record.Workflows) > 0 {
		texture.MapDescs = map[string][]assets.TextureMapDesc{}
		for workflow, descs := range record.Workflows {
			converted := make([]assets.TextureMapDesc, 0, len(descs))
			for _, desc := range descs {
				converted = append(converted, assets.TextureMapDesc{
					MapTypeCode:     desc.TypeCode,
					Sizes:           desc.Sizes,
					Variants:        desc.Variants,
					FilenamePreview: desc.FilenamePreview,
				})
			}
			texture.MapDescs[workflow] = converted
		}
	}
	return texture
}

// PopulateAssets constructs and merges a batch of catalog records.
// Unsupported records are skipped, not fatal; a listing page may always
// contain asset types this client does not handle. markPurchased flags every
// record, used for the purchased-assets listing.
func (idx *AssetIndex) PopulateAssets(records []api.AssetRecord, markPurchased bool) int {
	added := 0
	for i := range records {
		asset, err := ConstructAsset(&records[i])
		if err != nil {
			if errors.Is(err, errors.ErrNotSupported) {
				logger.DebugfWithFields(logger.Fields{"asset": records[i].Name},
					"skipping unsupported asset")
			} else {
				logger.WarnfWithFields(logger.Fields{
					"asset": records[i].Name,
					"error": err.Error(),
				}, "failed to construct asset")
			}
			continue
		}
		if markPurchased {
			asset.SetPurchased(true)
		}
		if err := idx.LoadAsset(asset); err != nil {
			logger.WarnfWithFields(logger.Fields{
				"asset": asset.AssetName,
				"error": err.Error(),
			}, "failed to merge asset")
			continue
		}
		added++
	}
	return added
}

func titleCaseAll(categories []string) []string {
	result := make([]string, 0, len(categories))
	for _, category := range categories {
		result = append(result, titleCaser.String(category))
	}
	return result
}

func parseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// parseDimensions reads catalog dimension strings like "2.4 x 2.4 m" or
// "300 x 300 cm" into meters. Anything unparseable yields zero.
func parseDimensions(value string) [2]float64 {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return [2]float64{}
	}
	factor := 1.0
	switch {
	case strings.HasSuffix(value, "cm"):
		factor = 0.01
		value = strings.TrimSuffix(value, "cm")
	case strings.HasSuffix(value, "mm"):
		factor = 0.001
		value = strings.TrimSuffix(value, "mm")
	case strings.HasSuffix(value, "m"):
		value = strings.TrimSuffix(value, "m")
	}
	parts := strings.Split(value, "x")
	if len(parts) != 2 {
		return [2]float64{}
	}
	width, errW := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	height, errH := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errW != nil || errH != nil {
		return [2]float64{}
	}
	return [2]float64{width * factor, height * factor}
}
