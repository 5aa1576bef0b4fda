package cli

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/spf13/cobra"

	"github.com/matshelf/matshelf/internal/logger"
	"github.com/matshelf/matshelf/pkg/assets"
	"github.com/matshelf/matshelf/pkg/config"
	"github.com/matshelf/matshelf/pkg/errors"
	"github.com/matshelf/matshelf/pkg/index"
	"github.com/matshelf/matshelf/pkg/jobs"
	"github.com/matshelf/matshelf/pkg/orchestrator"
)

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	var (
		size     string
		workflow string
		lods     []string
		bit16    bool
	)

	cmd := &cobra.Command{
		Use:   "download [ASSET...]",
		Short: "Download assets into the library",
		Long: `Download one or more assets, given by ID or name, into the primary library.
Texture size and workflow default to the configured per-type settings.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.Context(), args, size, workflow, lods, bit16)
		},
	}

	cmd.Flags().StringVar(&size, "size", "", "Texture size to download (defaults to config)")
	cmd.Flags().StringVar(&workflow, "workflow", "", "Texture workflow (REGULAR, METALNESS, SPECULAR)")
	cmd.Flags().StringSliceVar(&lods, "lod", nil, "Model LODs to download")
	cmd.Flags().BoolVar(&bit16, "16bit", false, "Prefer 16-bit map variants")

	return cmd
}

func runDownload(ctx context.Context, args []string, size, workflow string, lods []string, bit16 bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx := openIndex(cfg)
	client := newClient(cfg)

	resolved := make([]*assets.AssetData, 0, len(args))
	for _, arg := range args {
		asset, err := resolveAsset(ctx, cfg, idx, arg)
		if err != nil {
			return err
		}
		resolved = append(resolved, asset)
	}

	var mu sync.Mutex
	failures := map[int]error{}
	orch := newOrchestrator(cfg, client, idx, orchestrator.Callbacks{
		OnProgress: func(assetID int, downloaded, total int64) {
			if total > 0 {
				fmt.Printf("\rasset %d: %3d%%", assetID, downloaded*100/total)
			}
		},
		OnDone: func(assetID int, err error) {
			fmt.Println()
			mu.Lock()
			if err != nil {
				failures[assetID] = err
			}
			mu.Unlock()
		},
	})

	manager := jobs.NewManager(cfg.Settings.MaxAssetDownloads)
	var wg sync.WaitGroup
	for _, asset := range resolved {
		asset := asset
		req := requestForAsset(cfg, asset, size, workflow, lods, bit16)

		wg.Add(1)
		scheduled := manager.Schedule(&jobs.Job{
			Type:   jobs.TypeDownloadAsset,
			Key:    strconv.Itoa(asset.AssetID),
			Run:    func(ctx context.Context) error { return orch.DownloadAsset(ctx, asset.AssetID, req) },
			OnDone: func(error) { wg.Done() },
		})
		if !scheduled {
			wg.Done()
		}
	}
	wg.Wait()
	manager.Shutdown()
	saveIndex(idx)

	if len(failures) > 0 {
		for assetID, err := range failures {
			logger.Error("Download failed", logger.Fields{"asset_id": assetID, "error": err})
		}
		return fmt.Errorf("%d of %d download(s) failed: %w", len(failures), len(resolved), errors.ErrDownloadFailed)
	}

	logger.Successf("Downloaded %d asset(s)", len(resolved))
	return nil
}

// resolveAsset turns an ID or name argument into an indexed asset, fetching
// the record from the catalog when the index does not know it yet.
func resolveAsset(ctx context.Context, cfg *config.Config, idx *index.AssetIndex, arg string) (*assets.AssetData, error) {
	if id, err := strconv.Atoi(arg); err == nil {
		if asset, err := idx.GetAsset(id); err == nil {
			return asset, nil
		}
		return fetchAsset(ctx, cfg, idx, id)
	}

	asset, err := idx.GetAssetByName(arg)
	if err != nil {
		return nil, fmt.Errorf("unknown asset %q, run 'matshelf sync' first: %w", arg, err)
	}
	return asset, nil
}

func fetchAsset(ctx context.Context, cfg *config.Config, idx *index.AssetIndex, assetID int) (*assets.AssetData, error) {
	client := newClient(cfg)
	record, err := client.GetAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset %d: %w", assetID, err)
	}
	asset, err := index.ConstructAsset(record)
	if err != nil {
		return nil, fmt.Errorf("unusable asset record %d: %w", assetID, err)
	}
	if err := idx.LoadAsset(asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// requestForAsset builds the download request, falling back to the per-type
// configured defaults where no flag was given.
func requestForAsset(cfg *config.Config, asset *assets.AssetData, size, workflow string, lods []string, bit16 bool) orchestrator.Request {
	settings := cfg.Settings.Download

	if size == "" {
		switch asset.AssetType {
		case assets.AssetModel:
			size = settings.ModelSize
		case assets.AssetHDRI:
			size = settings.HDRIBgSize
		case assets.AssetBrush:
			size = settings.BrushSize
		default:
			size = settings.TextureSize
		}
	}
	if len(lods) == 0 && asset.AssetType == assets.AssetModel && settings.DownloadLODs && asset.Model != nil {
		lods = asset.Model.LODs
	}

	return orchestrator.Request{
		Sizes:       []string{size},
		LODs:        lods,
		Workflow:    workflow,
		Prefer16Bit: bit16 || settings.Prefer16Bit,
	}
}
