package cli

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matshelf/matshelf/internal/logger"
	"github.com/matshelf/matshelf/pkg/fsutil"
	"github.com/matshelf/matshelf/pkg/jobs"
)

// NewPreviewCmd creates the preview command.
func NewPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview [ASSET...]",
		Short: "Download asset preview images",
		Long:  "Fetch the preview images of the given assets into the thumbnail cache.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context(), args)
		},
	}

	return cmd
}

func runPreview(ctx context.Context, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx := openIndex(cfg)
	client := newClient(cfg)

	thumbDir, err := fsutil.GetThumbnailCacheDir()
	if err != nil {
		return fmt.Errorf("failed to locate thumbnail cache: %w", err)
	}
	if err := fsutil.EnsureDir(thumbDir); err != nil {
		return err
	}

	manager := jobs.NewManager(jobs.DefaultWorkers)
	defer manager.Shutdown()

	fetched := 0
	for _, arg := range args {
		asset, err := resolveAsset(ctx, cfg, idx, arg)
		if err != nil {
			return err
		}
		if len(asset.ThumbURLs) == 0 {
			logger.Warn("Asset has no previews", logger.Fields{"asset": asset.AssetName})
			continue
		}

		done := make(chan error, len(asset.ThumbURLs))
		for i, url := range asset.ThumbURLs {
			url := url
			destPath := filepath.Join(thumbDir,
				fmt.Sprintf("%s_%d%s", asset.AssetName, i, path.Ext(url)))
			manager.Force(&jobs.Job{
				Type:   jobs.TypeDownloadThumb,
				Key:    asset.AssetName + "_" + strconv.Itoa(i),
				Run:    func(ctx context.Context) error { return client.DownloadPreview(ctx, url, destPath) },
				OnDone: func(err error) { done <- err },
			})
		}
		for range asset.ThumbURLs {
			if err := <-done; err != nil {
				logger.Warn("Preview download failed", logger.Fields{"asset": asset.AssetName, "error": err})
				continue
			}
			fetched++
		}
	}

	fmt.Printf("Fetched %d preview(s) into %s\n", fetched, thumbDir)
	return nil
}
