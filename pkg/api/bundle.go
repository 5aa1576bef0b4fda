package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matshelf/matshelf/pkg/archive"
	"github.com/matshelf/matshelf/pkg/download"
	"github.com/matshelf/matshelf/pkg/errors"
)

// DownloadAssetBundle fetches a legacy single-ZIP asset and unpacks it into
// destDir. Older purchases have no per-file URL plan; the backend serves one
// bundle for the whole asset instead.
func (c *Client) DownloadAssetBundle(ctx context.Context, assetID int, destDir string) error {
	if err := c.ensureToken(); err != nil {
		return err
	}

	var resp struct {
		URL       string `json:"url"`
		SizeBytes int64  `json:"size_bytes"`
	}
	path := fmt.Sprintf("/assets/%d/download?bundle=true", assetID)
	if err := c.request(ctx, "POST", path, nil, &resp); err != nil {
		return errors.Wrapf(err, "failed to resolve bundle URL for asset %d", assetID)
	}
	if resp.URL == "" {
		return errors.Wrapf(errors.ErrMissingURLs, "asset %d bundle", assetID)
	}

	bundleName := fmt.Sprintf("asset_%d.zip", assetID)
	file := download.NewFileDownload(resp.URL, bundleName, destDir, resp.SizeBytes)
	file.MarkWaiting()
	if err := c.DownloadFile(ctx, file); err != nil {
		return errors.Wrapf(err, "failed to download bundle for asset %d", assetID)
	}
	if file.Status() != download.StatusDone {
		return errors.Wrapf(errors.ErrDownloadFailed, "asset %d bundle", assetID)
	}

	bundlePath := file.TempPath()
	defer func() { _ = os.Remove(bundlePath) }()

	if err := archive.NewManager().ExtractBundle(ctx, bundlePath, destDir); err != nil {
		return err
	}
	return nil
}

// DownloadPreview fetches a thumbnail or preview render into destPath. Used
// by the thumbnail prefetch jobs; preview URLs are public and unauthed.
func (c *Client) DownloadPreview(ctx context.Context, url, destPath string) error {
	file := download.NewFileDownload(url, filepath.Base(destPath), filepath.Dir(destPath), 0)
	file.MarkWaiting()
	if err := c.DownloadFile(ctx, file); err != nil {
		return errors.Wrap(err, "failed to download preview")
	}
	if file.Status() != download.StatusDone {
		return errors.Wrap(errors.ErrDownloadFailed, "preview")
	}
	return os.Rename(file.TempPath(), destPath)
}
