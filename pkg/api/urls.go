package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/matshelf/matshelf/pkg/download"
	"github.com/matshelf/matshelf/pkg/errors"
)

// DownloadSpec describes what the user wants of an asset: which texture
// sizes, which mesh LODs and which workflow.
type DownloadSpec struct {
	Sizes       []string `json:"sizes,omitempty"`
	LODs        []string `json:"lods,omitempty"`
	Workflow    string   `json:"workflow,omitempty"`
	Prefer16Bit bool     `json:"prefer_16bit,omitempty"`
}

// DownloadPlan is the resolved set of file transfers for one asset download.
// The URLs are short-lived; a plan that sat around too long fails its
// transfers with ErrURLExpired and must be refetched.
type DownloadPlan struct {
	AssetID   int
	Downloads []*download.FileDownload
	SizeTotal int64
}

// fileRecord is the wire format of one downloadable file.
type fileRecord struct {
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
}

type downloadURLResponse struct {
	Files []fileRecord `json:"files"`
}

// GetDownloadURLs resolves the file list and signed URLs for one asset
// download. Source-format files are skipped except the lone-FBX fallback,
// and entries with the same filename and size collapse to one transfer.
// directory is where the transfer units will write. isRetry tells the
// backend this request replaces a failed plan, which keeps the download
// counted once.
func (c *Client) GetDownloadURLs(ctx context.Context, assetID int, directory string, spec DownloadSpec, isRetry bool) (*DownloadPlan, error) {
	if err := c.ensureToken(); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/assets/%d/download", assetID)
	if isRetry {
		path += "?retry=true"
	}
	var resp downloadURLResponse
	if err := c.request(ctx, "POST", path, spec, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to resolve download URLs for asset %d", assetID)
	}

	files := filterSourceFiles(resp.Files)
	files = dedupeFiles(files)
	if len(files) == 0 {
		return nil, errors.Wrapf(errors.ErrMissingURLs, "asset %d", assetID)
	}

	plan := &DownloadPlan{AssetID: assetID}
	for _, file := range files {
		plan.Downloads = append(plan.Downloads,
			download.NewFileDownload(file.URL, file.Filename, directory, file.SizeBytes))
		plan.SizeTotal += file.SizeBytes
	}
	return plan, nil
}

// filterSourceFiles drops "_SOURCE" master files. Exception: when the only
// FBX the asset has is a source FBX, it is kept, otherwise the model would
// download without any mesh.
func filterSourceFiles(files []fileRecord) []fileRecord {
	loneSourceFBX := ""
	fbxCount := 0
	for _, file := range files {
		if !strings.HasSuffix(strings.ToLower(file.Filename), ".fbx") {
			continue
		}
		fbxCount++
		if isSourceFile(file.Filename) {
			loneSourceFBX = file.Filename
		}
	}
	keepSource := fbxCount == 1 && loneSourceFBX != ""

	result := make([]fileRecord, 0, len(files))
	for _, file := range files {
		if isSourceFile(file.Filename) && !(keepSource && file.Filename == loneSourceFBX) {
			continue
		}
		result = append(result, file)
	}
	return result
}

func isSourceFile(filename string) bool {
	return strings.Contains(strings.ToUpper(filename), "_SOURCE")
}

// dedupeFiles collapses entries with identical filename and size. Backends
// occasionally list the same file under multiple map groupings.
func dedupeFiles(files []fileRecord) []fileRecord {
	type key struct {
		name string
		size int64
	}
	seen := map[key]bool{}
	result := make([]fileRecord, 0, len(files))
	for _, file := range files {
		k := key{name: file.Filename, size: file.SizeBytes}
		if seen[k] {
			continue
		}
		seen[k] = true
		result = append(result, file)
	}
	return result
}
