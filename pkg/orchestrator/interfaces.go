package orchestrator

import (
	"context"

	"github.com/matshelf/matshelf/pkg/api"
	"github.com/matshelf/matshelf/pkg/assets"
	"github.com/matshelf/matshelf/pkg/download"
)

//go:generate mockgen -destination=./mocks/orchestrator_mock.go -package=mocks . Backend,Index

// Backend resolves download plans and executes the individual file
// transfers. Satisfied by api.Client.
type Backend interface {
	// GetDownloadURLs resolves the file list and signed URLs for one asset
	// download into the given directory.
	GetDownloadURLs(ctx context.Context, assetID int, directory string, spec api.DownloadSpec, isRetry bool) (*api.DownloadPlan, error)

	// DownloadFile executes one file transfer unit.
	DownloadFile(ctx context.Context, file *download.FileDownload) error
}

// Index is the slice of the asset index the orchestrator needs: asset
// lookups before a download and the rescan afterwards. Satisfied by
// index.AssetIndex.
type Index interface {
	GetAsset(assetID int) (*assets.AssetData, error)
	UpdateFromDirectory(assetID int, directory string) error
}
