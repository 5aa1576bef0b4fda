package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matshelf/matshelf/internal/logger"
	"github.com/matshelf/matshelf/pkg/api"
	"github.com/matshelf/matshelf/pkg/config"
	"github.com/matshelf/matshelf/pkg/index"
)

// syncPageSize is how many assets one account-listing request fetches.
const syncPageSize = 100

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	var localOnly bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the asset index",
		Long: `Fetch the purchased-assets listing from the account and rescan the local
libraries, then save the refreshed index snapshot.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), localOnly)
		},
	}

	cmd.Flags().BoolVar(&localOnly, "local-only", false, "Skip the account fetch, only rescan the libraries")

	return cmd
}

func runSync(ctx context.Context, localOnly bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx := openIndex(cfg)

	if !localOnly && cfg.Token() != "" {
		fetched, err := fetchUserAssets(ctx, cfg, idx)
		if err != nil {
			return err
		}
		fmt.Printf("Fetched %d purchased asset(s)\n", fetched)
	}

	missing, unmatched, err := idx.UpdateAllLocalAssets(cfg.LibraryPaths())
	if err != nil {
		return fmt.Errorf("library rescan failed: %w", err)
	}
	for _, dir := range unmatched {
		logger.Debug("Directory matches no known asset", logger.Fields{"dir": dir})
	}
	for name, id := range missing {
		logger.Debug("Purchased asset has no local files", logger.Fields{"asset": name, "asset_id": id})
	}

	saveIndex(idx)

	local := 0
	for _, asset := range idx.AllAssets() {
		if asset.Local() {
			local++
		}
	}
	fmt.Printf("Index holds %d asset(s), %d local", idx.Len(), local)
	if len(missing) > 0 {
		fmt.Printf(", %d purchased but not on disk", len(missing))
	}
	if len(unmatched) > 0 {
		fmt.Printf(", %d unmatched directorie(s)", len(unmatched))
	}
	fmt.Println()
	return nil
}

// fetchUserAssets pages through the purchased-assets listing and loads every
// record into the index.
func fetchUserAssets(ctx context.Context, cfg *config.Config, idx *index.AssetIndex) (int, error) {
	client := newClient(cfg)

	loaded := 0
	received := 0
	for page := 1; ; page++ {
		records, total, err := client.GetUserAssets(ctx, api.AssetQuery{Page: page, PerPage: syncPageSize})
		if err != nil {
			return loaded, fmt.Errorf("failed to fetch purchased assets: %w", err)
		}
		loaded += idx.PopulateAssets(records, true)
		received += len(records)
		if received >= total || len(records) == 0 {
			return loaded, nil
		}
	}
}
