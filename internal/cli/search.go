package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matshelf/matshelf/pkg/api"
	"github.com/matshelf/matshelf/pkg/config"
	"github.com/matshelf/matshelf/pkg/index"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var (
		online   bool
		category string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search for assets",
		Long: `Search the indexed assets by name. The special query "free" matches all
assets that cost no credits. With --online the query goes to the catalog
service and the results are folded into the local index.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), args[0], online, category, limit)
		},
	}

	cmd.Flags().BoolVar(&online, "online", false, "Search the online catalog instead of the local index")
	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	cmd.Flags().IntVar(&limit, "limit", DefaultListLimit, "Maximum number of results")

	return cmd
}

func runSearch(ctx context.Context, query string, online bool, category string, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx := openIndex(cfg)

	key := index.QueryKey{
		Tab:       index.TabMyAssets,
		Category:  category,
		Search:    query,
		Chunk:     0,
		ChunkSize: limit,
	}
	if online {
		key.Tab = index.TabOnline
		if err := fetchOnlinePage(ctx, cfg, idx, key); err != nil {
			return err
		}
	}

	result, err := idx.Query(key)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(result) == 0 {
		fmt.Printf("No assets found matching '%s'\n", query)
		return nil
	}

	printAssetTable(result)
	fmt.Printf("\nFound %d asset(s) matching '%s'\n", len(result), query)
	return nil
}

// fetchOnlinePage runs one catalog query and stores the page in the index,
// so the same query afterwards is served from cache.
func fetchOnlinePage(ctx context.Context, cfg *config.Config, idx *index.AssetIndex, key index.QueryKey) error {
	if idx.QueryExists(key) {
		return nil
	}

	client := newClient(cfg)
	records, _, err := client.GetAssets(ctx, api.AssetQuery{
		Search:   key.Search,
		Category: key.Category,
		Page:     key.Chunk + 1,
		PerPage:  key.ChunkSize,
	})
	if err != nil {
		return fmt.Errorf("catalog search failed: %w", err)
	}

	idx.PopulateAssets(records, false)
	ids := make([]int, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	idx.StoreQuery(key, ids)
	saveIndex(idx)
	return nil
}
