package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/matshelf/matshelf/pkg/assets"
	"github.com/matshelf/matshelf/pkg/index"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var (
		purchased bool
		assetType string
		category  string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List local assets",
		Long: `List the assets found in the local libraries. With --purchased the listing
covers everything the account owns, downloaded or not.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runList(purchased, assetType, category, limit)
		},
	}

	cmd.Flags().BoolVar(&purchased, "purchased", false, "List purchased assets instead of local ones")
	cmd.Flags().StringVar(&assetType, "type", "", "Filter by asset type (Texture, Model, HDRI, Brush)")
	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	cmd.Flags().IntVar(&limit, "limit", DefaultListLimit, "Maximum number of assets to show")

	return cmd
}

func runList(purchased bool, assetType, category string, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx := openIndex(cfg)

	tab := index.TabImported
	if purchased {
		tab = index.TabMyAssets
	}
	result, err := idx.Query(index.QueryKey{
		Tab:       tab,
		Type:      assets.AssetType(assetType),
		Category:  category,
		Chunk:     0,
		ChunkSize: limit,
	})
	if err != nil {
		return fmt.Errorf("listing failed: %w", err)
	}

	if len(result) == 0 {
		fmt.Println("No assets found. Run 'matshelf sync' to refresh the index.")
		return nil
	}

	printAssetTable(result)
	fmt.Printf("\n%d asset(s)\n", len(result))
	return nil
}

func printAssetTable(list []*assets.AssetData) {
	tabWriter := tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "ID\tNAME\tTYPE\tSIZES\tLOCAL\tCREDITS")

	for _, asset := range list {
		local := "-"
		if asset.Local() {
			sizes := make([]string, 0, 4)
			for size := range asset.LocalSizes(false) {
				sizes = append(sizes, size)
			}
			assets.SortSizes(sizes)
			local = strings.Join(sizes, ",")
			if local == "" {
				local = "yes"
			}
		}
		_, _ = fmt.Fprintf(tabWriter, "%d\t%s\t%s\t%s\t%s\t%d\n",
			asset.AssetID,
			asset.DisplayName,
			asset.AssetType,
			strings.Join(asset.SizeList(false), ","),
			local,
			asset.Credits)
	}

	_ = tabWriter.Flush()
}
