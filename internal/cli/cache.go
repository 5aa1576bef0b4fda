package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matshelf/matshelf/internal/logger"
	"github.com/matshelf/matshelf/pkg/fsutil"
)

// NewCacheCmd creates the cache command with subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the index and thumbnail caches",
	}

	cmd.AddCommand(
		newCacheInfoCmd(),
		newCacheCleanCmd(),
	)

	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache location and contents",
		RunE:  runCacheInfo,
	}
}

func newCacheCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete the cached index snapshot and thumbnails",
		RunE:  runCacheClean,
	}
}

func runCacheInfo(*cobra.Command, []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx := openIndex(cfg)

	fmt.Printf("Index snapshot: %s\n", indexCachePath(cfg))
	fmt.Printf("Indexed assets: %d\n", idx.Len())

	if thumbDir, err := fsutil.GetThumbnailCacheDir(); err == nil {
		entries, _ := os.ReadDir(thumbDir)
		fmt.Printf("Thumbnails: %d file(s) in %s\n", len(entries), thumbDir)
	}
	return nil
}

func runCacheClean(*cobra.Command, []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx := openIndex(cfg)

	if err := idx.DeleteCache(); err != nil {
		return fmt.Errorf("failed to delete index snapshot: %w", err)
	}

	if thumbDir, err := fsutil.GetThumbnailCacheDir(); err == nil {
		if err := os.RemoveAll(thumbDir); err != nil {
			logger.Warn("Failed to delete thumbnails", logger.Fields{"error": err})
		}
	}

	logger.Success("Cache cleaned")
	return nil
}
