package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/matshelf/matshelf/internal/logger"
	"github.com/matshelf/matshelf/pkg/config"
)

// NewConfigCmd creates the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "View and modify matshelf configuration settings",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
		newConfigAddLibraryCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long:  "Create a default configuration file",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration file")

	return cmd
}

func newConfigAddLibraryCmd() *cobra.Command {
	var primary bool

	cmd := &cobra.Command{
		Use:   "add-library NAME PATH",
		Short: "Add an asset library directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runConfigAddLibrary(args[0], args[1], primary)
		},
	}

	cmd.Flags().BoolVar(&primary, "primary", false, "Make this the primary library for new downloads")

	return cmd
}

func runConfigShow(*cobra.Command, []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tabWriter := tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "SETTING\tVALUE")
	_, _ = fmt.Fprintf(tabWriter, "api_base_url\t%s\n", cfg.Settings.APIBaseURL)
	_, _ = fmt.Fprintf(tabWriter, "cache_dir\t%s\n", cfg.Settings.CacheDir)
	_, _ = fmt.Fprintf(tabWriter, "http_timeout\t%s\n", cfg.Settings.HTTPTimeout)
	_, _ = fmt.Fprintf(tabWriter, "max_asset_downloads\t%d\n", cfg.Settings.MaxAssetDownloads)
	_, _ = fmt.Fprintf(tabWriter, "workers_per_asset\t%d\n", cfg.Settings.WorkersPerAsset)
	_, _ = fmt.Fprintf(tabWriter, "texture_size\t%s\n", cfg.Settings.Download.TextureSize)
	_, _ = fmt.Fprintf(tabWriter, "model_size\t%s\n", cfg.Settings.Download.ModelSize)
	_, _ = fmt.Fprintf(tabWriter, "hdri_bg_size\t%s\n", cfg.Settings.Download.HDRIBgSize)
	_, _ = fmt.Fprintf(tabWriter, "hdri_light_size\t%s\n", cfg.Settings.Download.HDRILightSize)
	_, _ = fmt.Fprintf(tabWriter, "log_level\t%s\n", cfg.Settings.LogLevel)
	_ = tabWriter.Flush()

	fmt.Printf("\nLogged in: %v\n", cfg.Token() != "")
	fmt.Printf("Libraries (%d):\n", len(cfg.Libraries))
	for i, library := range cfg.Libraries {
		role := "secondary"
		if i == 0 {
			role = "primary"
		}
		fmt.Printf("  %s: %s (%s)\n", library.Name, library.Path, role)
	}
	return nil
}

func runConfigInit(force bool) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", configPath)
	}

	defaultConfig := config.DefaultConfig()
	if err := defaultConfig.SaveConfig(configPath); err != nil {
		return fmt.Errorf("failed to save default configuration: %w", err)
	}

	logger.Success("Configuration file created", logger.Fields{"path": configPath})
	return nil
}

func runConfigAddLibrary(name, path string, primary bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	library := &config.LibraryConfig{Name: name, Path: path}
	if primary {
		cfg.Libraries = append([]*config.LibraryConfig{library}, cfg.Libraries...)
	} else {
		cfg.Libraries = append(cfg.Libraries, library)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid library configuration: %w", err)
	}
	if err := cfg.SaveConfig(getConfigPath()); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	logger.Success("Library added", logger.Fields{"name": name, "path": path})
	return nil
}
