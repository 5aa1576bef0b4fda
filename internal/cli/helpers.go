package cli

import (
	"path/filepath"

	"github.com/matshelf/matshelf/internal/logger"
	"github.com/matshelf/matshelf/pkg/api"
	"github.com/matshelf/matshelf/pkg/config"
	"github.com/matshelf/matshelf/pkg/errors"
	"github.com/matshelf/matshelf/pkg/fsutil"
	"github.com/matshelf/matshelf/pkg/hook"
	"github.com/matshelf/matshelf/pkg/index"
	"github.com/matshelf/matshelf/pkg/orchestrator"
)

// These variables will be set by the main package.
var (
	ConfigPath *string
	Verbose    *bool
)

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.DefaultConfigPath()
	if err != nil {
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// loadConfig loads the configuration, applying CLI flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	logger.InitLogger(cfg.Settings.LogLevel)

	return cfg, nil
}

// newClient creates an API client from the config. An invalidated token is
// dropped from the config file so the next command prompts a fresh login.
func newClient(cfg *config.Config) *api.Client {
	client := api.NewClient(cfg.Settings.APIBaseURL, cfg.Settings.HTTPTimeout)
	client.SetToken(cfg.Token())
	client.OnTokenInvalid(func(_ string) {
		logger.Warn("Session expired, please log in again")
		cfg.SetToken("")
		if err := cfg.SaveConfig(getConfigPath()); err != nil {
			logger.Warn("Failed to clear stored token", logger.Fields{"error": err})
		}
	})
	return client
}

// indexCachePath is where the asset index snapshot lives.
func indexCachePath(cfg *config.Config) string {
	return filepath.Join(cfg.Settings.CacheDir, "assets.json.gz")
}

// openIndex creates the asset index and warms it from the cache snapshot.
// A corrupted snapshot is dropped and the index starts empty.
func openIndex(cfg *config.Config) *index.AssetIndex {
	idx := index.NewAssetIndex(indexCachePath(cfg))
	if err := idx.LoadCache(); err != nil {
		if errors.Is(err, errors.ErrCacheCorrupted) {
			logger.Warn("Asset cache corrupted, rebuilding", logger.Fields{"error": err})
			_ = idx.DeleteCache()
		} else {
			logger.Warn("Failed to load asset cache", logger.Fields{"error": err})
		}
	}
	return idx
}

// saveIndex persists the index snapshot; failures are logged, not fatal.
func saveIndex(idx *index.AssetIndex) {
	if err := idx.SaveCache(); err != nil {
		logger.Warn("Failed to save asset cache", logger.Fields{"error": err})
	}
}

// loadHooks reads the download hook scripts from the config directory.
func loadHooks() *hook.Executor {
	executor := hook.NewExecutor()
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		return executor
	}
	if err := executor.LoadScripts(configDir); err != nil {
		logger.Warn("Failed to load hook scripts", logger.Fields{"error": err})
	}
	return executor
}

// newOrchestrator assembles the download orchestrator from the config.
func newOrchestrator(cfg *config.Config, client *api.Client, idx *index.AssetIndex, callbacks orchestrator.Callbacks) *orchestrator.Orchestrator {
	opts := orchestrator.Options{
		MaxAssetDownloads: cfg.Settings.MaxAssetDownloads,
		WorkersPerAsset:   cfg.Settings.WorkersPerAsset,
		PollInterval:      cfg.Settings.PollInterval,
		LibraryPaths:      cfg.LibraryPaths(),
		Hooks:             loadHooks(),
	}
	return orchestrator.New(client, idx, opts, callbacks)
}
