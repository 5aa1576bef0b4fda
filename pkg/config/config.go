// Package config provides configuration management for matshelf. It handles
// loading, validating and saving application settings, the ordered asset
// library list and per-type download defaults. Configuration is stored as
// YAML with sensible defaults applied for anything absent.
package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matshelf/matshelf/pkg/assets"
	"github.com/matshelf/matshelf/pkg/errors"
	"github.com/matshelf/matshelf/pkg/fsutil"
)

// Config represents the application configuration.
type Config struct {
	// Libraries is ordered: the first entry is the primary library where new
	// downloads land, the rest are read-mostly secondaries.
	Libraries []*LibraryConfig `yaml:"libraries"`

	// General settings
	Settings Settings `yaml:"settings"`

	// Auth holds the API credentials.
	Auth AuthConfig `yaml:"auth,omitempty"`
}

// LibraryConfig represents one asset library directory.
type LibraryConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Settings represents general application settings.
type Settings struct {
	// Cache settings
	CacheDir string `yaml:"cache_dir,omitempty"`

	// Network settings
	APIBaseURL  string        `yaml:"api_base_url,omitempty"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// Download concurrency and polling
	MaxAssetDownloads int           `yaml:"max_asset_downloads"`
	WorkersPerAsset   int           `yaml:"workers_per_asset"`
	PollInterval      time.Duration `yaml:"poll_interval"`

	// Per-type download defaults
	Download DownloadSettings `yaml:"download,omitempty"`

	// Output settings
	LogLevel string `yaml:"log_level"`
}

// DownloadSettings holds the default download request per asset type.
type DownloadSettings struct {
	TextureSize   string `yaml:"texture_size,omitempty"`
	ModelSize     string `yaml:"model_size,omitempty"`
	HDRIBgSize    string `yaml:"hdri_bg_size,omitempty"`
	HDRILightSize string `yaml:"hdri_light_size,omitempty"`
	BrushSize     string `yaml:"brush_size,omitempty"`
	DownloadLODs  bool   `yaml:"download_lods"`
	Prefer16Bit   bool   `yaml:"prefer_16bit"`
}

// AuthConfig holds the API authentication configuration.
type AuthConfig struct {
	Bearer *BearerAuth `yaml:"bearer,omitempty"`
}

// BearerAuth holds configuration for Bearer token authentication.
type BearerAuth struct {
	Token string `yaml:"token"`
}

// Token returns the configured API token, empty when logged out.
func (c *Config) Token() string {
	if c.Auth.Bearer == nil {
		return ""
	}
	return c.Auth.Bearer.Token
}

// SetToken records the API token; an empty token clears the auth block.
func (c *Config) SetToken(token string) {
	if token == "" {
		c.Auth.Bearer = nil
		return
	}
	c.Auth.Bearer = &BearerAuth{Token: token}
}

// Default configuration values.
const (
	// DefaultAPIBaseURL is the production catalog endpoint.
	DefaultAPIBaseURL = "https://api.matshelf.com/v1"

	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 20 * time.Second

	// DefaultMaxAssetDownloads is the number of assets downloaded in parallel.
	DefaultMaxAssetDownloads = 2

	// DefaultWorkersPerAsset is the number of parallel file fetches per asset.
	DefaultWorkersPerAsset = 8

	// DefaultPollInterval is how often an asset download checks its workers.
	DefaultPollInterval = 250 * time.Millisecond

	// DefaultDownloadSize is the texture size requested when none is set.
	DefaultDownloadSize = "2K"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir, err := fsutil.GetCacheDir()
	if err != nil {
		cacheDir = "."
	}

	libraries := []*LibraryConfig{}
	if libraryDir, err := fsutil.GetDefaultLibraryDir(); err == nil {
		libraries = append(libraries, &LibraryConfig{Name: "primary", Path: libraryDir})
	}

	return &Config{
		Libraries: libraries,
		Settings: Settings{
			CacheDir:          cacheDir,
			APIBaseURL:        DefaultAPIBaseURL,
			HTTPTimeout:       DefaultHTTPTimeout,
			MaxAssetDownloads: DefaultMaxAssetDownloads,
			WorkersPerAsset:   DefaultWorkersPerAsset,
			PollInterval:      DefaultPollInterval,
			Download: DownloadSettings{
				TextureSize:   DefaultDownloadSize,
				ModelSize:     DefaultDownloadSize,
				HDRIBgSize:    "8K",
				HDRILightSize: "1K",
				BrushSize:     "2K",
				DownloadLODs:  true,
			},
			LogLevel: "info",
		},
	}
}

// DefaultConfigPath returns the standard location of the config file.
func DefaultConfigPath() (string, error) {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// LoadConfig loads configuration from a file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	return &config, nil
}

// SaveConfig saves configuration to a file, replacing it atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	// The token lives in this file, keep it out of group/other reads.
	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeSecure)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}

	return nil
}

// applyDefaults fills in zero values with the defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Settings.CacheDir == "" {
		c.Settings.CacheDir = defaults.Settings.CacheDir
	}
	if c.Settings.APIBaseURL == "" {
		c.Settings.APIBaseURL = defaults.Settings.APIBaseURL
	}
	if c.Settings.HTTPTimeout <= 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.MaxAssetDownloads <= 0 {
		c.Settings.MaxAssetDownloads = defaults.Settings.MaxAssetDownloads
	}
	if c.Settings.WorkersPerAsset <= 0 {
		c.Settings.WorkersPerAsset = defaults.Settings.WorkersPerAsset
	}
	if c.Settings.PollInterval <= 0 {
		c.Settings.PollInterval = defaults.Settings.PollInterval
	}
	if c.Settings.Download.TextureSize == "" {
		c.Settings.Download.TextureSize = defaults.Settings.Download.TextureSize
	}
	if c.Settings.Download.ModelSize == "" {
		c.Settings.Download.ModelSize = defaults.Settings.Download.ModelSize
	}
	if c.Settings.Download.HDRIBgSize == "" {
		c.Settings.Download.HDRIBgSize = defaults.Settings.Download.HDRIBgSize
	}
	if c.Settings.Download.HDRILightSize == "" {
		c.Settings.Download.HDRILightSize = defaults.Settings.Download.HDRILightSize
	}
	if c.Settings.Download.BrushSize == "" {
		c.Settings.Download.BrushSize = defaults.Settings.Download.BrushSize
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if len(c.Libraries) == 0 {
		c.Libraries = defaults.Libraries
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateLibraries(c.Libraries); err != nil {
		return err
	}
	return validateSettings(c.Settings)
}

func validateLibraries(libraries []*LibraryConfig) error {
	names := make(map[string]bool)
	paths := make(map[string]bool)
	for _, library := range libraries {
		if library.Path == "" {
			return errors.Wrapf(errors.ErrConfigValidation, "library %q has no path", library.Name)
		}
		if names[library.Name] {
			return errors.Wrapf(errors.ErrConfigValidation, "duplicate library name %q", library.Name)
		}
		if paths[library.Path] {
			return errors.Wrapf(errors.ErrConfigValidation, "duplicate library path %q", library.Path)
		}
		names[library.Name] = true
		paths[library.Path] = true
	}
	return nil
}

func validateSettings(settings Settings) error {
	for _, size := range []string{
		settings.Download.TextureSize,
		settings.Download.ModelSize,
		settings.Download.HDRIBgSize,
		settings.Download.HDRILightSize,
		settings.Download.BrushSize,
	} {
		if size != "" && !assets.IsValidSize(size) {
			return errors.Wrapf(errors.ErrConfigValidation, "unknown download size %q", size)
		}
	}
	if settings.MaxAssetDownloads < 1 {
		return errors.Wrap(errors.ErrConfigValidation, "max_asset_downloads must be at least 1")
	}
	if settings.WorkersPerAsset < 1 {
		return errors.Wrap(errors.ErrConfigValidation, "workers_per_asset must be at least 1")
	}
	return nil
}

// LibraryPaths returns the configured library directories in priority order.
func (c *Config) LibraryPaths() []string {
	paths := make([]string, 0, len(c.Libraries))
	for _, library := range c.Libraries {
		paths = append(paths, library.Path)
	}
	return paths
}

// PrimaryLibrary returns the path new downloads should land in, empty when
// no library is configured.
func (c *Config) PrimaryLibrary() string {
	if len(c.Libraries) == 0 {
		return ""
	}
	return c.Libraries[0].Path
}
