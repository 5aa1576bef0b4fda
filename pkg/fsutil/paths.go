// Package fsutil provides filesystem helpers: platform application
// directories, permission constants, safe moves and disk-space checks.
package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const (
	// AppName is the name of the application used in paths.
	AppName = "matshelf"
)

// GetCacheDir returns the platform-specific cache directory for the
// application. The asset index snapshot and thumbnail cache live here.
func GetCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// GetConfigDir returns the platform-specific configuration directory.
// Config, auth token and hook scripts live here.
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		return filepath.Join(appData, AppName), nil

	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppName), nil

	default: // Linux, BSD, etc.
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			return filepath.Join(xdgConfigHome, AppName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	}
}

// GetDefaultLibraryDir returns the default primary asset library location,
// a "Matshelf Library" folder in the user's home directory.
func GetDefaultLibraryDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Matshelf Library"), nil
}

// GetThumbnailCacheDir returns the directory for downloaded preview images.
// Format: <cache_dir>/thumbs/
func GetThumbnailCacheDir() (string, error) {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "thumbs"), nil
}

// EnsureAppDirs creates the config and cache directories if needed.
func EnsureAppDirs() error {
	dirs := []func() (string, error){
		GetConfigDir,
		GetCacheDir,
		GetThumbnailCacheDir,
	}

	for _, dirFn := range dirs {
		dir, err := dirFn()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, DirModeDefault); err != nil {
			return err
		}
	}

	return nil
}
