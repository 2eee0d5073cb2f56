package app

import (
	"fmt"
	"os"
	"path/filepath"

	"snapkeep/internal/config"
	"snapkeep/internal/snap"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - SNAPKEEP_CONFIG_PATH: config file location (default: ~/.config/snapkeep.toml)
//   - SNAPKEEP_HOME: base directory for snapkeep data (default: ~/.local/share/snapkeep)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking SNAPKEEP_CONFIG_PATH env var first,
// then falling back to the default ~/.config/snapkeep.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("SNAPKEEP_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: cannot determine home directory: %v", snap.ErrConfig, err)
	}
	return filepath.Join(homeDir, ".config", "snapkeep.toml"), nil
}

// getBaseDir returns the base directory for snapkeep data, checking SNAPKEEP_HOME env var
// first, then falling back to the XDG default ~/.local/share/snapkeep.
func getBaseDir() (string, error) {
	if path := os.Getenv("SNAPKEEP_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: cannot determine home directory: %v", snap.ErrConfig, err)
	}
	return filepath.Join(homeDir, ".local", "share", "snapkeep"), nil
}

// LoadConfig reads the config file at the default location, falling back to
// a default Config rooted at the default base directory when no file exists.
func LoadConfig() (*config.Config, error) {
	defaults, err := GetDefaults()
	if err != nil {
		return nil, err
	}

	path := defaults["config_path"]
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.NewConfig(defaults["base_dir"]), nil
	}
	return config.ReadFromFile(path)
}
