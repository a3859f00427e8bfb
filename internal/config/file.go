package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// CLIConfig holds finpalctl defaults read from config.toml. Flags override it.
type CLIConfig struct {
	Storage  StorageConfig  `toml:"storage"`
	Tax      TaxConfig      `toml:"tax"`
	Defaults DefaultsConfig `toml:"defaults"`
}

type StorageConfig struct {
	SQLiteDBPath string `toml:"sqlite_db_path"`
}

type TaxConfig struct {
	BracketsPath string `toml:"brackets_path,omitempty"`
}

// DefaultsConfig holds values used when a command omits the flag.
type DefaultsConfig struct {
	User         string `toml:"user,omitempty"`
	Jurisdiction string `toml:"jurisdiction"`
	CityResident bool   `toml:"city_resident"`
}

// DefaultCLIConfig returns the configuration used when no file exists.
func DefaultCLIConfig() CLIConfig {
	return CLIConfig{
		Storage:  StorageConfig{SQLiteDBPath: "./data/finpal.db"},
		Defaults: DefaultsConfig{Jurisdiction: "NY"},
	}
}

// CLIConfigDir returns the XDG config directory for finpal.
func CLIConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "finpal")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "finpal")
}

// CLIConfigPath returns the full path to config.toml.
func CLIConfigPath() string {
	return filepath.Join(CLIConfigDir(), "config.toml")
}

// LoadCLIConfig reads path, returning defaults if it doesn't exist.
func LoadCLIConfig(path string) (CLIConfig, error) {
	cfg := DefaultCLIConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveCLIConfig writes cfg to path, creating its directory.
func SaveCLIConfig(path string, cfg CLIConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
