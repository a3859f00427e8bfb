package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCLIConfigMissingFile(t *testing.T) {
	cfg, err := LoadCLIConfig(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg != DefaultCLIConfig() {
		t.Fatalf("got %+v, want defaults", cfg)
	}
}

func TestLoadCLIConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[storage]
sqlite_db_path = "/var/lib/finpal.db"

[defaults]
user = "alice"
city_resident = true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadCLIConfig(path)
	if err != nil {
		t.Fatalf("LoadCLIConfig: %v", err)
	}
	if cfg.Storage.SQLiteDBPath != "/var/lib/finpal.db" {
		t.Errorf("SQLiteDBPath = %q", cfg.Storage.SQLiteDBPath)
	}
	if cfg.Defaults.User != "alice" || !cfg.Defaults.CityResident {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	// unset keys keep their defaults
	if cfg.Defaults.Jurisdiction != "NY" {
		t.Errorf("Jurisdiction = %q, want NY", cfg.Defaults.Jurisdiction)
	}
}

func TestLoadCLIConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[storage\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCLIConfig(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestSaveCLIConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultCLIConfig()
	cfg.Defaults.User = "bob"
	cfg.Tax.BracketsPath = "/etc/finpal/brackets.csv"

	if err := SaveCLIConfig(path, cfg); err != nil {
		t.Fatalf("SaveCLIConfig: %v", err)
	}
	got, err := LoadCLIConfig(path)
	if err != nil {
		t.Fatalf("LoadCLIConfig: %v", err)
	}
	if got != cfg {
		t.Fatalf("got %+v, want %+v", got, cfg)
	}
}

func TestCLIConfigPathHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := CLIConfigPath(); got != "/tmp/xdg/finpal/config.toml" {
		t.Fatalf("CLIConfigPath = %q", got)
	}
}
