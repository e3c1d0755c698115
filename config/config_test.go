package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sveliz/nordctl/common"
)

func TestLoadCreatesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	defaults := DefaultConfig()
	if *cfg != *defaults {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, defaults)
	}

	path := filepath.Join(os.Getenv("HOME"), ".config", common.ConfigDirName, common.ConfigFileName)
	if !common.FileExists(path) {
		t.Error("config file not persisted on first run")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.MaxLoad = 55
	cfg.ServerLimit = 3
	cfg.APIBaseURL = "https://mirror.test"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("Load() = %+v, want %+v", loaded, cfg)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", common.ConfigDirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	raw := "max_load: 30\nbogus_setting: true\n"
	if err := os.WriteFile(filepath.Join(dir, common.ConfigFileName), []byte(raw), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("Load() accepted an unknown field")
	}
}

func TestLoadClampsInvalidValues(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", common.ConfigDirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	raw := "max_load: 250\nserver_limit: -1\n"
	if err := os.WriteFile(filepath.Join(dir, common.ConfigFileName), []byte(raw), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxLoad != common.DefaultMaxLoad {
		t.Errorf("MaxLoad = %d, want clamped default %d", cfg.MaxLoad, common.DefaultMaxLoad)
	}
	if cfg.ServerLimit != common.DefaultServerLimit {
		t.Errorf("ServerLimit = %d, want clamped default %d", cfg.ServerLimit, common.DefaultServerLimit)
	}
	if cfg.StagingDir == "" || cfg.APIBaseURL == "" || cfg.CDNBaseURL == "" {
		t.Errorf("missing fields not filled: %+v", cfg)
	}
}

func TestSaveFileMode(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := DefaultConfig().Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path := filepath.Join(os.Getenv("HOME"), ".config", common.ConfigDirName, common.ConfigFileName)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %o, want 0600", info.Mode().Perm())
	}
}
