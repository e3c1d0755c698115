// Package config provides configuration management for nordctl.
// It handles loading, saving, and validating application settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sveliz/nordctl/common"
)

// Config represents the application configuration.
// All settings are persisted to a YAML file in the user's config directory.
type Config struct {
	// StagingDir is where downloaded .ovpn profiles and assembled .tblk
	// bundles are staged before handoff to Tunnelblick.
	StagingDir string `yaml:"staging_dir"`
	// MaxLoad is the load ceiling used when picking an optimal server.
	MaxLoad int `yaml:"max_load"`
	// ServerLimit is how many servers the servers command lists.
	ServerLimit int `yaml:"server_limit"`
	// APIBaseURL overrides the catalog endpoint (mirrors, tests).
	APIBaseURL string `yaml:"api_base_url"`
	// CDNBaseURL overrides the profile download endpoint.
	CDNBaseURL string `yaml:"cdn_base_url"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StagingDir:  "./configs",
		MaxLoad:     common.DefaultMaxLoad,
		ServerLimit: common.DefaultServerLimit,
		APIBaseURL:  common.DefaultAPIBaseURL,
		CDNBaseURL:  common.DefaultCDNBaseURL,
	}
}

// Load loads the configuration from the config file.
// If the file doesn't exist, it creates one with default values.
func Load() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	// If it doesn't exist, persist and return the defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("error opening configuration: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true) // Strict validation: reject unknown fields

	var config Config
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}

	config.validate()
	return &config, nil
}

// validate clamps out-of-range values back to their defaults.
func (c *Config) validate() {
	defaults := DefaultConfig()
	if c.StagingDir == "" {
		c.StagingDir = defaults.StagingDir
	}
	if c.MaxLoad <= 0 || c.MaxLoad > 100 {
		c.MaxLoad = defaults.MaxLoad
	}
	if c.ServerLimit <= 0 {
		c.ServerLimit = defaults.ServerLimit
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaults.APIBaseURL
	}
	if c.CDNBaseURL == "" {
		c.CDNBaseURL = defaults.CDNBaseURL
	}
}

// Save saves the configuration to the file.
func (c *Config) Save() error {
	configPath, err := getConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error serializing configuration: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("error saving configuration: %w", err)
	}

	return nil
}

func getConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", common.ConfigDirName, common.ConfigFileName), nil
}
