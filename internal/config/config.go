package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Remote  RemoteConfig  `json:"remote"`
	Engine  EngineConfig  `json:"engine"`
	Notify  NotifyConfig  `json:"notify"`
	Display DisplayConfig `json:"display"`
	Server  ServerConfig  `json:"server"`
}

// RemoteConfig holds the health data API endpoint and OAuth credentials.
// An empty BaseURL keeps the app on locally stored samples.
type RemoteConfig struct {
	BaseURL      string `json:"base_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURL      string `json:"auth_url"`
	TokenURL     string `json:"token_url"`
}

// EngineConfig holds projection settings
type EngineConfig struct {
	LookbackDays              int     `json:"lookback_days"`
	FreshnessToleranceMinutes int     `json:"freshness_tolerance_minutes"`
	DefaultMoveGoal           float64 `json:"default_move_goal"`
}

// NotifyConfig controls goal crossing notifications
type NotifyConfig struct {
	Enabled bool   `json:"enabled"`
	AppName string `json:"app_name"`
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	EnergyUnit string `json:"energy_unit"`
}

// ServerConfig holds the widget feed listener settings
type ServerConfig struct {
	Addr string `json:"addr"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			LookbackDays:              70,
			FreshnessToleranceMinutes: 5,
			DefaultMoveGoal:           600,
		},
		Notify: NotifyConfig{
			Enabled: true,
			AppName: "burnpace",
		},
		Display: DisplayConfig{
			EnergyUnit: "kcal",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
	}
}

// Load reads the configuration from ~/.burnpace/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from path
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start from defaults so omitted booleans keep their default
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Engine.LookbackDays == 0 {
		c.Engine.LookbackDays = defaults.Engine.LookbackDays
	}
	if c.Engine.FreshnessToleranceMinutes == 0 {
		c.Engine.FreshnessToleranceMinutes = defaults.Engine.FreshnessToleranceMinutes
	}
	if c.Engine.DefaultMoveGoal == 0 {
		c.Engine.DefaultMoveGoal = defaults.Engine.DefaultMoveGoal
	}
	if c.Notify.AppName == "" {
		c.Notify.AppName = defaults.Notify.AppName
	}
	if c.Display.EnergyUnit == "" {
		c.Display.EnergyUnit = defaults.Display.EnergyUnit
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
}

// Save writes the configuration to ~/.burnpace/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the configuration to path
func SaveTo(path string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Remote = RemoteConfig{
		BaseURL:      "https://health.example.com",
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
		AuthURL:      "https://health.example.com/oauth/authorize",
		TokenURL:     "https://health.example.com/oauth/token",
	}

	return Save(&example)
}

// Validate checks the config for contradictory or missing values
func (c *Config) Validate() error {
	if c.Remote.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.Remote.BaseURL); err != nil {
			return fmt.Errorf("remote.base_url is not a valid URL: %v", err)
		}
		if c.Remote.ClientID == "" || c.Remote.ClientID == "YOUR_CLIENT_ID" {
			return errors.New("remote.client_id is required when remote.base_url is set")
		}
		if c.Remote.ClientSecret == "" || c.Remote.ClientSecret == "YOUR_CLIENT_SECRET" {
			return errors.New("remote.client_secret is required when remote.base_url is set")
		}
		if c.Remote.AuthURL == "" || c.Remote.TokenURL == "" {
			return errors.New("remote.auth_url and remote.token_url are required when remote.base_url is set")
		}
	}

	if c.Engine.LookbackDays < 7 {
		return fmt.Errorf("engine.lookback_days must be at least 7, got %d", c.Engine.LookbackDays)
	}
	if c.Engine.FreshnessToleranceMinutes < 0 {
		return fmt.Errorf("engine.freshness_tolerance_minutes must not be negative, got %d", c.Engine.FreshnessToleranceMinutes)
	}
	if c.Engine.DefaultMoveGoal < 0 {
		return fmt.Errorf("engine.default_move_goal must not be negative, got %v", c.Engine.DefaultMoveGoal)
	}

	// Validate display units
	if c.Display.EnergyUnit != "" && c.Display.EnergyUnit != "kcal" && c.Display.EnergyUnit != "kJ" {
		return fmt.Errorf("display.energy_unit must be \"kcal\" or \"kJ\", got %q", c.Display.EnergyUnit)
	}

	return nil
}

// FreshnessTolerance returns the configured tolerance as a duration
func (c *Config) FreshnessTolerance() time.Duration {
	return time.Duration(c.Engine.FreshnessToleranceMinutes) * time.Minute
}

// HasRemote reports whether a remote health API is configured
func (c *Config) HasRemote() bool {
	return c.Remote.BaseURL != ""
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".burnpace"), nil
}
