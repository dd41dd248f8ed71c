package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the droidpilot configuration
type Config struct {
	Oracle OracleConfig `mapstructure:"oracle"`
	Appium AppiumConfig `mapstructure:"appium"`
	Run    RunConfig    `mapstructure:"run"`
}

// OracleConfig contains LLM backend settings
type OracleConfig struct {
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	APIKeyEnv string `mapstructure:"api_key_env"`
}

// AppiumConfig contains device server settings
type AppiumConfig struct {
	ServerURL    string         `mapstructure:"server_url"`
	Capabilities map[string]any `mapstructure:"capabilities"`
}

// RunConfig contains run budget settings
type RunConfig struct {
	MaxReplanIterations int    `mapstructure:"max_replan_iterations"`
	MaxReconnectRetries int    `mapstructure:"max_reconnect_retries"`
	MaxPlanActions      int    `mapstructure:"max_plan_actions"`
	EventLog            string `mapstructure:"event_log"`
}

// Load reads the config from the workspace
func Load(workspaceDir string) (*Config, error) {
	configPath := filepath.Join(workspaceDir, ".droidpilot", "config.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return LoadFile(configPath)
}

// LoadFile reads the config from an explicit path
func LoadFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Oracle: OracleConfig{
			Model:     "gpt-4o",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Appium: AppiumConfig{
			ServerURL: "http://localhost:4723",
			Capabilities: map[string]any{
				"platformName":           "Android",
				"appium:automationName":  "UiAutomator2",
				"appium:newCommandTimeout": 300,
			},
		},
		Run: RunConfig{
			MaxReplanIterations: 20,
			MaxReconnectRetries: 2,
			MaxPlanActions:      10,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = defaults.Oracle.Model
	}
	if cfg.Oracle.APIKeyEnv == "" {
		cfg.Oracle.APIKeyEnv = defaults.Oracle.APIKeyEnv
	}
	if cfg.Appium.ServerURL == "" {
		cfg.Appium.ServerURL = defaults.Appium.ServerURL
	}
	if len(cfg.Appium.Capabilities) == 0 {
		cfg.Appium.Capabilities = defaults.Appium.Capabilities
	}
	if cfg.Run.MaxReplanIterations == 0 {
		cfg.Run.MaxReplanIterations = defaults.Run.MaxReplanIterations
	}
	if cfg.Run.MaxReconnectRetries == 0 {
		cfg.Run.MaxReconnectRetries = defaults.Run.MaxReconnectRetries
	}
	if cfg.Run.MaxPlanActions == 0 {
		cfg.Run.MaxPlanActions = defaults.Run.MaxPlanActions
	}
}
