// Package config handles configuration loading and management for
// Flotilla. It supports XDG config paths, project-level overrides, and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Flotilla.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Retry     RetryConfig     `mapstructure:"retry"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// EngineConfig holds reasoning engine settings.
type EngineConfig struct {
	// Model is the model identifier used for analysis and review calls.
	Model string `mapstructure:"model"`
	// CallTimeout bounds a single engine call.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	// UseAWSBedrock routes engine calls through AWS Bedrock instead of
	// the Anthropic API.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the AWS credentials profile to use, if any.
	AWSProfile string `mapstructure:"aws_profile"`
}

// DefaultsConfig holds default values for teams and tasks.
type DefaultsConfig struct {
	// MaxRevisions is the revision ceiling applied to tasks that do not
	// set their own.
	MaxRevisions int `mapstructure:"max_revisions"`
	// MaxConcurrent is the per-worker concurrency ceiling.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// BudgetLimit is the per-team cost ceiling in dollars. Zero means
	// no ceiling.
	BudgetLimit float64 `mapstructure:"budget_limit"`
}

// RetryConfig holds transient-failure retry settings.
type RetryConfig struct {
	// MaxAttempts is the per-task execution attempt ceiling.
	MaxAttempts int `mapstructure:"max_attempts"`
	// BackoffBase is the first retry delay.
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	// BackoffCap bounds the exponential backoff.
	BackoffCap time.Duration `mapstructure:"backoff_cap"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, FLOTILLA_*)
// 2. Project config (.flotilla.yaml in current directory or parent)
// 3. User config (~/.config/flotilla/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("FLOTILLA")

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("engine.model", "FLOTILLA_MODEL")
	v.BindEnv("engine.use_aws_bedrock", "FLOTILLA_USE_BEDROCK")
	v.BindEnv("engine.aws_region", "AWS_REGION")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("engine.model", cfg.Engine.Model)
	v.Set("engine.call_timeout", cfg.Engine.CallTimeout.String())
	v.Set("engine.use_aws_bedrock", cfg.Engine.UseAWSBedrock)
	v.Set("engine.aws_region", cfg.Engine.AWSRegion)
	v.Set("engine.aws_profile", cfg.Engine.AWSProfile)
	v.Set("defaults.max_revisions", cfg.Defaults.MaxRevisions)
	v.Set("defaults.max_concurrent", cfg.Defaults.MaxConcurrent)
	v.Set("defaults.budget_limit", cfg.Defaults.BudgetLimit)
	v.Set("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.Set("retry.backoff_base", cfg.Retry.BackoffBase.String())
	v.Set("retry.backoff_cap", cfg.Retry.BackoffCap.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if
// it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")

	v.SetDefault("engine.model", "claude-sonnet-4-5")
	v.SetDefault("engine.call_timeout", "2m")
	v.SetDefault("engine.use_aws_bedrock", false)
	v.SetDefault("engine.aws_region", "us-east-1")
	v.SetDefault("engine.aws_profile", "")

	v.SetDefault("defaults.max_revisions", 3)
	v.SetDefault("defaults.max_concurrent", 3)
	v.SetDefault("defaults.budget_limit", 0.0)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff_base", "1s")
	v.SetDefault("retry.backoff_cap", "30s")
}

// getUserConfigDir returns the XDG config directory for Flotilla.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "flotilla")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "flotilla")
	}
	return filepath.Join(home, ".config", "flotilla")
}

// findProjectConfig searches for .flotilla.yaml in the current
// directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".flotilla.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Model:       "claude-sonnet-4-5",
			CallTimeout: 2 * time.Minute,
			AWSRegion:   "us-east-1",
		},
		Defaults: DefaultsConfig{
			MaxRevisions:  3,
			MaxConcurrent: 3,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BackoffBase: time.Second,
			BackoffCap:  30 * time.Second,
		},
	}
}
