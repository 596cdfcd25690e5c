package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/flotilla/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Flotilla configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/flotilla/config.yaml
Project-specific overrides can be placed in .flotilla.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("engine.model: %s\n", cfg.Engine.Model)
	fmt.Printf("engine.call_timeout: %s\n", cfg.Engine.CallTimeout)
	fmt.Printf("engine.use_aws_bedrock: %t\n", cfg.Engine.UseAWSBedrock)
	fmt.Printf("engine.aws_region: %s\n", cfg.Engine.AWSRegion)
	fmt.Printf("engine.aws_profile: %s\n", cfg.Engine.AWSProfile)
	fmt.Printf("defaults.max_revisions: %d\n", cfg.Defaults.MaxRevisions)
	fmt.Printf("defaults.max_concurrent: %d\n", cfg.Defaults.MaxConcurrent)
	fmt.Printf("defaults.budget_limit: %.2f\n", cfg.Defaults.BudgetLimit)
	fmt.Printf("retry.max_attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("retry.backoff_base: %s\n", cfg.Retry.BackoffBase)
	fmt.Printf("retry.backoff_cap: %s\n", cfg.Retry.BackoffCap)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "engine.model":
		return cfg.Engine.Model, nil
	case "engine.call_timeout":
		return cfg.Engine.CallTimeout.String(), nil
	case "engine.use_aws_bedrock":
		return strconv.FormatBool(cfg.Engine.UseAWSBedrock), nil
	case "engine.aws_region":
		return cfg.Engine.AWSRegion, nil
	case "engine.aws_profile":
		return cfg.Engine.AWSProfile, nil
	case "defaults.max_revisions":
		return strconv.Itoa(cfg.Defaults.MaxRevisions), nil
	case "defaults.max_concurrent":
		return strconv.Itoa(cfg.Defaults.MaxConcurrent), nil
	case "defaults.budget_limit":
		return strconv.FormatFloat(cfg.Defaults.BudgetLimit, 'f', 2, 64), nil
	case "retry.max_attempts":
		return strconv.Itoa(cfg.Retry.MaxAttempts), nil
	case "retry.backoff_base":
		return cfg.Retry.BackoffBase.String(), nil
	case "retry.backoff_cap":
		return cfg.Retry.BackoffCap.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "engine.model":
		cfg.Engine.Model = value
	case "engine.call_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for call_timeout: %w", err)
		}
		cfg.Engine.CallTimeout = d
	case "engine.use_aws_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_aws_bedrock: %w", err)
		}
		cfg.Engine.UseAWSBedrock = b
	case "engine.aws_region":
		cfg.Engine.AWSRegion = value
	case "engine.aws_profile":
		cfg.Engine.AWSProfile = value
	case "defaults.max_revisions":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_revisions: %w", err)
		}
		if n < 0 {
			return fmt.Errorf("max_revisions must be non-negative")
		}
		cfg.Defaults.MaxRevisions = n
	case "defaults.max_concurrent":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_concurrent: %w", err)
		}
		if n < 1 {
			return fmt.Errorf("max_concurrent must be at least 1")
		}
		cfg.Defaults.MaxConcurrent = n
	case "defaults.budget_limit":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for budget_limit: %w", err)
		}
		if f < 0 {
			return fmt.Errorf("budget_limit must be non-negative")
		}
		cfg.Defaults.BudgetLimit = f
	case "retry.max_attempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_attempts: %w", err)
		}
		if n < 1 {
			return fmt.Errorf("max_attempts must be at least 1")
		}
		cfg.Retry.MaxAttempts = n
	case "retry.backoff_base":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for backoff_base: %w", err)
		}
		cfg.Retry.BackoffBase = d
	case "retry.backoff_cap":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for backoff_cap: %w", err)
		}
		cfg.Retry.BackoffCap = d
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
