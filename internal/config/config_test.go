package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Defaults.MaxRevisions != 3 {
		t.Errorf("max revisions = %d, want 3", cfg.Defaults.MaxRevisions)
	}
	if cfg.Defaults.MaxConcurrent != 3 {
		t.Errorf("max concurrent = %d, want 3", cfg.Defaults.MaxConcurrent)
	}
	if cfg.Retry.BackoffBase != time.Second {
		t.Errorf("backoff base = %s, want 1s", cfg.Retry.BackoffBase)
	}
	if cfg.Retry.BackoffCap != 30*time.Second {
		t.Errorf("backoff cap = %s, want 30s", cfg.Retry.BackoffCap)
	}
	if cfg.Defaults.BudgetLimit != 0 {
		t.Errorf("budget limit = %f, want 0 (no ceiling)", cfg.Defaults.BudgetLimit)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
anthropic:
  api_key: sk-ant-test-key
engine:
  model: claude-opus-4-1
  call_timeout: 90s
defaults:
  max_revisions: 5
  budget_limit: 12.50
retry:
  max_attempts: 4
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Anthropic.APIKey != "sk-ant-test-key" {
		t.Errorf("api key = %q", cfg.Anthropic.APIKey)
	}
	if cfg.Engine.Model != "claude-opus-4-1" {
		t.Errorf("model = %q", cfg.Engine.Model)
	}
	if cfg.Engine.CallTimeout != 90*time.Second {
		t.Errorf("call timeout = %s", cfg.Engine.CallTimeout)
	}
	if cfg.Defaults.MaxRevisions != 5 {
		t.Errorf("max revisions = %d", cfg.Defaults.MaxRevisions)
	}
	if cfg.Defaults.BudgetLimit != 12.50 {
		t.Errorf("budget limit = %f", cfg.Defaults.BudgetLimit)
	}
	if cfg.Retry.MaxAttempts != 4 {
		t.Errorf("max attempts = %d", cfg.Retry.MaxAttempts)
	}

	// Unset fields keep their defaults.
	if cfg.Defaults.MaxConcurrent != 3 {
		t.Errorf("max concurrent = %d, want default 3", cfg.Defaults.MaxConcurrent)
	}
}

func TestLoadFromPathExpandsEnv(t *testing.T) {
	t.Setenv("TEST_FLOTILLA_KEY", "sk-ant-from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "anthropic:\n  api_key: ${TEST_FLOTILLA_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-ant-from-env" {
		t.Errorf("api key = %q, want expanded env value", cfg.Anthropic.APIKey)
	}
}

func TestGetAPIKeyPrecedence(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-wins")

	cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-config"}}
	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if key != "sk-ant-env-wins" {
		t.Errorf("key = %q, want env value", key)
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	key, err = GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if key != "sk-ant-config" {
		t.Errorf("key = %q, want config value", key)
	}

	if _, err := GetAPIKey(&Config{}); err != ErrNoAPIKey {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestValidateAPIKey(t *testing.T) {
	cases := []struct {
		key     string
		wantErr bool
	}{
		{"", true},
		{"sk-ant-short", true},
		{"not-a-key-at-all-here", true},
		{"sk-ant-REDACTED", false},
	}
	for _, tc := range cases {
		err := ValidateAPIKey(tc.key)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidateAPIKey(%q) error = %v, wantErr %v", tc.key, err, tc.wantErr)
		}
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey(""); got != "(not set)" {
		t.Errorf("empty key masked as %q", got)
	}
	if got := MaskAPIKey("sk-ant-api03-abcdefgh1234"); got != "sk-ant-...1234" {
		t.Errorf("masked key = %q", got)
	}
}
