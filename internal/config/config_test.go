package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/draftsmith/internal/apperr"
)

func writeTempConfig(t *testing.T, content string) ConfigBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewFileBackend(path)
}

// clearEnv blanks every DRAFTSMITH_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when loading an empty config file.
func TestDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	cfg, err := loadWith(writeTempConfig(t, `{}`), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Completion.Backend != "ollama" {
		t.Errorf("Completion.Backend = %q, want ollama", cfg.Completion.Backend)
	}
	if cfg.Completion.BaseURL != "http://localhost:11434" {
		t.Errorf("Completion.BaseURL = %q", cfg.Completion.BaseURL)
	}
	if cfg.Completion.Model != "qwen2.5:7b" {
		t.Errorf("Completion.Model = %q", cfg.Completion.Model)
	}
	if cfg.Completion.Timeout != 120*time.Second {
		t.Errorf("Completion.Timeout = %v, want 120s", cfg.Completion.Timeout)
	}
	if cfg.Completion.MaxRetries != 3 || cfg.Completion.RetryDelay != time.Second {
		t.Errorf("retries = %d/%v", cfg.Completion.MaxRetries, cfg.Completion.RetryDelay)
	}
	if cfg.Generation.Temperature != 0.7 || cfg.Generation.MaxTokens != 800 {
		t.Errorf("Generation = %+v", cfg.Generation)
	}
	if cfg.Style != (StyleConfig{MinEmails: 5, LearningRate: 0.3, ConfidenceThreshold: 0.9, MaxPhrases: 20}) {
		t.Errorf("Style = %+v", cfg.Style)
	}
	if cfg.Intent != (IntentConfig{DefaultCategory: "business_formal", ConfidenceThreshold: 0.6, MaxQuestions: 3}) {
		t.Errorf("Intent = %+v", cfg.Intent)
	}
	if cfg.User.ID != "default" {
		t.Errorf("User.ID = %q", cfg.User.ID)
	}
	if cfg.Storage.DataDir != "/tmp/xdg-data/draftsmith" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Templates.Dir != "/tmp/xdg-data/draftsmith/templates" {
		t.Errorf("Templates.Dir = %q", cfg.Templates.Dir)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

// TestFileValues verifies that all kinds of fields are read from the JSON file.
func TestFileValues(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{
  "completion.backend": "openai",
  "completion.base_url": "http://localhost:1234/v1",
  "completion.timeout": "30s",
  "completion.max_retries": 1,
  "generation.temperature": 0.2,
  "style.learning_rate": "0.5",
  "storage.data_dir": "/tmp/draftsmith-test",
  "user.name": "Alice Smith",
  "completion.api_key": "ignored-secret"
}`)

	cfg, err := loadWith(b, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Completion.Backend != "openai" || cfg.Completion.BaseURL != "http://localhost:1234/v1" {
		t.Errorf("Completion = %+v", cfg.Completion)
	}
	if cfg.Completion.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Completion.Timeout)
	}
	if cfg.Completion.MaxRetries != 1 {
		t.Errorf("MaxRetries = %d", cfg.Completion.MaxRetries)
	}
	if cfg.Generation.Temperature != 0.2 {
		t.Errorf("Temperature = %v", cfg.Generation.Temperature)
	}
	if cfg.Style.LearningRate != 0.5 {
		t.Errorf("LearningRate = %v", cfg.Style.LearningRate)
	}
	if cfg.User.Name != "Alice Smith" {
		t.Errorf("User.Name = %q", cfg.User.Name)
	}
	if cfg.Templates.Dir != "/tmp/draftsmith-test/templates" {
		t.Errorf("Templates.Dir = %q", cfg.Templates.Dir)
	}
	if cfg.Completion.APIKey != "" {
		t.Error("secrets must not be read from the config file")
	}
}

// TestEnvOverride verifies that environment variables override config file values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{"completion.model": "llama3.1:8b", "server.port": 5000}`)

	t.Setenv("DRAFTSMITH_COMPLETION_MODEL", "mistral:7b")
	t.Setenv("DRAFTSMITH_COMPLETION_API_KEY", "env-key")
	t.Setenv("DRAFTSMITH_STYLE_MIN_EMAILS", "8")

	cfg, err := loadWith(b, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Completion.Model != "mistral:7b" {
		t.Errorf("Model = %q, want env value", cfg.Completion.Model)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want file value", cfg.Server.Port)
	}
	if cfg.Completion.APIKey != "env-key" {
		t.Errorf("APIKey = %q", cfg.Completion.APIKey)
	}
	if cfg.Style.MinEmails != 8 {
		t.Errorf("MinEmails = %d", cfg.Style.MinEmails)
	}
}

// TestInvalidValuesKeepPrevious verifies unparsable values fall back with a warning.
func TestInvalidValuesKeepPrevious(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{"completion.timeout": "soon", "generation.max_tokens": "lots"}`)
	t.Setenv("DRAFTSMITH_GENERATION_TEMPERATURE", "warm")

	cfg, err := loadWith(b, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Completion.Timeout != 120*time.Second {
		t.Errorf("Timeout = %v, want default", cfg.Completion.Timeout)
	}
	if cfg.Generation.MaxTokens != 800 {
		t.Errorf("MaxTokens = %d, want default", cfg.Generation.MaxTokens)
	}
	if cfg.Generation.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want default", cfg.Generation.Temperature)
	}
}

// TestDotEnv verifies the .env layer sits between the file and the environment.
func TestDotEnv(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "DRAFTSMITH_USER_NAME=Dot Env\nDRAFTSMITH_USER_ID=from-dotenv\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	// Only USER_NAME is unset, so .env may fill it; USER_ID stays with the
	// real environment.
	os.Unsetenv("DRAFTSMITH_USER_NAME")
	t.Setenv("DRAFTSMITH_USER_ID", "from-env")

	cfg, err := loadWith(writeTempConfig(t, `{"user.name": "From File"}`), envFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.User.Name != "Dot Env" {
		t.Errorf("User.Name = %q, want .env value", cfg.User.Name)
	}
	if cfg.User.ID != "from-env" {
		t.Errorf("User.ID = %q, want environment value", cfg.User.ID)
	}
}

func TestMissingDotEnvIsFine(t *testing.T) {
	clearEnv(t)
	if _, err := loadWith(writeTempConfig(t, `{}`), filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"learning rate zero", func(c *Config) { c.Style.LearningRate = 0 }, "style.learning_rate"},
		{"learning rate above one", func(c *Config) { c.Style.LearningRate = 1.5 }, "style.learning_rate"},
		{"threshold", func(c *Config) { c.Style.ConfidenceThreshold = -0.1 }, "style.confidence_threshold"},
		{"min emails", func(c *Config) { c.Style.MinEmails = 0 }, "style.min_emails_for_analysis"},
		{"max questions", func(c *Config) { c.Intent.MaxQuestions = 0 }, "intent.max_questions"},
		{"timeout", func(c *Config) { c.Completion.Timeout = 0 }, "completion.timeout"},
		{"max tokens", func(c *Config) { c.Generation.MaxTokens = -1 }, "generation.max_tokens"},
		{"backend", func(c *Config) { c.Completion.Backend = "mlx" }, "completion.backend"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, apperr.InvalidRequest) {
				t.Fatalf("error = %v, want InvalidRequest", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}

	if err := defaults().Validate(); err != nil {
		t.Errorf("defaults must be valid: %v", err)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	clearEnv(t)
	_, err := loadWith(writeTempConfig(t, `{"style.learning_rate": 2}`), "")
	if !errors.Is(err, apperr.InvalidRequest) {
		t.Errorf("error = %v, want InvalidRequest", err)
	}
}

func TestSetKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	b := NewFileBackend(path)

	if err := setKeyWith(b, "completion.model", "phi3.5"); err != nil {
		t.Fatalf("set string: %v", err)
	}
	if err := setKeyWith(b, "server.port", "4200"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if err := setKeyWith(b, "completion.timeout", "45s"); err != nil {
		t.Fatalf("set duration: %v", err)
	}

	clearEnv(t)
	cfg, err := loadWith(NewFileBackend(path), "")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Completion.Model != "phi3.5" || cfg.Server.Port != 4200 || cfg.Completion.Timeout != 45*time.Second {
		t.Errorf("reloaded config = %+v", cfg)
	}

	for _, tc := range []struct{ key, value string }{
		{"nope.key", "x"},
		{"server.token", "secret"},
		{"server.port", "many"},
		{"style.learning_rate", "3"},
	} {
		if err := setKeyWith(b, tc.key, tc.value); !errors.Is(err, apperr.InvalidRequest) {
			t.Errorf("setKeyWith(%s=%s) error = %v, want InvalidRequest", tc.key, tc.value, err)
		}
	}
}

func TestShowAllMasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Server.Token = "hunter2"

	seen := map[string]string{}
	for _, k := range ShowAll(cfg) {
		seen[k.Key] = k.Value
	}
	if seen["server.token"] != "(set)" || seen["completion.api_key"] != "(unset)" {
		t.Errorf("secrets not masked: %v", seen)
	}
	if seen["completion.model"] != "qwen2.5:7b" {
		t.Errorf("completion.model = %q", seen["completion.model"])
	}
	if len(ValidKeys()) != len(specs)-2 {
		t.Errorf("ValidKeys should exclude the two secrets")
	}
}
