package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kalambet/draftsmith/internal/apperr"
)

type Config struct {
	Completion CompletionConfig
	Generation GenerationConfig
	Style      StyleConfig
	Intent     IntentConfig
	User       UserConfig
	Storage    StorageConfig
	Templates  TemplatesConfig
	Server     ServerConfig
	Log        LogConfig
}

type CompletionConfig struct {
	Backend    string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	APIKey     string
}

type GenerationConfig struct {
	Temperature float64
	MaxTokens   int
}

type StyleConfig struct {
	MinEmails           int
	LearningRate        float64
	ConfidenceThreshold float64
	MaxPhrases          int
}

type IntentConfig struct {
	DefaultCategory     string
	ConfidenceThreshold float64
	MaxQuestions        int
}

type UserConfig struct {
	ID   string
	Name string
}

type StorageConfig struct {
	DataDir string
}

type TemplatesConfig struct {
	Dir string // defaults to <data_dir>/templates
}

type ServerConfig struct {
	Port  int
	Token string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Completion: CompletionConfig{
			Backend:    "ollama",
			BaseURL:    "http://localhost:11434",
			Model:      "qwen2.5:7b",
			Timeout:    120 * time.Second,
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
		Generation: GenerationConfig{
			Temperature: 0.7,
			MaxTokens:   800,
		},
		Style: StyleConfig{
			MinEmails:           5,
			LearningRate:        0.3,
			ConfidenceThreshold: 0.9,
			MaxPhrases:          20,
		},
		Intent: IntentConfig{
			DefaultCategory:     "business_formal",
			ConfidenceThreshold: 0.6,
			MaxQuestions:        3,
		},
		User:    UserConfig{ID: "default"},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Server:  ServerConfig{Port: 4100},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads configuration in layers: built-in defaults, the JSON config
// file at FilePath(), a .env file in the working directory, and finally
// DRAFTSMITH_* environment variables. Later layers win. Secrets
// (completion.api_key, server.token) come from the environment only.
func Load() (Config, error) {
	return loadWith(NewFileBackend(FilePath()), ".env")
}

func loadWith(b ConfigBackend, envFile string) (Config, error) {
	cfg := defaults()

	if fb, ok := b.(*fileBackend); ok {
		for _, k := range fb.keys() {
			if _, known := lookupSpec(k); !known {
				fmt.Fprintf(os.Stderr, "[WARN] unknown config key %q in %s ignored.\n", k, fb.path)
			}
		}
	}
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	// godotenv never overrides variables already set in the environment.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "[WARN] could not load %s: %v\n", envFile, err)
		}
	}
	applyEnvOverrides(&cfg)

	if cfg.Templates.Dir == "" {
		cfg.Templates.Dir = filepath.Join(cfg.Storage.DataDir, "templates")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks value ranges. All problems are reported together.
func (c Config) Validate() error {
	var problems []string
	bad := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Completion.Backend {
	case "ollama", "openai":
	default:
		bad("completion.backend must be ollama or openai, got %q", c.Completion.Backend)
	}
	if c.Completion.Model == "" {
		bad("completion.model is required")
	}
	if c.Completion.Timeout <= 0 {
		bad("completion.timeout must be positive")
	}
	if c.Completion.MaxRetries < 0 {
		bad("completion.max_retries must not be negative")
	}
	if c.Completion.RetryDelay < 0 {
		bad("completion.retry_delay must not be negative")
	}
	if c.Generation.MaxTokens <= 0 {
		bad("generation.max_tokens must be positive")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		bad("generation.temperature must be within [0,2]")
	}
	if c.Style.LearningRate <= 0 || c.Style.LearningRate > 1 {
		bad("style.learning_rate must be within (0,1]")
	}
	if c.Style.ConfidenceThreshold < 0 || c.Style.ConfidenceThreshold > 1 {
		bad("style.confidence_threshold must be within [0,1]")
	}
	if c.Style.MinEmails < 1 {
		bad("style.min_emails_for_analysis must be at least 1")
	}
	if c.Style.MaxPhrases < 1 {
		bad("style.max_phrases must be at least 1")
	}
	if c.Intent.MaxQuestions < 1 {
		bad("intent.max_questions must be at least 1")
	}
	if c.Intent.ConfidenceThreshold < 0 || c.Intent.ConfidenceThreshold > 1 {
		bad("intent.confidence_threshold must be within [0,1]")
	}
	if c.User.ID == "" {
		bad("user.id is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		bad("server.port must be a valid TCP port")
	}
	if !logLevels[strings.ToLower(c.Log.Level)] {
		bad("log.level must be one of debug, info, warn, error")
	}

	if len(problems) > 0 {
		return apperr.New(apperr.InvalidRequest, "invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
