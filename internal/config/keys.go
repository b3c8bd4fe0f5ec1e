package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
	kDuration
)

func (t keyType) String() string {
	switch t {
	case kInt:
		return "integer"
	case kFloat:
		return "number"
	case kDuration:
		return "duration"
	}
	return "string"
}

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "completion.backend", typ: kString, env: "DRAFTSMITH_COMPLETION_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Completion.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.Backend },
	},
	{
		key: "completion.base_url", typ: kString, env: "DRAFTSMITH_COMPLETION_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Completion.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.BaseURL },
	},
	{
		key: "completion.model", typ: kString, env: "DRAFTSMITH_COMPLETION_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Completion.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.Model },
	},
	{
		key: "completion.timeout", typ: kDuration, env: "DRAFTSMITH_COMPLETION_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Completion.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Completion.Timeout },
	},
	{
		key: "completion.max_retries", typ: kInt, env: "DRAFTSMITH_COMPLETION_MAX_RETRIES",
		apply:   func(cfg *Config, v any) { cfg.Completion.MaxRetries = v.(int) },
		extract: func(cfg Config) any { return cfg.Completion.MaxRetries },
	},
	{
		key: "completion.retry_delay", typ: kDuration, env: "DRAFTSMITH_COMPLETION_RETRY_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Completion.RetryDelay = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Completion.RetryDelay },
	},
	{
		key: "completion.api_key", typ: kString, env: "DRAFTSMITH_COMPLETION_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Completion.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.APIKey },
	},
	{
		key: "generation.temperature", typ: kFloat, env: "DRAFTSMITH_GENERATION_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Generation.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Generation.Temperature },
	},
	{
		key: "generation.max_tokens", typ: kInt, env: "DRAFTSMITH_GENERATION_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Generation.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Generation.MaxTokens },
	},
	{
		key: "style.min_emails_for_analysis", typ: kInt, env: "DRAFTSMITH_STYLE_MIN_EMAILS",
		apply:   func(cfg *Config, v any) { cfg.Style.MinEmails = v.(int) },
		extract: func(cfg Config) any { return cfg.Style.MinEmails },
	},
	{
		key: "style.learning_rate", typ: kFloat, env: "DRAFTSMITH_STYLE_LEARNING_RATE",
		apply:   func(cfg *Config, v any) { cfg.Style.LearningRate = v.(float64) },
		extract: func(cfg Config) any { return cfg.Style.LearningRate },
	},
	{
		key: "style.confidence_threshold", typ: kFloat, env: "DRAFTSMITH_STYLE_CONFIDENCE_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Style.ConfidenceThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Style.ConfidenceThreshold },
	},
	{
		key: "style.max_phrases", typ: kInt, env: "DRAFTSMITH_STYLE_MAX_PHRASES",
		apply:   func(cfg *Config, v any) { cfg.Style.MaxPhrases = v.(int) },
		extract: func(cfg Config) any { return cfg.Style.MaxPhrases },
	},
	{
		key: "intent.default_category", typ: kString, env: "DRAFTSMITH_INTENT_DEFAULT_CATEGORY",
		apply:   func(cfg *Config, v any) { cfg.Intent.DefaultCategory = v.(string) },
		extract: func(cfg Config) any { return cfg.Intent.DefaultCategory },
	},
	{
		key: "intent.confidence_threshold", typ: kFloat, env: "DRAFTSMITH_INTENT_CONFIDENCE_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Intent.ConfidenceThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Intent.ConfidenceThreshold },
	},
	{
		key: "intent.max_questions", typ: kInt, env: "DRAFTSMITH_INTENT_MAX_QUESTIONS",
		apply:   func(cfg *Config, v any) { cfg.Intent.MaxQuestions = v.(int) },
		extract: func(cfg Config) any { return cfg.Intent.MaxQuestions },
	},
	{
		key: "user.id", typ: kString, env: "DRAFTSMITH_USER_ID",
		apply:   func(cfg *Config, v any) { cfg.User.ID = v.(string) },
		extract: func(cfg Config) any { return cfg.User.ID },
	},
	{
		key: "user.name", typ: kString, env: "DRAFTSMITH_USER_NAME",
		apply:   func(cfg *Config, v any) { cfg.User.Name = v.(string) },
		extract: func(cfg Config) any { return cfg.User.Name },
	},
	{
		key: "storage.data_dir", typ: kString, env: "DRAFTSMITH_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "templates.dir", typ: kString, env: "DRAFTSMITH_TEMPLATES_DIR",
		apply:   func(cfg *Config, v any) { cfg.Templates.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Templates.Dir },
	},
	{
		key: "server.port", typ: kInt, env: "DRAFTSMITH_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "DRAFTSMITH_SERVER_TOKEN",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "log.level", typ: kString, env: "DRAFTSMITH_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parseValue converts raw text into the Go value for a key type.
func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		return time.ParseDuration(raw)
	}
	return raw, nil
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				fmt.Fprintf(os.Stderr, "[WARN] could not read config key %s: %v. Using default value.\n", s.key, err)
				continue
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse %s from config key %s=%q: %v. Using default value.\n", s.typ, s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse %s from env var %s=%q: %v. Using default value.\n", s.typ, s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
