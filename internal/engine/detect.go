package engine

import (
	"strings"

	"github.com/kalambet/draftsmith/internal/apperr"
)

// Backend names accepted by Detect.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// DetectConfig holds parameters for backend selection.
type DetectConfig struct {
	Backend string
	BaseURL string
	APIKey  string
}

// Detect returns the engine for the configured backend. An empty backend
// means Ollama.
func Detect(cfg DetectConfig) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendOllama:
		return NewOllamaEngine(cfg.BaseURL), nil
	case BackendOpenAI:
		return NewOpenAIEngine(cfg.BaseURL, cfg.APIKey), nil
	}
	return nil, apperr.New(apperr.InvalidRequest, "unknown completion backend %q (want %s or %s)", cfg.Backend, BackendOllama, BackendOpenAI)
}
