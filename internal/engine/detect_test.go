package engine

import (
	"errors"
	"testing"

	"github.com/kalambet/draftsmith/internal/apperr"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{"", "ollama"},
		{"ollama", "ollama"},
		{"OpenAI", "openai"},
	}
	for _, tt := range tests {
		e, err := Detect(DetectConfig{Backend: tt.backend, BaseURL: "http://localhost:11434"})
		if err != nil {
			t.Fatalf("Detect(%q): %v", tt.backend, err)
		}
		if e.Name() != tt.want {
			t.Errorf("Detect(%q) = %s, want %s", tt.backend, e.Name(), tt.want)
		}
	}
}

func TestDetect_Unknown(t *testing.T) {
	_, err := Detect(DetectConfig{Backend: "mlx"})
	if !errors.Is(err, apperr.InvalidRequest) {
		t.Errorf("error = %v, want InvalidRequest", err)
	}
}
