package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kalambet/draftsmith/internal/apperr"
)

func openAIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]string{{"id": "llama-3.2-3b-instruct", "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model     string  `json:"model"`
			MaxTokens int     `json:"max_tokens"`
			Temp      float64 `json:"temperature"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "llama-3.2-3b-instruct" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "model not found", "type": "invalid_request_error"},
			})
			return
		}
		if req.MaxTokens != 128 {
			t.Errorf("max_tokens = %d, want 128", req.MaxTokens)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "[[body]]\nHi."},
				"finish_reason": "stop",
			}},
		})
	})
	return httptest.NewServer(mux)
}

func TestOpenAIEngine_Chat(t *testing.T) {
	srv := openAIServer(t)
	defer srv.Close()

	e := NewOpenAIEngine(srv.URL+"/v1/", "")
	out, err := e.Chat(context.Background(), "llama-3.2-3b-instruct", []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, GenOptions{Temperature: 0.5, MaxTokens: 128})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "[[body]]\nHi." {
		t.Errorf("got %q", out)
	}
}

func TestOpenAIEngine_ModelNotFound(t *testing.T) {
	srv := openAIServer(t)
	defer srv.Close()

	_, err := NewOpenAIEngine(srv.URL+"/v1", "").Chat(context.Background(), "gpt-9", nil, GenOptions{MaxTokens: 128})
	if !errors.Is(err, apperr.ModelNotFound) {
		t.Errorf("error = %v, want ModelNotFound", err)
	}
}

func TestOpenAIEngine_Models(t *testing.T) {
	srv := openAIServer(t)
	defer srv.Close()

	e := NewOpenAIEngine(srv.URL+"/v1", "")
	if !e.IsRunning(context.Background()) {
		t.Error("IsRunning() = false, want true")
	}
	if !e.HasModel(context.Background(), "llama-3.2-3b-instruct") {
		t.Error("HasModel = false, want true")
	}
	if e.HasModel(context.Background(), "llama") {
		t.Error("HasModel(llama) = true, want false")
	}
	if err := e.PullModel(context.Background(), "x", nil); !errors.Is(err, ErrPullUnsupported) {
		t.Errorf("PullModel error = %v, want ErrPullUnsupported", err)
	}
}

func TestOpenAIEngine_Down(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	e := NewOpenAIEngine(srv.URL+"/v1", "")
	if e.IsRunning(context.Background()) {
		t.Error("IsRunning() = true, want false")
	}
	_, err := e.Chat(context.Background(), "m", nil, GenOptions{})
	if !errors.Is(err, apperr.CompletionUnreachable) {
		t.Errorf("error = %v, want CompletionUnreachable", err)
	}
}
