package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/draftsmith/internal/apperr"
	"github.com/kalambet/draftsmith/internal/catalog"
	"github.com/kalambet/draftsmith/internal/generator"
	"github.com/kalambet/draftsmith/internal/profile"
	"github.com/kalambet/draftsmith/internal/storage"
	"github.com/kalambet/draftsmith/internal/style"
)

const maxRequestBodySize = 1 << 20 // 1MB
const maxSampleBodySize = 10 << 20 // 10MB

// History reads saved drafts and the learning log.
type History interface {
	GetDraft(id string) (storage.Draft, error)
	ListDrafts(userID string, limit int) ([]storage.Draft, error)
	LearningHistory(userID string, limit int) ([]storage.LearnEvent, error)
}

// Deps holds everything the HTTP and MCP surfaces call into.
type Deps struct {
	Generator *generator.Generator
	Catalog   *catalog.Catalog
	Profiles  *profile.Manager
	Learner   *profile.Learner
	History   History
	Style     style.Options
	UserID    string // used when a request names no user
	Token     string
}

func (d Deps) user(id string) string {
	if id != "" {
		return id
	}
	return d.UserID
}

// NewHandler returns the HTTP API. Everything except /health requires the
// bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/drafts", handleCreateDraft(deps))
		r.Get("/drafts", handleListDrafts(deps))
		r.Get("/drafts/{id}", handleGetDraft(deps))
		r.Get("/templates", handleListTemplates(deps))
		r.Get("/templates/{id}", handleGetTemplate(deps))
		r.Get("/profiles", handleListProfiles(deps))
		r.Get("/profiles/{id}", handleGetProfile(deps))
		r.Delete("/profiles/{id}", handleDeleteProfile(deps))
		r.Post("/profiles/{id}/samples", handleLearnSamples(deps))
	})
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleCreateDraft(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req generator.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, string(apperr.InvalidRequest), "invalid request body: %v", err)
			return
		}
		req.UserID = deps.user(req.UserID)

		// No one to answer clarifying questions over HTTP, so detection
		// falls back to the default category when keywords are inconclusive.
		email, err := deps.Generator.Generate(r.Context(), req, nil)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, email)
	}
}

func handleListDrafts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		drafts, err := deps.History.ListDrafts(deps.user(r.URL.Query().Get("user")), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if drafts == nil {
			drafts = []storage.Draft{}
		}
		writeJSON(w, http.StatusOK, drafts)
	}
}

func handleGetDraft(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := deps.History.GetDraft(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func handleListTemplates(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		var ts []catalog.Template
		if q := r.URL.Query().Get("q"); q != "" {
			for _, t := range deps.Catalog.Search(q) {
				if category == "" || t.Category == category {
					ts = append(ts, t)
				}
			}
		} else {
			ts = deps.Catalog.List(category)
		}

		out := make([]catalog.Summary, 0, len(ts))
		for _, t := range ts {
			out = append(out, t.Summary())
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetTemplate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := deps.Catalog.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func handleListProfiles(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := deps.Profiles.List()
		if err != nil {
			writeError(w, err)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, ids)
	}
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Profiles.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		s := profile.Summarize(p, deps.Style)
		s.RecentLearning, err = deps.History.LearningHistory(p.UserID, profile.RecentLearningLimit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func handleDeleteProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Profiles.Delete(chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

type learnRequest struct {
	Samples []string `json:"samples"`
}

type learnResponse struct {
	Profile profile.Summary `json:"profile"`
	style.LearnReport
}

func handleLearnSamples(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSampleBodySize)
		defer r.Body.Close()

		var req learnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, string(apperr.InvalidRequest), "invalid request body: %v", err)
			return
		}

		p, report, err := deps.Learner.LearnSamples(r.Context(), chi.URLParam(r, "id"), req.Samples)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, learnResponse{Profile: profile.Summarize(p, deps.Style), LearnReport: report})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

// writeError maps err onto a status code and the error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := apperr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}

	body := map[string]any{
		"message": err.Error(),
		"type":    string(apperr.KindOf(err)),
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Stage != "" {
			body["stage"] = ae.Stage
		}
		if ae.Slot != "" {
			body["slot"] = ae.Slot
		}
	}
	if hint := apperr.Hint(err); hint != "" {
		body["hint"] = hint
	}
	writeJSON(w, code, map[string]any{"error": body})
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
