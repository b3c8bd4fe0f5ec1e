package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/draftsmith/internal/apperr"
	"github.com/kalambet/draftsmith/internal/catalog"
	"github.com/kalambet/draftsmith/internal/completion"
	"github.com/kalambet/draftsmith/internal/composer"
	"github.com/kalambet/draftsmith/internal/generator"
	"github.com/kalambet/draftsmith/internal/intent"
	"github.com/kalambet/draftsmith/internal/profile"
	"github.com/kalambet/draftsmith/internal/storage"
	"github.com/kalambet/draftsmith/internal/style"
)

const testToken = "test-token-12345"

const formalReply = "[[opening]]\nI am writing to request a meeting.\n\n[[body]]\nWould Tuesday at 10:00 work for you?\n"

const sampleEmail = "Hi Bob,\n\nCan you send me the numbers today? Thanks!\n\nCheers,\nAlice"

type stubCompleter struct {
	text string
	err  error
}

func (s *stubCompleter) Complete(_ context.Context, _ completion.Request) (string, error) {
	return s.text, s.err
}

func setupDeps(t *testing.T, c completion.Completer) (Deps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	builtin, err := catalog.Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	cat, err := catalog.New(builtin...)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}

	opts := style.DefaultOptions()
	mgr := profile.NewManager(store)
	gen := generator.New(generator.Deps{
		Catalog:   cat,
		Detector:  intent.NewDetector(intent.DefaultOptions(), cat.Categories()),
		Composer:  composer.New(composer.Options{Style: opts}),
		Completer: c,
		Profiles:  mgr,
		History:   store,
	}, generator.DefaultOptions())

	return Deps{
		Generator: gen,
		Catalog:   cat,
		Profiles:  mgr,
		Learner:   profile.NewLearner(mgr, style.NewAnalyzer(opts), store),
		History:   store,
		Style:     opts,
		UserID:    "alice",
		Token:     testToken,
	}, store
}

func setupHandler(t *testing.T) (http.Handler, Deps, *storage.Store) {
	t.Helper()
	deps, store := setupDeps(t, &stubCompleter{text: formalReply})
	return NewHandler(deps), deps, store
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Stage   string `json:"stage"`
		Slot    string `json:"slot"`
		Hint    string `json:"hint"`
	} `json:"error"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var e errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("decoding error body %q: %v", rr.Body.String(), err)
	}
	return e
}

func TestHealth_NoAuth(t *testing.T) {
	h, _, _ := setupHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestAuth_Required(t *testing.T) {
	h, _, _ := setupHandler(t)

	for _, token := range []string{"", "wrong-token"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, authReq(http.MethodGet, "/templates", "", token))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, rr.Code)
		}
	}
}

func TestBearerAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{"match", "secret", "Bearer secret", http.StatusNoContent},
		{"scheme case", "secret", "bearer secret", http.StatusNoContent},
		{"wrong token", "secret", "Bearer other", http.StatusUnauthorized},
		{"basic scheme", "secret", "Basic secret", http.StatusUnauthorized},
		{"no header", "secret", "", http.StatusUnauthorized},
		{"server token unset", "", "Bearer ", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			BearerAuth(tt.token)(ok).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestCreateDraft(t *testing.T) {
	h, _, store := setupHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/drafts", `{"topic":"Meeting Request","save":true}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var email generator.GeneratedEmail
	if err := json.Unmarshal(rr.Body.Bytes(), &email); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if email.TemplateID != "business_formal_standard" {
		t.Errorf("TemplateID = %q", email.TemplateID)
	}
	want := "Dear Sir or Madam,\n\nI am writing to request a meeting.\n\nWould Tuesday at 10:00 work for you?\n\nBest regards,\nalice"
	if email.Body != want {
		t.Errorf("Body = %q, want %q", email.Body, want)
	}

	d, err := store.GetDraft(email.ID)
	if err != nil {
		t.Fatalf("draft not saved: %v", err)
	}
	if d.UserID != "alice" || d.Subject != "Meeting Request" {
		t.Errorf("unexpected draft %+v", d)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/drafts/"+email.ID, "", testToken))
	if rr.Code != http.StatusOK {
		t.Errorf("get draft status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/drafts?limit=5", "", testToken))
	var drafts []storage.Draft
	if err := json.Unmarshal(rr.Body.Bytes(), &drafts); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(drafts) != 1 || drafts[0].ID != email.ID {
		t.Errorf("drafts = %+v", drafts)
	}
}

func TestCreateDraft_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		completer *stubCompleter
		status    int
		kind      apperr.Kind
		stage     string
	}{
		{"bad json", `{"topic":`, &stubCompleter{text: formalReply}, http.StatusBadRequest, apperr.InvalidRequest, ""},
		{"no topic", `{}`, &stubCompleter{text: formalReply}, http.StatusBadRequest, apperr.InvalidRequest, generator.StageValidate},
		{"unknown template", `{"template_id":"nope"}`, &stubCompleter{text: formalReply}, http.StatusNotFound, apperr.NotFound, generator.StageTemplate},
		{
			"timeout", `{"topic":"Meeting Request"}`,
			&stubCompleter{err: apperr.New(apperr.CompletionTimeout, "no answer")},
			http.StatusGatewayTimeout, apperr.CompletionTimeout, generator.StageCompletion,
		},
		{
			"unreachable", `{"topic":"Meeting Request"}`,
			&stubCompleter{err: apperr.New(apperr.CompletionUnreachable, "connection refused")},
			http.StatusBadGateway, apperr.CompletionUnreachable, generator.StageCompletion,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, _ := setupDeps(t, tt.completer)
			h := NewHandler(deps)

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, authReq(http.MethodPost, "/drafts", tt.body, testToken))
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d; body = %s", rr.Code, tt.status, rr.Body.String())
			}
			e := decodeError(t, rr)
			if e.Error.Type != string(tt.kind) {
				t.Errorf("type = %q, want %q", e.Error.Type, tt.kind)
			}
			if e.Error.Stage != tt.stage {
				t.Errorf("stage = %q, want %q", e.Error.Stage, tt.stage)
			}
		})
	}
}

func TestCreateDraft_MissingSlot(t *testing.T) {
	deps, _ := setupDeps(t, &stubCompleter{text: "[[body]]\nOnly a body.\n"})
	h := NewHandler(deps)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/drafts", `{"topic":"Meeting Request"}`, testToken))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	e := decodeError(t, rr)
	if e.Error.Slot != "opening" || e.Error.Stage != generator.StageParse {
		t.Errorf("error = %+v", e.Error)
	}
	if e.Error.Hint == "" {
		t.Error("expected a hint")
	}
}

func TestTemplates(t *testing.T) {
	h, _, _ := setupHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/templates?category=casual_friendly", "", testToken))
	var list []catalog.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) == 0 {
		t.Fatal("expected casual templates")
	}
	for _, s := range list {
		if s.Category != "casual_friendly" {
			t.Errorf("template %s has category %s", s.ID, s.Category)
		}
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/templates/casual_check_in", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var tmpl catalog.Template
	if err := json.Unmarshal(rr.Body.Bytes(), &tmpl); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tmpl.Body == "" {
		t.Error("template body should be included")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/templates/missing", "", testToken))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestProfiles_LearnShowDelete(t *testing.T) {
	h, _, store := setupHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/profiles/bob", "", testToken))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing profile status = %d, want 404", rr.Code)
	}

	body := `{"samples":["` + strings.ReplaceAll(sampleEmail, "\n", `\n`) + `",""]}`
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/profiles/bob/samples", body, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("learn status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var learned struct {
		Profile profile.Summary `json:"profile"`
		Applied int             `json:"applied"`
		Skipped int             `json:"skipped"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &learned); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if learned.Applied != 1 || learned.Skipped != 1 || learned.Profile.SampleCount != 1 {
		t.Errorf("unexpected learn response %+v", learned)
	}

	events, err := store.LearningHistory("bob", 10)
	if err != nil || len(events) != 1 {
		t.Fatalf("history = %v, %v", events, err)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/profiles/bob", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("get profile status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var shown profile.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &shown); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(shown.RecentLearning) != 1 {
		t.Fatalf("recent_learning = %+v, want one event", shown.RecentLearning)
	}
	if ev := shown.RecentLearning[0]; ev.Source != "samples" || ev.Applied != 1 || ev.Skipped != 1 {
		t.Errorf("unexpected learning event %+v", ev)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/profiles", "", testToken))
	var ids []string
	if err := json.Unmarshal(rr.Body.Bytes(), &ids); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ids) != 1 || ids[0] != "bob" {
		t.Errorf("ids = %v", ids)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodDelete, "/profiles/bob", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodDelete, "/profiles/bob", "", testToken))
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rr.Code)
	}
}

func TestLearnSamples_NothingUsable(t *testing.T) {
	h, _, _ := setupHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/profiles/bob/samples", `{"samples":["  "]}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}
