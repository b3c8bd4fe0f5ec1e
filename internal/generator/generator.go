// Package generator turns a drafting request into a finished email by
// running intent detection, template selection, prompt construction,
// completion and rendering in order.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/draftsmith/internal/apperr"
	"github.com/kalambet/draftsmith/internal/catalog"
	"github.com/kalambet/draftsmith/internal/completion"
	"github.com/kalambet/draftsmith/internal/composer"
	"github.com/kalambet/draftsmith/internal/intent"
	"github.com/kalambet/draftsmith/internal/storage"
	"github.com/kalambet/draftsmith/internal/style"
)

// Pipeline stages reported on errors.
const (
	StageValidate   = "validate"
	StageIntent     = "intent"
	StageTemplate   = "template"
	StageProfile    = "profile"
	StagePrompt     = "prompt"
	StageCompletion = "completion"
	StageParse      = "parse"
	StageRender     = "render"
	StageSave       = "save"
)

const systemPrompt = "You write emails on behalf of the user. Follow the output format exactly and never invent facts that are not in the request."

// ProfileSource looks up a user's style profile. A nil profile with a nil
// error means the user has none yet.
type ProfileSource interface {
	Lookup(userID string) (*style.Profile, error)
}

// DraftStore persists generated emails.
type DraftStore interface {
	SaveDraft(d storage.Draft) error
}

// Options configures generation.
type Options struct {
	Temperature float64
	MaxTokens   int
	UserName    string // sender name; the user id is used when empty
	Style       style.Options
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{Temperature: 0.7, MaxTokens: 800, Style: style.DefaultOptions()}
}

// Deps are the collaborators of a Generator. Profiles and History may be nil.
type Deps struct {
	Catalog   *catalog.Catalog
	Detector  *intent.Detector
	Composer  *composer.Composer
	Completer completion.Completer
	Profiles  ProfileSource
	History   DraftStore
}

// Request describes the email to draft. At least one of Topic and
// TemplateID is required.
type Request struct {
	UserID     string            `json:"user_id,omitempty"`
	Topic      string            `json:"topic,omitempty"`
	Recipient  string            `json:"recipient,omitempty"`
	Context    string            `json:"context,omitempty"`
	TemplateID string            `json:"template_id,omitempty"`
	Category   string            `json:"category,omitempty"`
	Vars       map[string]string `json:"vars,omitempty"` // values for extra context slots
	Save       bool              `json:"save,omitempty"`
}

// GeneratedEmail is the result of a successful generation.
type GeneratedEmail struct {
	ID           string        `json:"id"`
	Subject      string        `json:"subject"`
	Body         string        `json:"body"`
	TemplateID   string        `json:"template_id"`
	Category     string        `json:"category"`
	StyleAdapted bool          `json:"style_adapted"`
	IntentSource intent.Source `json:"intent_source"`
	Questions    int           `json:"questions"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Generator is the drafting pipeline. It is safe for concurrent use as long
// as its collaborators are.
type Generator struct {
	deps Deps
	opts Options
	now  func() time.Time
}

// New creates a Generator.
func New(deps Deps, opts Options) *Generator {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultOptions().MaxTokens
	}
	return &Generator{deps: deps, opts: opts, now: time.Now}
}

// Generate drafts one email. The asker answers clarifying questions about
// the intent and may be nil. On error no email is returned and the error
// carries the failing stage.
func (g *Generator) Generate(ctx context.Context, req Request, asker intent.Asker) (*GeneratedEmail, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	req.TemplateID = strings.TrimSpace(req.TemplateID)
	if req.Topic == "" && req.TemplateID == "" {
		return nil, apperr.WithStage(StageValidate,
			apperr.New(apperr.InvalidRequest, "a topic or a template id is required"))
	}

	var (
		tmpl     catalog.Template
		explicit bool
	)
	if req.TemplateID != "" {
		t, err := g.deps.Catalog.Get(req.TemplateID)
		if err != nil {
			return nil, apperr.WithStage(StageTemplate, err)
		}
		tmpl, explicit = t, true
		if req.Category != "" && req.Category != t.Category {
			return nil, apperr.WithStage(StageValidate, apperr.New(apperr.InvalidRequest,
				"template %q is %s, not %s", t.ID, t.Category, req.Category))
		}
	}

	ireq := intent.Request{
		Category:  req.Category,
		Topic:     req.Topic,
		Context:   req.Context,
		Recipient: req.Recipient,
	}
	if explicit {
		ireq.Category = ""
		ireq.TemplateCategory = tmpl.Category
	}
	res, err := g.deps.Detector.Run(ctx, ireq, asker)
	if err != nil {
		return nil, apperr.WithStage(StageIntent, err)
	}

	if !explicit {
		t, err := g.deps.Catalog.Match(res.Category, keywords(req.Topic+" "+req.Context))
		if err != nil {
			return nil, apperr.WithStage(StageTemplate, err)
		}
		tmpl = t
	}

	var prof *style.Profile
	if g.deps.Profiles != nil && req.UserID != "" {
		prof, err = g.deps.Profiles.Lookup(req.UserID)
		if err != nil {
			return nil, apperr.WithStage(StageProfile, err)
		}
	}

	p := g.deps.Composer.Build(composer.Input{
		Category:  res.Category,
		Profile:   prof,
		Topic:     req.Topic,
		Recipient: req.Recipient,
		Context:   req.Context,
		Urgency:   intent.DetectUrgency(req.Topic + "\n" + req.Context),
		Template:  tmpl,
	})
	if len(p.Slots) == 0 {
		return nil, apperr.WithStage(StagePrompt, apperr.New(apperr.CorruptTemplate,
			"template %q has no ai slots to generate", tmpl.ID))
	}

	text, err := g.deps.Completer.Complete(ctx, completion.Request{
		System:      systemPrompt,
		Prompt:      p.Text,
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		return nil, apperr.WithStage(StageCompletion, err)
	}

	vars, err := aiValues(text, tmpl)
	if err != nil {
		return nil, apperr.WithStage(StageParse, err)
	}
	for k, v := range g.contextValues(req, tmpl, prof) {
		vars[k] = v
	}

	out, err := g.deps.Catalog.Render(tmpl, vars)
	if err != nil {
		return nil, apperr.WithStage(StageRender, err)
	}

	email := &GeneratedEmail{
		ID:           uuid.NewString(),
		Subject:      out.Subject,
		Body:         out.Body,
		TemplateID:   tmpl.ID,
		Category:     res.Category,
		StyleAdapted: p.StyleAdapted,
		IntentSource: res.Source,
		Questions:    res.Questions,
		CreatedAt:    g.now().UTC(),
	}
	slog.Info("email generated", "id", email.ID, "template", tmpl.ID, "category", res.Category,
		"intent_source", res.Source, "style_adapted", p.StyleAdapted)

	if req.Save && g.deps.History != nil {
		if err := g.deps.History.SaveDraft(ToDraft(email, req)); err != nil {
			return nil, apperr.WithStage(StageSave, fmt.Errorf("saving draft %s: %w", email.ID, err))
		}
	}
	return email, nil
}

// aiValues splits the completion text into the template's AI slots. With
// slot markers present every required slot must be answered; free text
// fills the primary slot and leaves the others empty.
func aiValues(text string, t catalog.Template) (map[string]string, error) {
	parsed := composer.ParseSlots(text, t)
	vars := make(map[string]string, len(t.Variables))
	for _, v := range t.AISlots() {
		val, ok := parsed.Values[v.Name]
		if parsed.Structured && !v.Optional && (!ok || val == "") {
			return nil, apperr.Missing(v.Name)
		}
		vars[v.Name] = val
	}
	return vars, nil
}

// contextValues fills the context slots of t. Slots nobody supplies keep
// their declared default or stay absent so rendering reports them.
func (g *Generator) contextValues(req Request, t catalog.Template, prof *style.Profile) map[string]string {
	reliable := g.opts.Style.Reliable(prof)
	vars := make(map[string]string)
	for _, v := range t.Variables {
		if v.Fill != catalog.FillContext {
			continue
		}
		if val, ok := req.Vars[v.Name]; ok {
			vars[v.Name] = val
			continue
		}

		var val string
		switch v.Name {
		case "subject":
			val = req.Topic
			if val == "" {
				val = t.Summary().Name
			}
		case "recipient_name":
			val = RecipientName(req.Recipient)
		case "sender_name":
			val = g.opts.UserName
			if val == "" {
				val = req.UserID
			}
		case "greeting":
			if reliable {
				val, _ = prof.TopPhrase(style.Salutation)
			}
		case "closing":
			if reliable {
				val, _ = prof.TopPhrase(style.Closing)
			}
		}
		if val != "" {
			vars[v.Name] = val
			continue
		}
		if def, ok := v.DefaultValue(); ok {
			vars[v.Name] = def
		}
	}
	return vars
}

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

func keywords(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// ToDraft converts a generated email into its history record.
func ToDraft(e *GeneratedEmail, req Request) storage.Draft {
	return storage.Draft{
		ID:           e.ID,
		UserID:       req.UserID,
		CreatedAt:    e.CreatedAt,
		Topic:        req.Topic,
		Recipient:    req.Recipient,
		Subject:      e.Subject,
		Body:         e.Body,
		TemplateID:   e.TemplateID,
		Category:     e.Category,
		StyleAdapted: e.StyleAdapted,
		IntentSource: string(e.IntentSource),
	}
}
