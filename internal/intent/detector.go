package intent

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/kalambet/draftsmith/internal/apperr"
	"github.com/kalambet/draftsmith/internal/catalog"
)

// Status is the detector state: Pending needs an answer, Resolved is final.
type Status int

const (
	Pending Status = iota
	Resolved
)

func (s Status) String() string {
	if s == Resolved {
		return "resolved"
	}
	return "pending"
}

// Source records how the category was decided.
type Source string

const (
	SourceExplicit  Source = "explicit"
	SourceTemplate  Source = "template"
	SourceKeywords  Source = "keywords"
	SourceClarified Source = "clarified"
	SourceFallback  Source = "fallback"
)

// Request carries what is known about the email before detection.
type Request struct {
	Category         string // explicit category, resolves immediately
	TemplateCategory string // category of an explicitly chosen template
	Topic            string
	Context          string
	Recipient        string
}

// Result is the outcome of detection.
type Result struct {
	Category   string  `json:"category"`
	Source     Source  `json:"source"`
	Confidence float64 `json:"confidence"`
	Questions  int     `json:"questions"`
}

// State is a detection in progress. It is a value; Step never mutates its
// argument, so a state can be kept and replayed.
type State struct {
	Status     Status
	Candidates []string
	Asked      int
	Question   *Question
	Result     *Result
	guess      float64
}

// Options configures detection.
type Options struct {
	DefaultCategory     string
	ConfidenceThreshold float64
	MaxQuestions        int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		DefaultCategory:     catalog.BusinessFormal,
		ConfidenceThreshold: 0.6,
		MaxQuestions:        3,
	}
}

// Detector classifies the intent of an email request.
type Detector struct {
	opts       Options
	categories []string
	known      map[string]bool
}

// NewDetector creates a detector over the given categories. An empty list
// means the built-in categories.
func NewDetector(opts Options, categories []string) *Detector {
	if len(categories) == 0 {
		categories = catalog.BuiltinCategories
	}
	if opts.DefaultCategory == "" {
		opts.DefaultCategory = catalog.BusinessFormal
	}
	d := &Detector{opts: opts, known: make(map[string]bool, len(categories))}
	for _, c := range categories {
		if !d.known[c] {
			d.known[c] = true
			d.categories = append(d.categories, c)
		}
	}
	return d
}

// Begin starts detection. An explicit category or template resolves at once;
// otherwise keywords are tried, and if they are not conclusive the state is
// Pending with the first clarifying question.
func (d *Detector) Begin(req Request) (State, error) {
	if c := strings.TrimSpace(req.Category); c != "" {
		if !d.known[c] {
			return State{}, apperr.New(apperr.InvalidRequest, "unknown category %q (known: %s)", c, strings.Join(d.categories, ", "))
		}
		return resolved(Result{Category: c, Source: SourceExplicit, Confidence: 1}), nil
	}
	if c := strings.TrimSpace(req.TemplateCategory); c != "" {
		return resolved(Result{Category: c, Source: SourceTemplate, Confidence: 1}), nil
	}

	guess, conf, ranked := d.Guess(req.Topic + "\n" + req.Context)
	if guess != "" && conf >= d.opts.ConfidenceThreshold {
		slog.Debug("intent resolved by keywords", "category", guess, "confidence", conf)
		return resolved(Result{Category: guess, Source: SourceKeywords, Confidence: conf}), nil
	}

	st := State{Status: Pending, Candidates: ranked, guess: conf}
	return d.advance(st), nil
}

// Step consumes one answer. A declined answer, or running out of questions
// with several candidates left, resolves to the default category.
func (d *Detector) Step(st State, ans Answer) State {
	if st.Status == Resolved {
		return st
	}
	if ans.Declined || st.Question == nil {
		return d.fallback(st)
	}

	next := State{Status: Pending, Candidates: st.Candidates, Asked: st.Asked + 1, guess: st.guess}
	if opt, ok := st.Question.pick(ans.Text); ok {
		if narrowed := intersect(st.Candidates, opt.Categories); len(narrowed) > 0 {
			next.Candidates = narrowed
		}
	} else {
		slog.Debug("unrecognized answer", "answer", ans.Text)
	}
	return d.advance(next)
}

func (d *Detector) advance(st State) State {
	if len(st.Candidates) == 1 {
		return resolved(Result{Category: st.Candidates[0], Source: SourceClarified, Confidence: 1, Questions: st.Asked})
	}
	if st.Asked >= d.opts.MaxQuestions || len(st.Candidates) == 0 {
		return d.fallback(st)
	}
	q := d.question(st.Candidates)
	st.Question = &q
	return st
}

func (d *Detector) fallback(st State) State {
	slog.Debug("intent falling back to default", "category", d.opts.DefaultCategory, "asked", st.Asked)
	return resolved(Result{Category: d.opts.DefaultCategory, Source: SourceFallback, Confidence: st.guess, Questions: st.Asked})
}

func resolved(r Result) State {
	return State{Status: Resolved, Result: &r, Asked: r.Questions}
}

var tokenRe = regexp.MustCompile(`[a-z0-9]+(?:'[a-z]+)?`)

// Guess scores text against the keyword lexicon. It returns the best
// category, a confidence in [0,1], and every known category ranked by score
// (ties keep catalog order). Confidence is the best category's share of all
// matches, damped when fewer than two distinct keywords matched.
func (d *Detector) Guess(text string) (string, float64, []string) {
	toks := tokenRe.FindAllString(strings.ToLower(strings.ReplaceAll(text, "’", "'")), -1)

	scores := make(map[string]int, len(d.categories))
	total := 0
	for _, c := range d.categories {
		n := 0
		for _, kw := range keywords[c] {
			if containsPhrase(toks, strings.Fields(kw)) {
				n++
			}
		}
		scores[c] = n
		total += n
	}

	ranked := make([]string, len(d.categories))
	copy(ranked, d.categories)
	sort.SliceStable(ranked, func(i, j int) bool { return scores[ranked[i]] > scores[ranked[j]] })

	top := scores[ranked[0]]
	if top == 0 {
		return "", 0, ranked
	}
	strength := float64(top) / 2
	if strength > 1 {
		strength = 1
	}
	return ranked[0], float64(top) / float64(total) * strength, ranked
}

func containsPhrase(toks, phrase []string) bool {
	for i := 0; i+len(phrase) <= len(toks); i++ {
		match := true
		for j := range phrase {
			if toks[i+j] != phrase[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func intersect(candidates, allowed []string) []string {
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	var out []string
	for _, c := range candidates {
		if ok[c] {
			out = append(out, c)
		}
	}
	return out
}
