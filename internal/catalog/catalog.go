package catalog

import (
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/kalambet/draftsmith/internal/apperr"
)

// Built-in categories, in canonical order.
const (
	BusinessFormal  = "business_formal"
	BusinessInquiry = "business_inquiry"
	CasualFriendly  = "casual_friendly"
	CasualCheckIn   = "casual_check_in"
	SalesPersuasive = "sales_persuasive"
	SalesFollowUp   = "sales_follow_up"
)

// BuiltinCategories lists the built-in categories in canonical order.
var BuiltinCategories = []string{
	BusinessFormal, BusinessInquiry,
	CasualFriendly, CasualCheckIn,
	SalesPersuasive, SalesFollowUp,
}

//go:embed builtin/*.md
var builtinFS embed.FS

// Builtin returns the templates shipped with the binary.
func Builtin() ([]Template, error) {
	ts, skipped, err := loadFS(builtinFS, "builtin", "")
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		return nil, fmt.Errorf("%s: %w", skipped[0].Path, skipped[0].Err)
	}
	for i := range ts {
		ts[i].Source = "builtin"
	}
	return ts, nil
}

// Catalog is a read-only index over a set of templates.
type Catalog struct {
	byID  map[string]Template
	order []string // ids sorted by category rank, priority, id
	cats  []string

	skipped []SkippedFile
}

// New builds a catalog. Later templates replace earlier ones with the same id.
func New(templates ...Template) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Template, len(templates))}
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if prev, ok := c.byID[t.ID]; ok {
			slog.Debug("template overridden", "id", t.ID, "previous", prev.Source, "source", t.Source)
		}
		c.byID[t.ID] = t
	}
	c.index()
	return c, nil
}

// Load builds a catalog from the built-in templates plus any custom
// templates found in dir. Custom templates override built-ins by id.
func Load(dir string) (*Catalog, error) {
	ts, err := Builtin()
	if err != nil {
		return nil, fmt.Errorf("loading built-in templates: %w", err)
	}
	var skipped []SkippedFile
	if dir != "" {
		custom, bad, err := LoadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("loading templates from %s: %w", dir, err)
		}
		ts = append(ts, custom...)
		skipped = bad
	}
	c, err := New(ts...)
	if err != nil {
		return nil, err
	}
	c.skipped = skipped
	return c, nil
}

// Skipped lists the custom template files Load could not parse.
func (c *Catalog) Skipped() []SkippedFile {
	return c.skipped
}

func (c *Catalog) index() {
	seen := make(map[string]bool)
	c.cats = nil
	for _, cat := range BuiltinCategories {
		seen[cat] = true
		c.cats = append(c.cats, cat)
	}
	var extra []string
	c.order = c.order[:0]
	for id, t := range c.byID {
		c.order = append(c.order, id)
		if !seen[t.Category] {
			seen[t.Category] = true
			extra = append(extra, t.Category)
		}
	}
	sort.Strings(extra)
	c.cats = append(c.cats, extra...)

	rank := make(map[string]int, len(c.cats))
	for i, cat := range c.cats {
		rank[cat] = i
	}
	sort.Slice(c.order, func(i, j int) bool {
		a, b := c.byID[c.order[i]], c.byID[c.order[j]]
		if rank[a.Category] != rank[b.Category] {
			return rank[a.Category] < rank[b.Category]
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})
}

// Len returns the number of templates.
func (c *Catalog) Len() int { return len(c.byID) }

// Categories returns the built-in categories followed by any extra
// categories declared by custom templates.
func (c *Catalog) Categories() []string {
	out := make([]string, len(c.cats))
	copy(out, c.cats)
	return out
}

// List returns templates in catalog order, optionally filtered by category.
func (c *Catalog) List(category string) []Template {
	var out []Template
	for _, id := range c.order {
		t := c.byID[id]
		if category == "" || t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// Get returns the template with the given id.
func (c *Catalog) Get(id string) (Template, error) {
	t, ok := c.byID[id]
	if !ok {
		return Template{}, apperr.New(apperr.NotFound, "template %q not found", id)
	}
	return t, nil
}

// Match picks the best template for a category. Candidates are ranked by how
// many of keywords appear among their tags, then by priority (lower first),
// then by id.
func (c *Catalog) Match(category string, keywords []string) (Template, error) {
	candidates := c.List(category)
	if len(candidates) == 0 {
		return Template{}, apperr.New(apperr.NotFound, "no template for category %q", category)
	}

	best, bestScore := candidates[0], tagOverlap(candidates[0], keywords)
	for _, t := range candidates[1:] {
		score := tagOverlap(t, keywords)
		// Candidates are already in priority/id order, so only a strictly
		// higher overlap displaces the current best.
		if score > bestScore {
			best, bestScore = t, score
		}
	}
	slog.Debug("template matched", "category", category, "template", best.ID, "tag_overlap", bestScore)
	return best, nil
}

func tagOverlap(t Template, keywords []string) int {
	if len(keywords) == 0 || len(t.Tags) == 0 {
		return 0
	}
	text := " " + strings.ToLower(strings.Join(keywords, " ")) + " "
	n := 0
	for _, tag := range t.Tags {
		if strings.Contains(text, " "+strings.ToLower(tag)+" ") {
			n++
		}
	}
	return n
}

// Render fills t from vars. See the package-level Render.
func (c *Catalog) Render(t Template, vars map[string]string) (Rendered, error) {
	return Render(t, vars)
}

// Search returns templates whose id, name, description or tags fuzzily
// match query, best match first.
func (c *Catalog) Search(query string) []Template {
	all := c.List("")
	if strings.TrimSpace(query) == "" {
		return all
	}
	haystack := make([]string, len(all))
	for i, t := range all {
		haystack[i] = strings.Join([]string{t.ID, t.Name, t.Description, strings.Join(t.Tags, " ")}, " ")
	}
	matches := fuzzy.Find(query, haystack)
	out := make([]Template, 0, len(matches))
	for _, m := range matches {
		out = append(out, all[m.Index])
	}
	return out
}
