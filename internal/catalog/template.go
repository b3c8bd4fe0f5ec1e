package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kalambet/draftsmith/internal/apperr"
)

// Fill says who supplies a slot's value.
type Fill string

const (
	// FillAI slots are written by the completion service.
	FillAI Fill = "ai"
	// FillContext slots come from the request, the profile or configuration.
	FillContext Fill = "context"
)

// Variable is one named slot of a template.
type Variable struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Fill        Fill    `yaml:"fill" json:"fill"`
	Default     *string `yaml:"default,omitempty" json:"default,omitempty"`
	Optional    bool    `yaml:"optional,omitempty" json:"optional,omitempty"`
	Primary     bool    `yaml:"primary,omitempty" json:"primary,omitempty"`
}

// DefaultValue returns the value used when nothing else fills the slot.
// Optional slots without a declared default fall back to the empty string.
func (v Variable) DefaultValue() (string, bool) {
	if v.Default != nil {
		return *v.Default, true
	}
	if v.Optional {
		return "", true
	}
	return "", false
}

// Template is an email skeleton with named slots. Body and Subject reference
// slots as {{name}}.
type Template struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name,omitempty" json:"name,omitempty"`
	Category    string     `yaml:"category" json:"category"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Priority    int        `yaml:"priority,omitempty" json:"priority"`
	Tags        []string   `yaml:"tags,omitempty" json:"tags,omitempty"`
	Subject     string     `yaml:"subject,omitempty" json:"subject,omitempty"`
	Variables   []Variable `yaml:"variables" json:"variables"`
	Body        string     `yaml:"-" json:"body"`
	Source      string     `yaml:"-" json:"source,omitempty"`
}

// Summary is the listing view of a template.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// Summary returns the listing view of t.
func (t Template) Summary() Summary {
	name := t.Name
	if name == "" {
		name = t.ID
	}
	return Summary{ID: t.ID, Name: name, Category: t.Category, Description: t.Description, Source: t.Source}
}

// Variable returns the slot with the given name.
func (t Template) Variable(name string) (Variable, bool) {
	for _, v := range t.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// AISlots returns the slots the completion service is expected to write, in
// declaration order.
func (t Template) AISlots() []Variable {
	var out []Variable
	for _, v := range t.Variables {
		if v.Fill == FillAI {
			out = append(out, v)
		}
	}
	return out
}

// PrimarySlot is the AI slot that receives free-form output. It is the slot
// marked primary, or the first AI slot.
func (t Template) PrimarySlot() (Variable, bool) {
	ai := t.AISlots()
	for _, v := range ai {
		if v.Primary {
			return v, true
		}
	}
	if len(ai) > 0 {
		return ai[0], true
	}
	return Variable{}, false
}

var (
	placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)
	slotNameRe    = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Placeholders returns the distinct slot names referenced by subject and body
// in order of first appearance.
func (t Template) Placeholders() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(t.Subject+"\n"+t.Body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Validate checks the structural invariants of t. Every placeholder must be a
// declared variable.
func (t Template) Validate() error {
	var problems []string
	if strings.TrimSpace(t.ID) == "" {
		problems = append(problems, "id is required")
	}
	if strings.TrimSpace(t.Category) == "" {
		problems = append(problems, "category is required")
	}
	if strings.TrimSpace(t.Body) == "" {
		problems = append(problems, "body is empty")
	}

	declared := make(map[string]bool, len(t.Variables))
	primaries := 0
	for _, v := range t.Variables {
		switch {
		case !slotNameRe.MatchString(v.Name):
			problems = append(problems, fmt.Sprintf("invalid variable name %q", v.Name))
		case declared[v.Name]:
			problems = append(problems, fmt.Sprintf("duplicate variable %q", v.Name))
		}
		declared[v.Name] = true
		if v.Fill != FillAI && v.Fill != FillContext {
			problems = append(problems, fmt.Sprintf("variable %q: fill must be %q or %q", v.Name, FillAI, FillContext))
		}
		if v.Primary {
			if v.Fill != FillAI {
				problems = append(problems, fmt.Sprintf("variable %q: only ai slots can be primary", v.Name))
			}
			primaries++
		}
	}
	if primaries > 1 {
		problems = append(problems, "more than one primary slot")
	}
	for _, name := range t.Placeholders() {
		if !declared[name] {
			problems = append(problems, fmt.Sprintf("placeholder {{%s}} is not a declared variable", name))
		}
	}

	if len(problems) > 0 {
		return apperr.New(apperr.CorruptTemplate, "template %q: %s", t.ID, strings.Join(problems, "; "))
	}
	return nil
}
