package catalog

import (
	"regexp"
	"strings"

	"github.com/kalambet/draftsmith/internal/apperr"
)

// Rendered is a template filled with values.
type Rendered struct {
	Subject string
	Body    string
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// Render fills every declared slot of t from vars. A declared slot without
// an entry in vars fails with MissingVariable naming the slot; an empty
// string counts as a value. Extra entries in vars are ignored.
func Render(t Template, vars map[string]string) (Rendered, error) {
	for _, v := range t.Variables {
		if _, ok := vars[v.Name]; !ok {
			return Rendered{}, apperr.Missing(v.Name)
		}
	}

	var missing string
	fill := func(s string) string {
		return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
			name := placeholderRe.FindStringSubmatch(m)[1]
			val, ok := vars[name]
			if !ok && missing == "" {
				missing = name
			}
			return val
		})
	}

	subject := strings.TrimSpace(fill(t.Subject))
	body := tidy(fill(t.Body))
	if missing != "" {
		return Rendered{}, apperr.Missing(missing)
	}
	return Rendered{Subject: subject, Body: body}, nil
}

// tidy trims trailing spaces per line and collapses the blank runs left by
// empty optional slots.
func tidy(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	s = strings.Join(lines, "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
