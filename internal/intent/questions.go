package intent

import (
	"strconv"
	"strings"
)

// Option is one possible answer to a clarifying question.
type Option struct {
	Key        string   `json:"key"`
	Label      string   `json:"label"`
	Categories []string `json:"categories"`
}

// Question narrows the candidate categories.
type Question struct {
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

// Answer is a reply to a Question. Text may be the 1-based option number,
// its key, or its label.
type Answer struct {
	Text     string
	Declined bool
}

// question asks about families first when the candidates span more than one,
// and about individual categories otherwise.
func (d *Detector) question(candidates []string) Question {
	var families []string
	byFamily := make(map[string][]string)
	for _, c := range candidates {
		f := family(c)
		if _, ok := byFamily[f]; !ok {
			families = append(families, f)
		}
		byFamily[f] = append(byFamily[f], c)
	}

	if len(families) > 1 {
		q := Question{Prompt: "What kind of email is this?"}
		for _, f := range families {
			q.Options = append(q.Options, Option{Key: f, Label: labelFor(familyLabels, f), Categories: byFamily[f]})
		}
		return q
	}

	q := Question{Prompt: "Which of these fits best?"}
	for _, c := range candidates {
		q.Options = append(q.Options, Option{Key: c, Label: labelFor(categoryLabels, c), Categories: []string{c}})
	}
	return q
}

func (q *Question) pick(text string) (Option, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Option{}, false
	}
	if n, err := strconv.Atoi(text); err == nil {
		if n >= 1 && n <= len(q.Options) {
			return q.Options[n-1], true
		}
		return Option{}, false
	}
	for _, o := range q.Options {
		if strings.EqualFold(text, o.Key) || strings.EqualFold(text, o.Label) {
			return o, true
		}
	}
	return Option{}, false
}

func family(category string) string {
	if i := strings.IndexByte(category, '_'); i > 0 {
		return category[:i]
	}
	return category
}

func labelFor(labels map[string]string, key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return key
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
