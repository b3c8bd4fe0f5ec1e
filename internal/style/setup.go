package style

import (
	"strconv"
	"strings"
)

// SetupOption is one choice of a multiple-choice setup question.
type SetupOption struct {
	Key   string
	Label string
	Value float64
}

// SetupQuestion is asked during interactive style setup. Questions without
// options take free text.
type SetupQuestion struct {
	Field   string
	Prompt  string
	Options []SetupOption
}

// SetupAnswer is one external reply. Declined ends the session early.
type SetupAnswer struct {
	Text     string
	Declined bool
}

var setupQuestions = []SetupQuestion{
	{
		Field:  "formality",
		Prompt: "How formal is your typical email?",
		Options: []SetupOption{
			{Key: "casual", Label: "Casual and relaxed", Value: 0.2},
			{Key: "professional", Label: "Professional but friendly", Value: 0.6},
			{Key: "formal", Label: "Formal and traditional", Value: 0.9},
		},
	},
	{
		Field:  "directness",
		Prompt: "How do you usually phrase requests?",
		Options: []SetupOption{
			{Key: "direct", Label: "Very direct", Value: 0.9},
			{Key: "moderate", Label: "Moderately direct", Value: 0.6},
			{Key: "indirect", Label: "Indirect and diplomatic", Value: 0.3},
		},
	},
	{
		Field:  "complexity",
		Prompt: "How detailed are your emails?",
		Options: []SetupOption{
			{Key: "simple", Label: "Short and simple", Value: 0.25},
			{Key: "moderate", Label: "Moderate", Value: 0.5},
			{Key: "detailed", Label: "Long and detailed", Value: 0.8},
		},
	},
	{Field: "greeting", Prompt: "How do you usually greet people? (e.g. Hi, Dear, Hello)"},
	{Field: "closing", Prompt: "How do you usually sign off? (e.g. Best regards, Cheers)"},
}

// SetupState is the in-memory state of an interactive setup session. It is
// a value: Step returns a new state and leaves the old one usable.
type SetupState struct {
	next      int
	done      bool
	overrides Overrides
}

// BeginSetup starts a session at the first question.
func BeginSetup() SetupState {
	return SetupState{}
}

// Done reports whether no further question will be asked.
func (s SetupState) Done() bool {
	return s.done || s.next >= len(setupQuestions)
}

// Question returns the pending question.
func (s SetupState) Question() (SetupQuestion, bool) {
	if s.Done() {
		return SetupQuestion{}, false
	}
	return setupQuestions[s.next], true
}

// Overrides returns the preferences collected so far.
func (s SetupState) Overrides() Overrides {
	return s.overrides
}

// StepSetup consumes one answer. Unrecognized or blank answers skip the
// question.
func StepSetup(s SetupState, ans SetupAnswer) SetupState {
	if s.Done() {
		return s
	}
	if ans.Declined {
		s.done = true
		return s
	}
	q := setupQuestions[s.next]
	s.next++

	text := strings.TrimSpace(ans.Text)
	if text == "" {
		return s
	}
	if len(q.Options) == 0 {
		switch q.Field {
		case "greeting":
			s.overrides.Greeting = text
		case "closing":
			s.overrides.Closing = text
		}
		return s
	}

	opt, ok := pickOption(q.Options, text)
	if !ok {
		return s
	}
	v := opt.Value
	switch q.Field {
	case "formality":
		s.overrides.Formality = &v
	case "directness":
		s.overrides.Directness = &v
	case "complexity":
		s.overrides.Complexity = &v
	}
	return s
}

func pickOption(opts []SetupOption, text string) (SetupOption, bool) {
	if n, err := strconv.Atoi(text); err == nil {
		if n >= 1 && n <= len(opts) {
			return opts[n-1], true
		}
		return SetupOption{}, false
	}
	for _, o := range opts {
		if strings.EqualFold(text, o.Key) || strings.EqualFold(text, o.Label) {
			return o, true
		}
	}
	return SetupOption{}, false
}

// FinishSetup folds the collected preferences into p.
func (a *Analyzer) FinishSetup(p Profile, s SetupState) Profile {
	return ApplyOverrides(p, s.overrides, a.opts.MaxPhrases)
}
