package composer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/draftsmith/internal/catalog"
	"github.com/kalambet/draftsmith/internal/intent"
	"github.com/kalambet/draftsmith/internal/style"
)

const defaultMaxPhrases = 5

// Options configures prompt construction.
type Options struct {
	Style      style.Options
	MaxPhrases int // phrases sampled into the style block
}

// Composer assembles generation prompts from the request, the user's style
// profile and the chosen template.
type Composer struct {
	opts Options
}

// New creates a Composer. If opts.MaxPhrases <= 0, the default (5) is used.
func New(opts Options) *Composer {
	if opts.MaxPhrases <= 0 {
		opts.MaxPhrases = defaultMaxPhrases
	}
	return &Composer{opts: opts}
}

// Input is everything a prompt is built from. Profile may be nil.
type Input struct {
	Category  string
	Profile   *style.Profile
	Topic     string
	Recipient string
	Context   string
	Urgency   intent.Urgency
	Template  catalog.Template
}

// Prompt is the assembled prompt text. StyleAdapted reports whether the
// writing style block was included; Slots lists the AI slots requested.
type Prompt struct {
	Text         string
	StyleAdapted bool
	Slots        []string
}

// Build assembles, in order, the instructions for the category, the style
// block when the profile is reliable, the request verbatim and the output
// format for the template's AI slots. Scores are only ever rendered as
// qualitative directives.
func (c *Composer) Build(in Input) Prompt {
	var sb strings.Builder

	sb.WriteString("[Instructions]\n")
	sb.WriteString(instructionFor(in.Category))
	sb.WriteString("\nWrite only the requested sections. Do not add a greeting, a closing or a signature; they are added separately.\n")

	adapted := c.opts.Style.Reliable(in.Profile)
	if adapted {
		sb.WriteString("\n[Writing Style]\n")
		for _, d := range styleDirectives(*in.Profile) {
			sb.WriteString("- ")
			sb.WriteString(d)
			sb.WriteString("\n")
		}
		if phrases := samplePhrases(*in.Profile, c.opts.MaxPhrases); len(phrases) > 0 {
			sb.WriteString("- Phrases this writer often uses: ")
			sb.WriteString(strings.Join(quoteAll(phrases), ", "))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n[Request]\n")
	if in.Topic != "" {
		fmt.Fprintf(&sb, "Topic: %s\n", in.Topic)
	}
	if in.Recipient != "" {
		fmt.Fprintf(&sb, "Recipient: %s\n", in.Recipient)
	}
	if in.Context != "" {
		fmt.Fprintf(&sb, "Context: %s\n", in.Context)
	}
	if line := urgencyLine(in.Urgency); line != "" {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	slots := in.Template.AISlots()
	names := make([]string, 0, len(slots))
	sb.WriteString("\n[Output Format]\n")
	sb.WriteString("Reply with each section below, starting every section with its marker alone on a line:\n")
	for _, v := range slots {
		names = append(names, v.Name)
		fmt.Fprintf(&sb, "\n[[%s]]\n", v.Name)
		desc := v.Description
		if desc == "" {
			desc = "Text for " + strings.ReplaceAll(v.Name, "_", " ") + "."
		}
		if v.Optional {
			desc += " (may be left empty)"
		}
		sb.WriteString(desc)
		sb.WriteString("\n")
	}

	text := sb.String()
	slog.Debug("prompt built", "category", in.Category, "template", in.Template.ID,
		"style_adapted", adapted, "est_tokens", EstimateTokens(text))
	return Prompt{Text: text, StyleAdapted: adapted, Slots: names}
}

var instructions = map[string]string{
	catalog.BusinessFormal:  "You are drafting a formal business email. Keep the tone professional, courteous and precise.",
	catalog.BusinessInquiry: "You are drafting a business email that asks for information. Be clear about what is needed and why.",
	catalog.CasualFriendly:  "You are drafting a friendly personal email. Keep the tone warm and relaxed.",
	catalog.CasualCheckIn:   "You are drafting a short check-in email. Keep it light and genuinely interested.",
	catalog.SalesPersuasive: "You are drafting a persuasive sales email. Lead with the recipient's benefit and keep it concise.",
	catalog.SalesFollowUp:   "You are drafting a sales follow-up email. Refer back to the earlier contact and make the next step easy.",
}

func instructionFor(category string) string {
	if s, ok := instructions[category]; ok {
		return s
	}
	return fmt.Sprintf("You are drafting a %s email.", strings.ReplaceAll(category, "_", " "))
}

func styleDirectives(p style.Profile) []string {
	var out []string
	switch {
	case p.Formality > 0.7:
		out = append(out, "Use formal, professional language.")
	case p.Formality < 0.3:
		out = append(out, "Use casual, conversational language; contractions are fine.")
	default:
		out = append(out, "Use a neutral, friendly-professional register.")
	}
	switch {
	case p.Complexity > 0.7:
		out = append(out, "Detailed, well-developed sentences are welcome.")
	case p.Complexity < 0.3:
		out = append(out, "Keep sentences short and words simple.")
	default:
		out = append(out, "Use moderately sized sentences.")
	}
	switch {
	case p.Directness > 0.7:
		out = append(out, "Be direct and get to the point quickly.")
	case p.Directness < 0.3:
		out = append(out, "Be polite and indirect; soften requests.")
	default:
		out = append(out, "Balance directness with courtesy.")
	}
	return out
}

func samplePhrases(p style.Profile, n int) []string {
	all := p.CommonPhrases()
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}

func urgencyLine(u intent.Urgency) string {
	switch u {
	case intent.UrgencyHigh:
		return "Urgency: this is time-sensitive, ask for a prompt reply."
	case intent.UrgencyMedium:
		return "Urgency: a reply in the next few days would help."
	case intent.UrgencyLow:
		return "Urgency: there is no rush, leave the timing open."
	}
	return ""
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
