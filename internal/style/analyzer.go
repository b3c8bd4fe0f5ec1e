package style

import (
	"regexp"
	"strings"
)

// PhraseCandidate is a phrase extracted from one email.
type PhraseCandidate struct {
	Text string
	Kind PhraseKind
}

// Observation is the feature set measured on a single email body.
type Observation struct {
	Formality  float64
	Complexity float64
	Directness float64
	Phrases    []PhraseCandidate
	// Empty is set when the text had no usable words. The scores are then
	// neutral and batch learning skips the sample.
	Empty bool
}

// NeutralObservation is what empty or unparseable text yields.
func NeutralObservation() Observation {
	return Observation{Formality: Neutral, Complexity: Neutral, Directness: Neutral, Empty: true}
}

var (
	wordRe       = regexp.MustCompile(`[a-z]+(?:'[a-z]+)*`)
	sentenceRe   = regexp.MustCompile(`[.!?]+|\n\s*\n`)
	headerRe     = regexp.MustCompile(`(?i)^(from|to|cc|bcc|subject|date|sent|reply-to):\s`)
	replySepRe   = regexp.MustCompile(`(?i)^(on .+ wrote:|-{2,}\s*original message\s*-{2,})$`)
	trailPunctRe = regexp.MustCompile(`[\s,.!;:\-]+$`)
)

// Analyzer turns sample emails into observations and folds them into profiles.
type Analyzer struct {
	opts Options
}

// NewAnalyzer creates an Analyzer with the given options.
func NewAnalyzer(opts Options) *Analyzer {
	return &Analyzer{opts: opts}
}

// Options returns the analyzer's configuration.
func (a *Analyzer) Options() Options { return a.opts }

// ExtractFeatures measures formality, complexity, directness and phrase
// candidates on a single email body. The result depends only on text.
func (a *Analyzer) ExtractFeatures(text string) Observation {
	return ExtractFeatures(text)
}

// ExtractFeatures is the stateless form of Analyzer.ExtractFeatures.
func ExtractFeatures(text string) Observation {
	lines := cleanLines(text)
	body := strings.ToLower(strings.Join(lines, "\n"))

	var sentences [][]string
	for _, s := range sentenceRe.Split(body, -1) {
		if toks := wordRe.FindAllString(s, -1); len(toks) > 0 {
			sentences = append(sentences, toks)
		}
	}
	if len(sentences) == 0 {
		return NeutralObservation()
	}

	var (
		words            int
		letters          int
		longWords        int
		contractions     int
		formal, informal int
		direct, hedge    int
		firstDirect      = -1
	)
	for i, toks := range sentences {
		for _, w := range toks {
			n := len(strings.ReplaceAll(w, "'", ""))
			words++
			letters += n
			if n >= 7 {
				longWords++
			}
			if isContraction(w) {
				contractions++
			}
		}
		formal += countPhrases(toks, formalMarkers)
		informal += countPhrases(toks, informalMarkers)
		d := countPhrases(toks, directPhrases)
		if d > 0 && firstDirect < 0 {
			firstDirect = i
		}
		direct += d
		hedge += countPhrases(toks, hedgingPhrases)
	}

	marker := Neutral
	if formal+informal > 0 {
		marker = float64(formal) / float64(formal+informal)
	}
	avgWordLen := float64(letters) / float64(words)
	wordLenScore := clamp((avgWordLen - 3) / 3)
	contractionScore := clamp(10 * float64(contractions) / float64(words))
	formality := clamp(0.4*marker + 0.3*wordLenScore + 0.3*(1-contractionScore))

	avgSentence := float64(words) / float64(len(sentences))
	longRatio := float64(longWords) / float64(words)
	complexity := clamp(0.6*clamp(avgSentence/25) + 0.4*clamp(longRatio/0.3))

	directness := Neutral
	if direct+hedge > 0 {
		directness = float64(direct) / float64(direct+hedge)
	}
	if firstDirect >= 0 && firstDirect < 2 {
		directness += 0.1
	}
	directness = clamp(directness)

	return Observation{
		Formality:  formality,
		Complexity: complexity,
		Directness: directness,
		Phrases:    extractPhrases(lines),
	}
}

// cleanLines drops headers, quoted text and everything after a reply separator.
func cleanLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "’", "'")
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if replySepRe.MatchString(line) {
			break
		}
		if strings.HasPrefix(line, ">") || headerRe.MatchString(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func isContraction(w string) bool {
	if contractionWords[w] {
		return true
	}
	for _, suf := range contractionSuffixes {
		if strings.HasSuffix(w, suf) && len(w) > len(suf) {
			return true
		}
	}
	return false
}

// countPhrases counts occurrences of each phrase as a contiguous token run.
func countPhrases(toks []string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		pt := strings.Fields(p)
		for i := 0; i+len(pt) <= len(toks); i++ {
			if tokensEqual(toks[i:i+len(pt)], pt) {
				n++
			}
		}
	}
	return n
}

func tokensEqual(a, b []string) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hasTokenPrefix(toks, prefix []string) bool {
	return len(toks) >= len(prefix) && tokensEqual(toks[:len(prefix)], prefix)
}

const closingWindow = 5

func extractPhrases(lines []string) []PhraseCandidate {
	var nonEmpty []string
	for _, l := range lines {
		if l != "" {
			nonEmpty = append(nonEmpty, l)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}

	var out []PhraseCandidate
	first := wordRe.FindAllString(strings.ToLower(nonEmpty[0]), -1)
	for _, p := range salutationPatterns {
		if hasTokenPrefix(first, strings.Fields(p.match)) {
			out = append(out, PhraseCandidate{Text: p.display, Kind: Salutation})
			break
		}
	}

	start := len(nonEmpty) - closingWindow
	if start < 1 {
		start = 1
	}
closing:
	for i := len(nonEmpty) - 1; i >= start; i-- {
		norm := strings.ToLower(trailPunctRe.ReplaceAllString(nonEmpty[i], ""))
		for _, p := range closingPatterns {
			if norm == p.match {
				out = append(out, PhraseCandidate{Text: p.display, Kind: Closing})
				break closing
			}
		}
	}

	all := wordRe.FindAllString(strings.ToLower(strings.Join(nonEmpty, " ")), -1)
	for _, p := range transitionPatterns {
		if countPhrases(all, []string{p.match}) > 0 {
			out = append(out, PhraseCandidate{Text: p.display, Kind: Transition})
		}
	}
	return out
}
