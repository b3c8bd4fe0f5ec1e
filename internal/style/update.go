package style

import (
	"log/slog"
	"strings"
)

// Update folds one observation into p with an exponential moving average:
// new = old*(1-rate) + observed*rate. It returns a new profile and never
// modifies p. SampleCount grows by exactly one.
func Update(p Profile, obs Observation, rate float64, maxPhrases int) Profile {
	rate = clamp(rate)
	out := p.Clone()

	out.Formality = blend(p.Formality, obs.Formality, rate)
	out.Complexity = blend(p.Complexity, obs.Complexity, rate)
	out.Directness = blend(p.Directness, obs.Directness, rate)
	out.SampleCount = p.SampleCount + 1
	out.Phrases = mergePhrases(out.Phrases, obs.Phrases, out.SampleCount, 1, maxPhrases)
	return out
}

// Update folds obs into p using the analyzer's learning rate.
func (a *Analyzer) Update(p Profile, obs Observation) Profile {
	return Update(p, obs, a.opts.LearningRate, a.opts.MaxPhrases)
}

func blend(old, observed, rate float64) float64 {
	if rate == 1 {
		return clamp(observed)
	}
	return clamp(clamp(old)*(1-rate) + clamp(observed)*rate)
}

// LearnReport summarizes a batch learning run.
type LearnReport struct {
	Applied        int   `json:"applied"`
	Skipped        int   `json:"skipped"`
	SkippedIndexes []int `json:"skipped_indexes,omitempty"`
}

// LearnFromEmails applies Update over samples in order. Empty or unparseable
// samples are skipped without touching the profile, so SampleCount grows by
// the number of samples actually applied.
func (a *Analyzer) LearnFromEmails(p Profile, samples []string) (Profile, LearnReport) {
	var report LearnReport
	out := p.Clone()
	for i, text := range samples {
		obs := a.ExtractFeatures(text)
		if obs.Empty {
			report.Skipped++
			report.SkippedIndexes = append(report.SkippedIndexes, i)
			slog.Debug("skipping sample without usable text", "index", i)
			continue
		}
		out = a.Update(out, obs)
		report.Applied++
	}
	return out, report
}

// Overrides are explicit preferences from the interactive setup. Nil scores
// and empty phrases are left untouched.
type Overrides struct {
	Formality  *float64
	Complexity *float64
	Directness *float64
	Greeting   string
	Closing    string
}

// Empty reports whether no preference was given.
func (o Overrides) Empty() bool {
	return o.Formality == nil && o.Complexity == nil && o.Directness == nil &&
		strings.TrimSpace(o.Greeting) == "" && strings.TrimSpace(o.Closing) == ""
}

// ApplyOverrides folds explicit preferences with weight 1.0. Answered scores
// are assigned outright; greeting and closing are recorded with a count that
// ranks them above any learned phrase of the same kind. A non-empty set of
// overrides counts as one sample.
func ApplyOverrides(p Profile, ov Overrides, maxPhrases int) Profile {
	if ov.Empty() {
		return p.Clone()
	}
	out := p.Clone()
	if ov.Formality != nil {
		out.Formality = blend(out.Formality, *ov.Formality, 1)
	}
	if ov.Complexity != nil {
		out.Complexity = blend(out.Complexity, *ov.Complexity, 1)
	}
	if ov.Directness != nil {
		out.Directness = blend(out.Directness, *ov.Directness, 1)
	}
	out.SampleCount = p.SampleCount + 1

	var cands []PhraseCandidate
	if g := strings.TrimSpace(ov.Greeting); g != "" {
		cands = append(cands, PhraseCandidate{Text: g, Kind: Salutation})
	}
	if c := strings.TrimSpace(ov.Closing); c != "" {
		cands = append(cands, PhraseCandidate{Text: trailPunctRe.ReplaceAllString(c, ""), Kind: Closing})
	}
	boost := 1
	for _, ph := range out.Phrases {
		if ph.Count >= boost {
			boost = ph.Count + 1
		}
	}
	out.Phrases = mergePhrases(out.Phrases, cands, out.SampleCount, boost, maxPhrases)
	return out
}

// mergePhrases adds candidates to existing phrases, then evicts down to limit:
// least frequent first, then oldest, then by text. existing must be owned by
// the caller.
func mergePhrases(existing []Phrase, cands []PhraseCandidate, seen, weight, limit int) []Phrase {
	for _, c := range cands {
		found := false
		for i := range existing {
			if existing[i].Kind == c.Kind && strings.EqualFold(existing[i].Text, c.Text) {
				existing[i].Count += weight
				existing[i].LastSeen = seen
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, Phrase{Text: c.Text, Kind: c.Kind, Count: weight, LastSeen: seen})
		}
	}

	sorted := sortedPhrases(existing)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
