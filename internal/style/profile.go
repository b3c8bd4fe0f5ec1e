package style

import (
	"sort"
	"time"
)

// Neutral is the starting value of every score on a fresh profile.
const Neutral = 0.5

// PhraseKind tells where in an email a phrase was observed.
type PhraseKind string

const (
	Salutation PhraseKind = "salutation"
	Closing    PhraseKind = "closing"
	Transition PhraseKind = "transition"
)

// Phrase is a salutation, closing, or transition the user tends to write.
// LastSeen is the sample ordinal (SampleCount after the fold) at which the
// phrase was last observed; it drives eviction together with Count.
type Phrase struct {
	Text     string     `json:"text"`
	Kind     PhraseKind `json:"kind"`
	Count    int        `json:"count"`
	LastSeen int        `json:"last_seen"`
}

// Profile holds the learned writing-style parameters for one user.
// All scores stay within [0,1].
type Profile struct {
	UserID      string    `json:"user_id"`
	Formality   float64   `json:"formality"`
	Complexity  float64   `json:"complexity"`
	Directness  float64   `json:"directness"`
	Phrases     []Phrase  `json:"common_phrases"`
	SampleCount int       `json:"sample_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProfile returns a profile with neutral scores and no samples.
func NewProfile(userID string) Profile {
	return Profile{
		UserID:     userID,
		Formality:  Neutral,
		Complexity: Neutral,
		Directness: Neutral,
	}
}

// Confidence is min(1, SampleCount/minEmails). It depends on nothing but
// the sample count.
func (p Profile) Confidence(minEmails int) float64 {
	if minEmails <= 0 {
		minEmails = 1
	}
	if p.SampleCount <= 0 {
		return 0
	}
	c := float64(p.SampleCount) / float64(minEmails)
	if c > 1 {
		return 1
	}
	return c
}

// CommonPhrases returns phrase texts ordered by count, then recency, then text.
func (p Profile) CommonPhrases() []string {
	sorted := sortedPhrases(p.Phrases)
	out := make([]string, len(sorted))
	for i, ph := range sorted {
		out[i] = ph.Text
	}
	return out
}

// TopPhrase returns the most used phrase of the given kind.
func (p Profile) TopPhrase(kind PhraseKind) (string, bool) {
	for _, ph := range sortedPhrases(p.Phrases) {
		if ph.Kind == kind {
			return ph.Text, true
		}
	}
	return "", false
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	cp := p
	if p.Phrases != nil {
		cp.Phrases = make([]Phrase, len(p.Phrases))
		copy(cp.Phrases, p.Phrases)
	}
	return cp
}

func sortedPhrases(in []Phrase) []Phrase {
	out := make([]Phrase, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].LastSeen != out[j].LastSeen {
			return out[i].LastSeen > out[j].LastSeen
		}
		return out[i].Text < out[j].Text
	})
	return out
}

// Options carries the learning and gating parameters.
type Options struct {
	LearningRate        float64
	MinEmails           int
	ConfidenceThreshold float64
	MaxPhrases          int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		LearningRate:        0.3,
		MinEmails:           5,
		ConfidenceThreshold: 0.9,
		MaxPhrases:          20,
	}
}

// Reliable reports whether p has enough samples behind it to steer
// generation. A nil or empty profile is never reliable, and neither is one
// with fewer than MinEmails samples, whatever the threshold.
func (o Options) Reliable(p *Profile) bool {
	if p == nil || p.SampleCount <= 0 || p.SampleCount < o.MinEmails {
		return false
	}
	return p.Confidence(o.MinEmails) >= o.ConfidenceThreshold
}

func clamp(v float64) float64 {
	switch {
	case v != v: // NaN
		return Neutral
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
