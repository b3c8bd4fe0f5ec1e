package profile

import (
	"time"

	"github.com/kalambet/draftsmith/internal/storage"
	"github.com/kalambet/draftsmith/internal/style"
)

// RecentLearningLimit is how many learning events a summary carries.
const RecentLearningLimit = 5

// Summary is a profile described for people rather than for the prompt.
type Summary struct {
	UserID      string    `json:"user_id"`
	SampleCount int       `json:"sample_count"`
	Confidence  float64   `json:"confidence"`
	Reliable    bool      `json:"reliable"`
	Formality   string    `json:"formality"`
	Complexity  string    `json:"complexity"`
	Directness  string    `json:"directness"`
	Greeting    string    `json:"greeting,omitempty"`
	Closing     string    `json:"closing,omitempty"`
	Phrases     []string  `json:"common_phrases,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`

	RecentLearning []storage.LearnEvent `json:"recent_learning,omitempty"`
}

// Summarize describes p against the gating options in opts.
func Summarize(p style.Profile, opts style.Options) Summary {
	s := Summary{
		UserID:      p.UserID,
		SampleCount: p.SampleCount,
		Confidence:  p.Confidence(opts.MinEmails),
		Reliable:    opts.Reliable(&p),
		Formality:   level(p.Formality, "casual", "balanced", "formal"),
		Complexity:  level(p.Complexity, "simple", "moderate", "detailed"),
		Directness:  level(p.Directness, "indirect", "balanced", "direct"),
		Phrases:     p.CommonPhrases(),
		UpdatedAt:   p.UpdatedAt,
	}
	s.Greeting, _ = p.TopPhrase(style.Salutation)
	s.Closing, _ = p.TopPhrase(style.Closing)
	return s
}

func level(v float64, low, mid, high string) string {
	switch {
	case v > 0.7:
		return high
	case v < 0.3:
		return low
	}
	return mid
}
