package intent

import "strings"

// Urgency is how time-sensitive the request reads.
type Urgency string

const (
	UrgencyNone   Urgency = "none"
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

var urgencyMarkers = []struct {
	level   Urgency
	phrases []string
}{
	{UrgencyLow, []string{"no rush", "whenever", "when you can", "no hurry"}},
	{UrgencyHigh, []string{"urgent", "asap", "immediately", "right away", "emergency", "critical", "today"}},
	{UrgencyMedium, []string{"soon", "this week", "tomorrow", "shortly"}},
}

// DetectUrgency scans text for urgency markers. Low markers are checked
// first.
func DetectUrgency(text string) Urgency {
	toks := tokenRe.FindAllString(strings.ToLower(text), -1)
	for _, m := range urgencyMarkers {
		for _, p := range m.phrases {
			if containsPhrase(toks, strings.Fields(p)) {
				return m.level
			}
		}
	}
	return UrgencyNone
}
