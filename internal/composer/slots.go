package composer

import (
	"regexp"
	"strings"

	"github.com/kalambet/draftsmith/internal/catalog"
)

var slotMarkerRe = regexp.MustCompile(`^\s*\[\[\s*([A-Za-z0-9_]+)\s*\]\]\s*:?\s*$`)

// Slots is the completion output split into template slots. Structured is
// false when no known marker was found and the whole text went to the
// primary slot.
type Slots struct {
	Values     map[string]string
	Structured bool
}

// ParseSlots splits completion text on [[slot]] marker lines. Only markers
// naming an AI slot of t open a section; any other line belongs to the
// current section. Text before the first marker is dropped. Without any
// known marker the trimmed text fills the primary slot.
func ParseSlots(text string, t catalog.Template) Slots {
	known := make(map[string]bool)
	for _, v := range t.AISlots() {
		known[v.Name] = true
	}

	values := make(map[string]string)
	var (
		current string
		buf     []string
	)
	flush := func() {
		if current != "" {
			values[current] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
		buf = buf[:0]
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		if m := slotMarkerRe.FindStringSubmatch(line); m != nil {
			name := strings.ToLower(m[1])
			if known[name] {
				flush()
				current = name
				continue
			}
		}
		buf = append(buf, line)
	}
	flush()

	if len(values) > 0 {
		return Slots{Values: values, Structured: true}
	}

	out := Slots{Values: make(map[string]string)}
	if primary, ok := t.PrimarySlot(); ok {
		out.Values[primary.Name] = strings.TrimSpace(stripFences(text))
	}
	return out
}

func stripFences(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if !strings.HasPrefix(strings.TrimSpace(l), "```") {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
