package generator

import (
	"net/mail"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RecipientName derives a display name from a recipient string. Full
// addresses ("Jane Doe <jane@acme.com>") keep their display name; bare
// addresses are turned into a name from the local part, so
// "jane.doe@acme.com" becomes "Jane Doe". Anything else is returned trimmed.
func RecipientName(recipient string) string {
	r := strings.TrimSpace(recipient)
	if r == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(r); err == nil {
		if addr.Name != "" {
			return addr.Name
		}
		r = addr.Address
	}
	at := strings.IndexByte(r, '@')
	if at < 0 {
		return r
	}
	local := r[:at]
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}
	local = strings.Map(func(c rune) rune {
		switch c {
		case '.', '_', '-':
			return ' '
		}
		return c
	}, local)
	local = strings.Join(strings.Fields(local), " ")
	if local == "" {
		return ""
	}
	// Casers carry state and are not shared between goroutines.
	return cases.Title(language.English).String(local)
}
