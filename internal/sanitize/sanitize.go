// Package sanitize scrubs user-submitted text before it is stored or
// rendered. Poll questions and option texts are arbitrary strings typed by
// anonymous visitors, so everything that looks like markup is stripped with
// bluemonday's strict policy. The package also validates voter email
// addresses at the syntax level.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every HTML element and attribute, keeping only the text
// content (special characters come back entity-escaped).
var strict = bluemonday.StrictPolicy()

// emailRE accepts the usual mailbox@domain.tld shape. This is a cheap
// syntax gate; real ownership is proven by the confirmation email.
var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Text trims s, clips it to maxRunes, and strips all HTML markup.
// It returns "" for blank input and never returns markup.
func Text(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if maxRunes > 0 {
		if r := []rune(s); len(r) > maxRunes {
			s = string(r[:maxRunes])
		}
	}
	return strings.TrimSpace(strict.Sanitize(s))
}

// NormalizeEmail lowercases and trims an email address so that the
// (poll, email) uniqueness check is case-insensitive.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidEmail reports whether s looks like a deliverable email address.
func ValidEmail(s string) bool {
	return emailRE.MatchString(s)
}
