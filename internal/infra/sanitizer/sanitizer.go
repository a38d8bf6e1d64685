// Package sanitizer strips markup from user-authored text.
package sanitizer

import (
	"html"
	"strings"

	"threads/internal/domain/service"

	"github.com/microcosm-cc/bluemonday"
)

// textSanitizer removes every tag with bluemonday's strict policy. The policy
// is safe for concurrent use.
type textSanitizer struct {
	policy *bluemonday.Policy
}

// New returns the plain-text sanitizer.
func New() service.Sanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize drops tags and returns the remaining text unescaped, since captions
// and bios are stored and rendered as plain text.
func (s *textSanitizer) Sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}
