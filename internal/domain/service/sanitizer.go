package service

// Sanitizer strips markup from user-authored text before it is stored.
type Sanitizer interface {
	// Sanitize returns text with every tag removed and surrounding space trimmed.
	Sanitize(text string) string
}
