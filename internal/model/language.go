package model

import "strings"

var supportedLanguages = []string{"Python", "Java", "C++", "JavaScript", "Go", "Ruby", "Swift"}

// SupportedLanguages returns the target languages in display order.
func SupportedLanguages() []string {
	out := make([]string, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// CanonicalLanguage matches name case-insensitively and returns its display
// spelling.
func CanonicalLanguage(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, l := range supportedLanguages {
		if strings.EqualFold(l, name) {
			return l, true
		}
	}
	return "", false
}
