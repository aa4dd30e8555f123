package tournament

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9-]+`)
	slugDashes       = regexp.MustCompile(`-{2,}`)
)

// Slugify turns a display name into a stable identifier.
func Slugify(name string) string {
	value := strings.ToLower(strings.TrimSpace(name))
	value = strings.Join(strings.Fields(value), "-")
	value = slugInvalidChars.ReplaceAllString(value, "")
	value = slugDashes.ReplaceAllString(value, "-")
	return strings.Trim(value, "-")
}

// Initials builds a short name from the first letter of every word.
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(unicode.ToUpper(r))
				break
			}
		}
	}
	return b.String()
}
