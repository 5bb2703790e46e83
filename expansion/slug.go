package expansion

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify lowercases s, folds accented letters to their base form, and joins
// runs of ASCII letters and digits with single hyphens. Everything else is
// dropped. The result depends only on s.
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(strings.TrimSpace(folded))
	var b strings.Builder
	prev := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// ShellSlug builds the identity of a shell from its blueprint id and the
// chosen values in dimension order.
func ShellSlug(blueprintID string, values []string) string {
	parts := make([]string, 0, len(values)+1)
	parts = append(parts, blueprintID)
	parts = append(parts, values...)
	return Slugify(strings.Join(parts, " "))
}
