package slug

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSuffix bounds the collision search in Unique.
const maxSuffix = 1000

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Letters that carry no combining mark under NFD and so survive folding.
var letterReplacer = strings.NewReplacer(
	"ı", "i", "ß", "ss", "æ", "ae", "Æ", "ae", "ø", "o", "Ø", "o",
	"đ", "d", "Đ", "d", "ł", "l", "Ł", "l", "œ", "oe", "Œ", "oe", "þ", "th",
)

// Generate creates a URL-friendly slug from the given name. Diacritics are
// folded to their base letters and every run of non-alphanumerics becomes a
// single hyphen.
//
// Examples:
//   - "Kadın Giyim" → "kadin-giyim"
//   - "Crème Brûlée" → "creme-brulee"
//   - "Hello   World!" → "hello-world"
func Generate(name string) string {
	s := letterReplacer.Replace(strings.TrimSpace(name))

	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(folder, s); err == nil {
		s = folded
	}

	s = strings.ToLower(s)
	s = slugRegexp.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Unique returns base when it is free, otherwise the first of base-1, base-2, …
// for which exists reports false.
func Unique(base string, exists func(candidate string) (bool, error)) (string, error) {
	if base == "" {
		return "", fmt.Errorf("slug: empty base")
	}

	candidate := base
	for i := 1; i <= maxSuffix; i++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("slug: no free suffix for %q", base)
}
