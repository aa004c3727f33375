package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is the base slug used when a name has no alphanumeric content.
const Fallback = "item"

// MaxBaseLength caps the base slug so a numeric suffix always fits in the
// narrowest slug column (100 characters).
const MaxBaseLength = 80

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	apostrophes     = regexp.MustCompile(`['’]`)
	validSlug       = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Letters without an ASCII decomposition under NFKD.
var letterReplacer = strings.NewReplacer(
	"ı", "i", "ß", "ss", "æ", "ae", "œ", "oe", "ø", "o", "đ", "d", "ł", "l", "þ", "th",
)

// Generate creates a URL-friendly slug from the given name. Accented letters
// are folded to ASCII, every run of other characters becomes a single hyphen.
//
// Examples:
//   - "Home & Garden" → "home-garden"
//   - "Çocuk Ürünleri" → "cocuk-urunleri"
//   - "Men's   Shoes!" → "mens-shoes"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = letterReplacer.Replace(s)
	s = fold(s)
	s = apostrophes.ReplaceAllString(s, "")
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Assign derives a slug from name that is free according to exists. The base
// slug is returned unchanged when free, otherwise the first free candidate of
// base-1, base-2, ... is returned. Names without alphanumerics use Fallback.
//
// exists must describe a finite set, which guarantees termination. When the
// caller is renaming an existing record it must leave that record's own slug
// out of the set.
func Assign(name string, exists func(string) bool) string {
	base := Base(name)
	if !exists(base) {
		return base
	}
	for n := 1; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !exists(candidate) {
			return candidate
		}
	}
}

// Base returns the unsuffixed slug Assign starts from: the generated slug cut
// to MaxBaseLength, or Fallback when nothing remains. Callers use it to load
// the collision set for a name.
func Base(name string) string {
	base := Truncate(Generate(name), MaxBaseLength)
	if base == "" {
		return Fallback
	}
	return base
}

// Taken returns an oracle reporting whether a slug is one of the given slugs.
func Taken(slugs ...string) func(string) bool {
	set := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		set[s] = struct{}{}
	}
	return func(s string) bool {
		_, ok := set[s]
		return ok
	}
}

// Valid reports whether s is already in canonical slug form.
func Valid(s string) bool {
	return validSlug.MatchString(s)
}

// Truncate shortens s to at most n bytes without leaving a trailing hyphen.
// Slugs are ASCII so byte and rune length agree.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimRight(s[:n], "-")
}
