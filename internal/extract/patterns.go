package extract

import "regexp"

// Pattern extracts one field from text and reports whether it matched.
// A match that cleans to nothing still counts, so later patterns are not
// consulted.
type Pattern func(text string) (string, bool)

// Capture returns a Pattern yielding submatch group of re.
func Capture(re *regexp.Regexp, group int) Pattern {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil || group >= len(m) {
			return "", false
		}
		return m[group], true
	}
}

// Group1 is Capture(regexp.MustCompile(expr), 1).
func Group1(expr string) Pattern {
	return Capture(regexp.MustCompile(expr), 1)
}

// FirstMatch evaluates patterns left to right and returns the first match.
func FirstMatch(text string, patterns ...Pattern) (string, bool) {
	for _, p := range patterns {
		if v, ok := p(text); ok {
			return v, true
		}
	}
	return "", false
}

// field runs the chain and cleans the winner.
func field(text string, patterns ...Pattern) *string {
	v, ok := FirstMatch(text, patterns...)
	if !ok {
		return nil
	}
	return clean(v)
}

// raw runs the chain and keeps the winner verbatim.
func raw(text string, patterns ...Pattern) *string {
	v, ok := FirstMatch(text, patterns...)
	if !ok {
		return nil
	}
	return &v
}
