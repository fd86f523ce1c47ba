// Package normalize canonicalizes free text before it is chunked for
// embedding or used as a retrieval query.
package normalize

import "regexp"

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	doubleQuotesRe = regexp.MustCompile("[“”„«»]")
	singleQuotesRe = regexp.MustCompile("[‘’‚`´]")
	disallowedRe   = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:()"'-]`)
)

// Text collapses runs of whitespace to a single space, maps curly quote
// variants to their straight ASCII forms, strips every character that is
// not a letter, digit, whitespace, or basic punctuation, and trims the
// result. Idempotent: Text(Text(s)) == Text(s).
func Text(s string) string {
	s = doubleQuotesRe.ReplaceAllString(s, `"`)
	s = singleQuotesRe.ReplaceAllString(s, "'")
	s = disallowedRe.ReplaceAllString(s, "")
	// Collapse after stripping: removed characters may leave adjacent
	// spaces behind, and collapsing last keeps the function idempotent.
	s = whitespaceRe.ReplaceAllString(s, " ")
	return trimSpaces(s)
}

func trimSpaces(s string) string {
	start := 0
	for start < len(s) && s[start] == ' ' {
		start++
	}
	end := len(s)
	for end > start && s[end-1] == ' ' {
		end--
	}
	return s[start:end]
}
