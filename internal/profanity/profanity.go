// Package profanity gates user-chosen display names against a fixed denylist.
package profanity

import (
	"regexp"
	"strings"
)

var denylist = []string{
	"fuck", "shit", "bitch", "ass", "damn", "hell", "crap",
	"bastard", "dick", "cock", "pussy", "whore", "slut",
	"nigger", "nigga", "fag", "faggot", "retard", "cunt",
}

var pattern = compile(denylist)

func compile(words []string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// ContainsProfanity reports whether text has a denylisted word on word boundaries.
// Matching is best effort: "assonance" passes, "this is shit" does not.
func ContainsProfanity(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return pattern.MatchString(text)
}
