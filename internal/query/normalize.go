package query

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize prepares text for matching: NFC, Unicode case folding, and
// runs of whitespace collapsed to a single space with the ends trimmed.
//
// A Caser carries state, so a fresh one is built per call; Normalize is
// safe for concurrent use.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return cases.Fold().String(norm.NFC.String(s))
}
