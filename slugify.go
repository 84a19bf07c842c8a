package reflectdb

import (
	"regexp"
	"strings"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)
	edgeScore   = regexp.MustCompile(`^_+|_+$`)
)

// Slugify produces a deterministic, idempotent slug: lowercased,
// non-alphanumeric runs replaced by "_", collapsed, trimmed.
//
// Accented input is first NFKD-normalized (golang.org/x/text) so e.g. "é"
// folds to "e" instead of being dropped as non-alphanumeric, then passed
// through inflect.Underscore (go-openapi/inflect) for word-boundary
// splitting on camelCase/acronym runs before the final cleanup pass.
func Slugify(s string) string {
	folded := stripDiacritics(s)
	underscored := inflect.Underscore(folded)
	lower := strings.ToLower(underscored)
	collapsed := nonAlnumRun.ReplaceAllString(lower, "_")
	return edgeScore.ReplaceAllString(collapsed, "")
}

func stripDiacritics(s string) string {
	var sb strings.Builder
	iter := norm.NFKD.String(s)
	for _, r := range iter {
		if isCombiningMark(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// isCombiningMark reports whether r is a Unicode combining diacritical
// mark left behind by NFKD decomposition.
func isCombiningMark(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
}
