package alias

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalize returns the form keys and aliases are compared in: NFKC,
// width-folded, case-folded, with surrounding space and the separators
// '_', '-', '.' and ' ' removed. "Reply_Suggestion", "replySuggestion" and
// "ＲＥＰＬＹ－ＳＵＧＧＥＳＴＩＯＮ" all normalize to "replysuggestion".
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = width.Fold.String(s)
	// A Caser carries state, so each call gets its own.
	s = cases.Fold().String(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}

// Similarity returns 1 - levenshtein(a, b)/max(len(a), len(b)) over runes of
// the normalized forms, in [0, 1]. Two empty strings are identical.
func Similarity(a, b string) float64 {
	return similarityNormalized(Normalize(a), Normalize(b))
}

func similarityNormalized(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
