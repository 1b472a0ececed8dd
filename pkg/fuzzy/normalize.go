// Package fuzzy provides string normalization and relevance scoring for
// matching free-text queries against track and album metadata.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
	"golang.org/x/text/unicode/norm"
)

var (
	featRegex       = regexp.MustCompile(`(?i)\(feat\..*?\)|\(featuring.*?\)`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize strips "(feat. ...)" and "(featuring ...)" annotations, collapses
// whitespace runs to single spaces, trims and lower-cases. Idempotent.
func (n *Normalizer) Normalize(s string) string {
	s = featRegex.ReplaceAllString(s, "")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return strings.ToLower(s)
}

// Similarity returns a Levenshtein ratio in [0.0, 1.0]. Identical strings
// score 1.0, an empty string against a non-empty one scores 0.0, and the
// metric is symmetric. Diacritics are folded before measuring so that
// "Björk" and "Bjork" compare as equal.
func (n *Normalizer) Similarity(s1, s2 string) float64 {
	s1 = foldDiacritics(s1)
	s2 = foldDiacritics(s2)

	if s1 == s2 {
		return 1.0
	}

	total := len(s1) + len(s2)
	if total == 0 {
		return 1.0
	}

	// Substitutions cost 2 so the ratio matches the classic
	// (lensum - distance) / lensum formulation.
	dist := smetrics.WagnerFischer(s1, s2, 1, 1, 2)

	ratio := float64(total-dist) / float64(total)
	if ratio < 0 {
		ratio = 0
	}
	return ratio
}

func foldDiacritics(s string) string {
	s = norm.NFKD.String(s)

	var result strings.Builder
	for _, r := range s {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
