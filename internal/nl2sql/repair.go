package nl2sql

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const closeMatchCutoff = 0.6

// ClosestColumn returns the candidate most similar to name, if any scores at least 0.6.
// Equal scores go to the lexically greater candidate. Matching is case-sensitive.
func ClosestColumn(name string, candidates []string) (string, bool) {
	target := strings.Split(name, "")
	best := ""
	bestScore := -1.0
	for _, candidate := range candidates {
		matcher := difflib.NewMatcher(strings.Split(candidate, ""), target)
		if matcher.RealQuickRatio() < closeMatchCutoff || matcher.QuickRatio() < closeMatchCutoff {
			continue
		}
		score := matcher.Ratio()
		if score < closeMatchCutoff {
			continue
		}
		if score > bestScore || (score == bestScore && candidate > best) {
			best = candidate
			bestScore = score
		}
	}
	return best, bestScore >= 0
}

// ReplaceColumn rewrites every whole-identifier occurrence of bad to good.
func ReplaceColumn(sqlText, bad, good string) string {
	pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(bad) + `\b`)
	return pattern.ReplaceAllLiteralString(sqlText, good)
}
