package nl2sql

import (
	"regexp"
	"strings"
)

var codeFence = regexp.MustCompile("(?im)^```(?:sql)?|```$")

// StripCodeFences removes markdown fences, optionally tagged sql, at the start or end of any line.
func StripCodeFences(text string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
}
