package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	yearPattern     = regexp.MustCompile(`\b(20\d{2}|19\d{2})\b`)
	twelveMonths    = regexp.MustCompile(`(?i)(last|recent|previous)\s*12\s*months?`)
	sixMonths       = regexp.MustCompile(`(?i)(last|recent|previous)\s*6\s*months?`)
	sixMonthsBefore = regexp.MustCompile(`(?i)6 months before`)
	thisOrLastYear  = regexp.MustCompile(`(?i)\b(this|last|previous)\s+year\b`)
)

// FutureYears returns the years mentioned in text that are newer than the dataset.
func FutureYears(text string, latest time.Time) []int {
	var out []int
	for _, match := range yearPattern.FindAllString(text, -1) {
		year, err := strconv.Atoi(match)
		if err != nil {
			continue
		}
		if year > latest.Year() {
			out = append(out, year)
		}
	}
	return out
}

// AnnotateRelativeTime appends notes that pin relative expressions to the dataset's latest date.
func AnnotateRelativeTime(text string, latest time.Time) string {
	latestDay := latest.Format(time.DateOnly)
	annotated := text

	if twelveMonths.MatchString(text) {
		annotated += fmt.Sprintf("\n# NOTE: The latest order data in the dataset is from %s. "+
			"Use the last 12 months up to this date in your SQL query, not the current date.", latestDay)
	}
	if sixMonths.MatchString(text) || sixMonthsBefore.MatchString(text) {
		recentStart := latest.AddDate(0, -6, 0)
		priorStart := latest.AddDate(0, -12, 0)
		priorEnd := recentStart.AddDate(0, 0, -1)
		annotated += fmt.Sprintf("\n# NOTE: The latest order data in the dataset is from %s. "+
			"For 'last 6 months', use the period from %s to %s. "+
			"For 'the 6 months before that', use the period from %s to %s. "+
			"Do NOT use NOW(), CURRENT_DATE, or intervals based on today.",
			latestDay,
			recentStart.Format(time.DateOnly), latestDay,
			priorStart.Format(time.DateOnly), priorEnd.Format(time.DateOnly))
	}
	if thisOrLastYear.MatchString(text) {
		year := latest.Year()
		annotated += fmt.Sprintf("\n# NOTE: The latest year in the dataset is %d. "+
			"Treat %d as 'this year' and %d as 'last year' in your SQL query. "+
			"Do NOT use CURRENT_DATE or EXTRACT(YEAR FROM CURRENT_DATE).", year, year, year-1)
	}
	return annotated
}
