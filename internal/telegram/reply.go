package telegram

import (
	"fmt"
	"strings"

	"github.com/godeye/godeye/internal/assistant"
	"github.com/godeye/godeye/internal/summarize"
)

const (
	DefaultReplyLimit = 2000

	invalidQuestionReply = "Please ask a valid question."
	noDataReply          = "There is no data available in the dataset for this specific request."
	shortenedMarker      = "...result is shortened..."
)

func futureYearReply(year int) string {
	return fmt.Sprintf("Sorry, the dataset does not have data more recent than %d.", year)
}

// Reply renders an answer as plain text: the explanation followed by as many rows as fit in limit.
func Reply(answer assistant.Answer, limit int) string {
	if answer.Failed() {
		return answer.ErrorMessage()
	}
	if len(answer.Records) == 0 {
		return noDataReply
	}
	if limit <= 0 {
		limit = DefaultReplyLimit
	}

	var rows strings.Builder
	for _, record := range answer.Records {
		values := record.Values()
		cells := make([]string, len(values))
		for i, value := range values {
			cells[i] = summarize.FormatValue(value)
		}
		line := "(" + strings.Join(cells, ", ") + ")\n"
		if rows.Len()+len(line) > limit {
			rows.WriteString(shortenedMarker + "\n")
			break
		}
		rows.WriteString(line)
	}

	if answer.Explanation == "" {
		return strings.TrimRight(rows.String(), "\n")
	}
	return answer.Explanation + "\n\n" + strings.TrimRight(rows.String(), "\n")
}
