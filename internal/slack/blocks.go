package slack

import (
	"fmt"
	"unicode/utf8"

	"github.com/godeye/godeye/internal/assistant"
	"github.com/godeye/godeye/internal/query"
	"github.com/godeye/godeye/internal/summarize"
)

// Slack rejects section text longer than this.
const maxSectionText = 3000

type Block struct {
	Type string `json:"type"`
	Text *Text  `json:"text,omitempty"`
}

type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func section(text string) Block {
	return Block{Type: "section", Text: &Text{Type: "mrkdwn", Text: truncate(text, maxSectionText)}}
}

// AnswerBlocks renders an answer as error, analysis, chart, result table and SQL sections.
func AnswerBlocks(answer assistant.Answer, tableRows int) []Block {
	if answer.Failed() {
		blocks := []Block{section(":x: *Error:*\n" + answer.ErrorMessage())}
		if answer.SQL != "" {
			blocks = append(blocks, section("*Last SQL attempt:*\n```"+answer.SQL+"```"))
		}
		return blocks
	}
	if len(answer.Records) == 0 {
		blocks := []Block{section("_No results found._")}
		if answer.SQL != "" {
			blocks = append(blocks, section("*SQL QUERY:*\n```"+answer.SQL+"```"))
		}
		return blocks
	}

	blocks := make([]Block, 0, 4)
	if answer.Explanation != "" {
		blocks = append(blocks, section("*Analysis:*\n"+answer.Explanation))
	}
	if answer.Chart != nil {
		blocks = append(blocks, section(fmt.Sprintf("*Suggested chart:* %s (`%s` by `%s`)", answer.ChartTitle, answer.Chart.Y, answer.Chart.X)))
	}
	table := summarize.MarkdownTable(query.Result{Columns: answer.Columns, Records: answer.Records}, tableRows)
	blocks = append(blocks, section("\n```"+table+"```"))
	blocks = append(blocks, section("*SQL QUERY:*\n```"+answer.SQL+"```"))
	return blocks
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	const marker = "…"
	runes := []rune(text)
	return string(runes[:limit-1]) + marker
}
