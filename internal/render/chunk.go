// Package render turns resolved orders and tracking results into chat-ready
// messages that fit the message budget.
package render

import (
	"strings"
)

// DefaultBudget is the largest message emitted, in runes. It sits well below
// Telegram's 4096 limit to leave room for platform formatting.
const DefaultBudget = 3500

// Blocks joins pre-escaped blocks into one text
func Blocks(blocks []string) string {
	return strings.TrimSpace(strings.Join(blocks, "\n"))
}

// Chunk splits text into messages of at most budget runes. Concatenating the
// result in order always reproduces text exactly.
//
// Without lineAware every message but the last is exactly budget runes long.
// With lineAware a message ends after the last newline that fits, so markup
// that opens and closes on one line is never split. A single line longer than
// the budget is cut hard, but never inside an entity or a tag.
func Chunk(text string, budget int, lineAware bool) []string {
	if text == "" {
		return nil
	}
	if budget <= 0 {
		budget = DefaultBudget
	}

	runes := []rune(text)
	var out []string
	for len(runes) > budget {
		cut := budget
		if lineAware {
			cut = lineCut(runes, budget)
		}
		out = append(out, string(runes[:cut]))
		runes = runes[cut:]
	}
	return append(out, string(runes))
}

// maxMarkup is the longest entity or tag the escapers emit ("</code>")
const maxMarkup = 8

// lineCut picks the end of the next HTML message: after the last newline that
// fits, else the budget moved back to the start of an unfinished entity or tag.
func lineCut(runes []rune, budget int) int {
	for i := budget - 1; i > 0; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	for i := budget - 1; i > 0 && i >= budget-maxMarkup; i-- {
		switch runes[i] {
		case ';', '>':
			return budget
		case '&', '<':
			return i
		}
	}
	return budget
}
