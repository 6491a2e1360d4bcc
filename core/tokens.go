package core

import (
	"fmt"
	"unicode/utf8"
)

// Per-message overhead added to approximate chat formatting cost.
const messageTokenOverhead = 4

// EstimateTokens returns a rough token estimate for text using the fixed
// chars/4 heuristic, counted in runes. This is an approximation, not a
// tokenizer, and is not expected to match any real tokenizer's output.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}

// EstimateMessageTokens estimates the token cost of a message list,
// including a small fixed per-message overhead.
func EstimateMessageTokens(messages []ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content) + messageTokenOverhead
	}
	return total
}

// FormatTokenCount renders a token count for display, e.g. "500 tokens",
// "1.5K tokens", "1.5M tokens".
func FormatTokenCount(count int) string {
	switch {
	case count >= 1000000:
		return fmt.Sprintf("%.1fM tokens", float64(count)/1000000)
	case count >= 1000:
		return fmt.Sprintf("%.1fK tokens", float64(count)/1000)
	default:
		return fmt.Sprintf("%d tokens", count)
	}
}
