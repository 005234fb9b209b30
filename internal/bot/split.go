package bot

import (
	"strings"
	"unicode/utf8"
)

// Message size limits of the supported chat services, in bytes of text.
const (
	TelegramMaxLen = 4096
	DiscordMaxLen  = 2000
)

// SplitMessage cuts s into chunks of at most maxLen bytes, preferring to
// break after a newline and never splitting a UTF-8 sequence.
func SplitMessage(s string, maxLen int) []string {
	if len(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(s) > 0 {
		end := maxLen
		if end >= len(s) {
			end = len(s)
		} else {
			for end > 0 && !utf8.RuneStart(s[end]) {
				end--
			}
			if end == 0 {
				_, end = utf8.DecodeRuneInString(s)
			}
		}
		// Try to split at a newline
		if end < len(s) {
			if idx := strings.LastIndex(s[:end], "\n"); idx > 0 {
				end = idx + 1
			}
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}
