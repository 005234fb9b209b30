package coach

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	headingPattern  = regexp.MustCompile(`^#{1,6}\s*`)
	bulletPattern   = regexp.MustCompile(`^[-*]\s+(.*)$`)
	numberedPattern = regexp.MustCompile(`^(\d+)\.\s+(.*)$`)
	lineBreaks      = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	emphasis        = strings.NewReplacer("**", "", "__", "", "`", "", "*", "")
)

// Cleaning a line can expose new markup, e.g. "`# x`" becomes a heading once
// the backticks go. Lines are cleaned until they stop changing.
const maxCleanPasses = 8

// Normalize turns model output into plain text safe for chat delivery:
// no code fences, heading markers or emphasis, "N) " numbering and "- "
// bullets, single blank lines between blocks. Normalize(Normalize(s)) equals
// Normalize(s).
func Normalize(text string) string {
	var lines []string
	for _, raw := range strings.Split(lineBreaks.Replace(text), "\n") {
		line, keep := normalizeLine(raw)
		if keep {
			lines = append(lines, line)
		}
	}

	out := make([]string, 0, len(lines))
	lastBlank := true // drops leading blanks
	for _, line := range lines {
		if line == "" {
			if !lastBlank {
				out = append(out, "")
			}
			lastBlank = true
			continue
		}
		out = append(out, line)
		lastBlank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// normalizeLine returns the cleaned line and false when it should be dropped.
func normalizeLine(raw string) (string, bool) {
	body := strings.TrimLeftFunc(raw, unicode.IsSpace)
	indent := raw[:len(raw)-len(body)]
	body = strings.TrimSpace(body)

	flatten := false
	for range maxCleanPasses {
		next, flat, keep := cleanLine(body)
		if !keep {
			return "", false
		}
		flatten = flatten || flat
		if next == body {
			break
		}
		body = next
	}
	if flatten || body == "" {
		return body, true
	}
	return indent + body, true
}

// cleanLine applies one pass of the rewrite rules. flat reports that the line
// was a heading or bullet, whose indentation is not kept.
func cleanLine(body string) (line string, flat, keep bool) {
	if strings.HasPrefix(body, "```") {
		return "", false, false
	}
	for headingPattern.MatchString(body) {
		body = strings.TrimSpace(headingPattern.ReplaceAllString(body, ""))
		flat = true
	}
	if m := bulletPattern.FindStringSubmatch(body); m != nil {
		rest := strings.TrimSpace(emphasis.Replace(m[1]))
		if rest == "" {
			return "", true, true
		}
		return "- " + rest, true, true
	}
	if m := numberedPattern.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1] + ") " + emphasis.Replace(m[2])), flat, true
	}
	return strings.TrimSpace(emphasis.Replace(body)), flat, true
}
