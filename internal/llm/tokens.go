package llm

// charsPerToken is the average number of characters per token for English
// text. Good enough for logging prompt sizes.
const charsPerToken = 4

// EstimateTokens returns a rough token count for a string.
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + charsPerToken - 1) / charsPerToken // round up
}

// EstimatePromptTokens sums the estimate for a system and user prompt pair.
func EstimatePromptTokens(system, user string) int {
	return EstimateTokens(system) + EstimateTokens(user)
}
