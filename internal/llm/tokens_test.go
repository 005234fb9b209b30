package llm

import "testing"

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"empty", "", 0},
		{"short", "hi", 1},
		{"exactly four chars", "test", 1},
		{"five chars rounds up", "hello", 2},
		{"typical sentence", "The quick brown fox jumps over the lazy dog.", 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateTokens(tt.input)
			if got != tt.want {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestEstimatePromptTokens(t *testing.T) {
	got := EstimatePromptTokens("You are a coach.", "Today Focus")
	// 16 chars -> 4, 11 chars -> 3
	if got != 7 {
		t.Errorf("EstimatePromptTokens() = %d, want 7", got)
	}
}
