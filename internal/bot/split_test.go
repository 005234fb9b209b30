package bot

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitMessage_Short(t *testing.T) {
	chunks := SplitMessage("hello", DiscordMaxLen)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("expected single chunk 'hello', got %v", chunks)
	}
}

func TestSplitMessage_ExactLimit(t *testing.T) {
	s := strings.Repeat("a", TelegramMaxLen)
	chunks := SplitMessage(s, TelegramMaxLen)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestSplitMessage_SplitsAtNewline(t *testing.T) {
	s := strings.Repeat("a", 15) + "\n" + strings.Repeat("b", 15)
	chunks := SplitMessage(s, 20)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != strings.Repeat("a", 15)+"\n" {
		t.Errorf("chunk[0] = %q", chunks[0])
	}
	if chunks[1] != strings.Repeat("b", 15) {
		t.Errorf("chunk[1] = %q", chunks[1])
	}
}

func TestSplitMessage_NoNewlineFallback(t *testing.T) {
	s := strings.Repeat("x", 50)
	chunks := SplitMessage(s, 20)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[2] != strings.Repeat("x", 10) {
		t.Errorf("chunk[2] length = %d, want 10", len(chunks[2]))
	}
}

func TestSplitMessage_Empty(t *testing.T) {
	chunks := SplitMessage("", DiscordMaxLen)
	if len(chunks) != 1 || chunks[0] != "" {
		t.Errorf("expected single empty chunk, got %v", chunks)
	}
}

func TestSplitMessage_MultipleNewlines(t *testing.T) {
	s := "line1\nline2\nline3\nline4"
	chunks := SplitMessage(s, 12)

	if chunks[0] != "line1\nline2\n" {
		t.Errorf("chunk[0] = %q, want %q", chunks[0], "line1\nline2\n")
	}
	if got := strings.Join(chunks, ""); got != s {
		t.Errorf("chunks do not rejoin to the input: %q", got)
	}
}

func TestSplitMessage_KeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("é", 15) // 30 bytes
	chunks := SplitMessage(s, 7)
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk[%d] = %q is not valid UTF-8", i, c)
		}
		if len(c) > 7 {
			t.Errorf("chunk[%d] has %d bytes, want <= 7", i, len(c))
		}
	}
	if got := strings.Join(chunks, ""); got != s {
		t.Errorf("chunks do not rejoin to the input")
	}
}
