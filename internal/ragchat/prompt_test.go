package ragchat

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCitationsTruncateOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("议", citationTextLimit+50)
	cits := citationsFrom([]retrieved{{Text: long, Speaker: "Minister B", Score: 0.8}})
	if len(cits) != 1 {
		t.Fatalf("citations = %d", len(cits))
	}

	text := cits[0].Text
	if !utf8.ValidString(text) {
		t.Fatalf("citation text is not valid UTF-8: %q", text)
	}
	if !strings.HasSuffix(text, "...") {
		t.Errorf("citation text not marked truncated: %q", text[len(text)-12:])
	}
	if got := utf8.RuneCountInString(strings.TrimSuffix(text, "...")); got != citationTextLimit {
		t.Errorf("truncated rune count = %d, want %d", got, citationTextLimit)
	}
}

func TestCitationsShortTextUntouched(t *testing.T) {
	cits := citationsFrom([]retrieved{{Text: "A short remark.", Score: 0.5}})
	if cits[0].Text != "A short remark." {
		t.Errorf("text = %q", cits[0].Text)
	}
}

func TestBuildContextLabelsSources(t *testing.T) {
	block := buildContext([]retrieved{
		{Text: "First excerpt.", Speaker: "Speaker A", SectionTitle: "Oral Answers", Score: 0.912},
		{Text: "Second excerpt.", Score: 0.64},
	})
	if !strings.Contains(block, "--- Source 1 (Confidence: 91.2%) ---") {
		t.Errorf("missing first source header:\n%s", block)
	}
	if !strings.Contains(block, "[Speaker A]") {
		t.Errorf("missing speaker label:\n%s", block)
	}
	if !strings.Contains(block, "Section: Oral Answers") {
		t.Errorf("missing section line:\n%s", block)
	}
	if !strings.Contains(block, "[Unknown Speaker]") {
		t.Errorf("missing unknown-speaker fallback:\n%s", block)
	}
}
