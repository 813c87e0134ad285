package moments

import (
	"strings"
	"testing"

	"github.com/yungbote/hansard-backend/internal/domain"
)

func TestBuildExtractionPromptMarkers(t *testing.T) {
	transcript := &domain.ProcessedTranscript{
		TranscriptID: "2024-07-02-p14-s3",
		SittingDate:  "2024-07-02",
		Segments: []domain.Segment{
			{Index: 0, Speaker: "Speaker A", Text: "Hello world."},
			{Index: 1, Speaker: "", Text: "The House rose."},
		},
	}
	prompt := buildExtractionPrompt(transcript)
	if !strings.Contains(prompt, "[0] Speaker A: Hello world.") {
		t.Errorf("missing indexed speaker line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[1] Narration: The House rose.") {
		t.Errorf("empty speaker not rendered as narration:\n%s", prompt)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"[{\"a\":1}]":                          "[{\"a\":1}]",
		"```json\n[{\"a\":1}]\n```":            "[{\"a\":1}]",
		"```\n[{\"a\":1}]\n```":                "[{\"a\":1}]",
		"  ```json\n[{\"a\":1}]\n```  ":        "[{\"a\":1}]",
	}
	for in, want := range cases {
		if got := stripCodeFence(in); got != want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseCandidatesDropsInvalid(t *testing.T) {
	response := `[
		{"quote":"This quote is long enough to count as valid.","speaker":"A","ai_score":7,"segment_indices":[0]},
		{"quote":"short","speaker":"B","ai_score":8,"segment_indices":[0]},
		{"quote":"Valid length quote but the segment index is out of range here.","speaker":"C","ai_score":6,"segment_indices":[99]},
		{"quote":"Valid length quote but there are no segment indices at all.","speaker":"D","ai_score":6,"segment_indices":[]},
		{"quote":"Another valid quote with a clamped model score attached.","speaker":"E","ai_score":14,"segment_indices":[1]}
	]`
	got := parseCandidates(response, 1)
	if len(got) != 2 {
		t.Fatalf("expected 2 surviving candidates, got %d: %+v", len(got), got)
	}
	if got[0].Speaker != "A" || got[1].Speaker != "E" {
		t.Errorf("wrong survivors: %+v", got)
	}
	if got[1].AIScore != 10 {
		t.Errorf("ai_score not clamped: %v", got[1].AIScore)
	}
}

func TestParseCandidatesFencedResponse(t *testing.T) {
	response := "```json\n[{\"quote\":\"A fenced quote that is clearly long enough.\",\"speaker\":\"A\",\"ai_score\":5,\"segment_indices\":[0]}]\n```"
	got := parseCandidates(response, 0)
	if len(got) != 1 {
		t.Fatalf("fenced response not parsed: %+v", got)
	}
}

func TestParseCandidatesFullParseFailure(t *testing.T) {
	for _, response := range []string{"", "not json at all", "{\"quote\":\"object not array\"}"} {
		if got := parseCandidates(response, 5); len(got) != 0 {
			t.Errorf("parseCandidates(%q) = %+v, want empty", response, got)
		}
	}
}
