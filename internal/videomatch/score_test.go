package videomatch

import (
	"testing"
	"time"

	"github.com/yungbote/hansard-backend/internal/clients/youtube"
)

func TestScoreCandidateDateBands(t *testing.T) {
	day := time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		published time.Time
		want      float64
	}{
		{day, 4},
		{day.Add(14 * time.Hour), 4}, // same calendar day, later time
		{day.Add(24 * time.Hour), 3},
		{day.Add(-24 * time.Hour), 3},
		{day.Add(3 * 24 * time.Hour), 1},
		{day.Add(-3 * 24 * time.Hour), 1},
		{day.Add(5 * 24 * time.Hour), 0},
	}
	for _, tc := range cases {
		score, _ := scoreCandidate(youtube.VideoDetail{PublishedAt: tc.published}, day, nil)
		if score != tc.want {
			t.Errorf("published %v: score = %v, want %v", tc.published, score, tc.want)
		}
	}
}

func TestScoreCandidateDurationBands(t *testing.T) {
	day := time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)
	far := day.Add(10 * 24 * time.Hour)

	score, criteria := scoreCandidate(youtube.VideoDetail{PublishedAt: far, DurationSeconds: 3600}, day, nil)
	if score != 2 || len(criteria) != 1 || criteria[0] != FactorLongDuration {
		t.Errorf("3600s: score=%v criteria=%v", score, criteria)
	}
	score, criteria = scoreCandidate(youtube.VideoDetail{PublishedAt: far, DurationSeconds: 1800}, day, nil)
	if score != 1 || len(criteria) != 1 || criteria[0] != FactorMediumDuration {
		t.Errorf("1800s: score=%v criteria=%v", score, criteria)
	}
	score, criteria = scoreCandidate(youtube.VideoDetail{PublishedAt: far, DurationSeconds: 1799}, day, nil)
	if score != 0 || len(criteria) != 0 {
		t.Errorf("1799s: score=%v criteria=%v", score, criteria)
	}
}

func TestContainsKeyword(t *testing.T) {
	if !containsKeyword("LIVE: Parliament Sitting 2 July 2024") {
		t.Error("parliament keyword missed")
	}
	if !containsKeyword("Committee of Supply debate, day 3") {
		t.Error("multi-word keyword missed")
	}
	if containsKeyword("Cooking show episode 12") {
		t.Error("false positive keyword")
	}
}
