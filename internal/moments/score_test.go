package moments

import (
	"math"
	"testing"
)

func TestAnalyzeQuoteComposition(t *testing.T) {
	quote := "We have recalibrated the actuarial framework to optimise healthcare premium affordability."
	analysis := AnalyzeQuote(quote, "Healthcare", "defensive", 7, false, true)

	if analysis.JargonDensity <= 0 {
		t.Errorf("jargon density = %v, want > 0", analysis.JargonDensity)
	}
	if analysis.Contradiction {
		t.Error("contradiction detected where none exists")
	}
	if analysis.Emotion != 1.0 {
		t.Errorf("emotion = %v, want 1.0 for defensive", analysis.Emotion)
	}
	if !analysis.Everyday {
		t.Error("everyday flag lost")
	}
	if analysis.Score <= 7.5 || analysis.Score > 10 {
		t.Errorf("score = %v, want in (7.5, 10]", analysis.Score)
	}

	// Rerun is byte-identical.
	again := AnalyzeQuote(quote, "Healthcare", "defensive", 7, false, true)
	if math.Abs(again.Score-analysis.Score) > 1e-12 {
		t.Errorf("rescore not deterministic: %v vs %v", again.Score, analysis.Score)
	}
}

func TestQuotabilityBands(t *testing.T) {
	cases := []struct {
		words int
		want  float64
	}{
		{words: 5, want: 0.3},
		{words: 9, want: 0.3},
		{words: 10, want: 0.3},
		{words: 15, want: 1.0},
		{words: 40, want: 1.0},
		{words: 41, want: 0.7},
		{words: 60, want: 0.7},
		{words: 61, want: 0.4},
		{words: 200, want: 0.4},
	}
	for _, tc := range cases {
		if got := quotability(tc.words); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("quotability(%d) = %v, want %v", tc.words, got, tc.want)
		}
	}

	// Ramp is monotonic between 10 and 15 words.
	prev := quotability(10)
	for w := 11; w <= 14; w++ {
		cur := quotability(w)
		if cur <= prev {
			t.Errorf("ramp not increasing at %d words: %v <= %v", w, cur, prev)
		}
		if cur >= 1.0 {
			t.Errorf("ramp reached 1.0 before 15 words at %d: %v", w, cur)
		}
		prev = cur
	}
}

func TestEmotionWeight(t *testing.T) {
	for _, tone := range []string{"angry", "Defensive", "EVASIVE", "frustrated", "shocked"} {
		if got := emotionWeight(tone); got != 1.0 {
			t.Errorf("emotionWeight(%q) = %v, want 1.0", tone, got)
		}
	}
	for _, tone := range []string{"concerned", "worried", "skeptical"} {
		if got := emotionWeight(tone); got != 0.6 {
			t.Errorf("emotionWeight(%q) = %v, want 0.6", tone, got)
		}
	}
	for _, tone := range []string{"neutral", "calm", ""} {
		if got := emotionWeight(tone); got != 0.3 {
			t.Errorf("emotionWeight(%q) = %v, want 0.3", tone, got)
		}
	}
}

func TestContradictionHeuristic(t *testing.T) {
	if !contradictionHeuristic("The Minister previously promised a freeze, but now fees have risen.") {
		t.Error("setup+turn pair not detected")
	}
	if contradictionHeuristic("The Minister previously promised a freeze.") {
		t.Error("setup word alone should not trigger")
	}
	if contradictionHeuristic("However, the committee will review the matter.") {
		t.Error("turn word alone should not trigger")
	}
}

func TestJargonDensitySaturates(t *testing.T) {
	dense := "The actuarial recalibrated framework leverages holistic statutory fiscal synergy pursuant to the paradigm."
	if got := jargonDensity(dense); got != 1.0 {
		t.Errorf("density = %v, want saturation at 1.0", got)
	}
	if got := jargonDensity("I like trains."); got != 0 {
		t.Errorf("density = %v, want 0 for plain speech", got)
	}
}

func TestScoreBounds(t *testing.T) {
	// Maximal inputs stay capped at 10.
	dense := "The actuarial recalibrated framework previously promised reform, but now leverages holistic statutory fiscal synergy."
	analysis := AnalyzeQuote(dense, "Healthcare", "angry", 10, true, true)
	if analysis.Score != 10 {
		t.Errorf("score = %v, want cap at 10", analysis.Score)
	}

	low := AnalyzeQuote("Noted.", "Procedure", "neutral", 0, false, false)
	if low.Score < 0 || low.Score > 10 {
		t.Errorf("score = %v, out of range", low.Score)
	}
}
