package moments

import (
	"strings"

	"github.com/yungbote/hansard-backend/internal/domain"
)

// Deterministic rescoring. The model proposes candidates; everything below is
// reproducible arithmetic over the quote text, so reruns with a stubbed model
// give identical scores.

// jargonVocabulary is the curated bureaucratic/technical term list. Matching
// is case-insensitive substring, so inflected forms ("recalibrated") hit
// their stem.
var jargonVocabulary = []string{
	"recalibrate", "actuarial", "framework", "optimis", "optimiz",
	"paradigm", "synergy", "stakeholder", "holistic", "leverage",
	"streamline", "pursuant", "statutory", "prudential", "fiscal",
	"macroeconomic", "quantum", "subvention", "annuit", "premium",
	"disbursement", "appropriation", "amortis", "indexation",
	"means-test", "co-payment", "gazetted", "whitepaper",
}

// jargonSaturation is the match count at which density reaches 1.0.
const jargonSaturation = 5.0

// Contradiction pair-matcher: a quote containing any "setup" word and any
// "turn" word reads as self-contradictory.
var (
	contradictionSetup = []string{
		"previously", "earlier", "before", "last year", "promised",
		"committed", "assured", "said", "stated", "maintained",
	}
	contradictionTurn = []string{
		"however", "but now", "contrary", "reversed", "changed",
		"actually", "in fact", "no longer", "instead", "despite",
	}
)

// everydayTopics marks topics that touch daily life; substring match on the
// lowercased topic.
var everydayTopics = []string{
	"healthcare", "health", "housing", "hdb", "transport", "mrt", "coe",
	"education", "school", "cost of living", "cpf", "tax", "gst",
	"jobs", "employment", "wages", "food", "utilities", "childcare",
	"retirement",
}

var (
	highTones   = []string{"angry", "defensive", "evasive", "frustrated", "shocked"}
	mediumTones = []string{"concerned", "worried", "skeptical"}
)

func jargonDensity(quote string) float64 {
	lower := strings.ToLower(quote)
	matches := 0
	for _, term := range jargonVocabulary {
		if strings.Contains(lower, term) {
			matches++
		}
	}
	density := float64(matches) / jargonSaturation
	if density > 1 {
		density = 1
	}
	return density
}

func contradictionHeuristic(quote string) bool {
	lower := strings.ToLower(quote)
	setup := false
	for _, w := range contradictionSetup {
		if strings.Contains(lower, w) {
			setup = true
			break
		}
	}
	if !setup {
		return false
	}
	for _, w := range contradictionTurn {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// quotability rewards quotes short enough to caption: 15-40 words is the
// sweet spot, with a linear ramp up from 10 words.
func quotability(wordCount int) float64 {
	switch {
	case wordCount >= 15 && wordCount <= 40:
		return 1.0
	case wordCount >= 41 && wordCount <= 60:
		return 0.7
	case wordCount > 60:
		return 0.4
	case wordCount < 10:
		return 0.3
	default:
		// 10..14 ramps from 0.3 toward 1.0 at 15.
		return 0.3 + float64(wordCount-10)*(0.7/5.0)
	}
}

func everydayTopic(topic string) bool {
	lower := strings.ToLower(topic)
	for _, t := range everydayTopics {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func emotionWeight(tone string) float64 {
	lower := strings.ToLower(strings.TrimSpace(tone))
	for _, t := range highTones {
		if lower == t {
			return 1.0
		}
	}
	for _, t := range mediumTones {
		if lower == t {
			return 0.6
		}
	}
	return 0.3
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// AnalyzeQuote computes the full deterministic breakdown for one quote.
// llmContradiction and llmEveryday fold in the model's booleans when the
// caller has them; heuristics still apply either way.
func AnalyzeQuote(quote, topic, tone string, aiScore float64, llmContradiction, llmEveryday bool) domain.QuoteAnalysis {
	words := len(strings.Fields(quote))

	jargon := jargonDensity(quote)
	contradiction := llmContradiction || contradictionHeuristic(quote)
	quot := quotability(words)
	everyday := llmEveryday || everydayTopic(topic)
	emotion := emotionWeight(tone)

	score := clampScore(aiScore)*0.4 + jargon*2.0 + quot*1.0 + emotion*3.0
	if contradiction {
		score += 2.0
	}
	if everyday {
		score += 1.5
	}
	if score > 10 {
		score = 10
	}

	return domain.QuoteAnalysis{
		Quote:         quote,
		JargonDensity: jargon,
		Contradiction: contradiction,
		Quotability:   quot,
		Everyday:      everyday,
		Emotion:       emotion,
		Score:         score,
	}
}
