package videomatch

import (
	"strings"
	"time"

	"github.com/yungbote/hansard-backend/internal/clients/youtube"
)

// Factor names recorded in MatchCriteria. Only factors that fired appear on a
// persisted match.
const (
	FactorSameDay            = "same_day"
	FactorAdjacentDay        = "adjacent_day"
	FactorWithinWindow       = "within_window"
	FactorTitleKeyword       = "title_keyword"
	FactorLongDuration       = "long_duration"
	FactorMediumDuration     = "medium_duration"
	FactorLivestream         = "livestream"
	FactorDescriptionKeyword = "description_keyword"
	FactorSpeakerMention     = "speaker_mention"
)

var parliamentKeywords = []string{
	"parliament",
	"sitting",
	"hansard",
	"debate",
	"question time",
	"second reading",
	"committee of supply",
	"budget",
}

// scoreCandidate computes the confidence for one candidate against the
// sitting date. The score is capped at 10.
func scoreCandidate(d youtube.VideoDetail, sittingDate time.Time, speakers []string) (float64, []string) {
	score := 0.0
	criteria := []string{}

	switch diff := calendarDayDiff(d.PublishedAt, sittingDate); {
	case diff == 0:
		score += 4
		criteria = append(criteria, FactorSameDay)
	case diff == 1:
		score += 3
		criteria = append(criteria, FactorAdjacentDay)
	case diff <= 3:
		score += 1
		criteria = append(criteria, FactorWithinWindow)
	}

	if containsKeyword(d.Title) {
		score += 2
		criteria = append(criteria, FactorTitleKeyword)
	}

	switch {
	case d.DurationSeconds >= 3600:
		score += 2
		criteria = append(criteria, FactorLongDuration)
	case d.DurationSeconds >= 1800:
		score += 1
		criteria = append(criteria, FactorMediumDuration)
	}

	if d.IsLivestream {
		score += 1
		criteria = append(criteria, FactorLivestream)
	}

	if containsKeyword(d.Description) {
		score += 0.5
		criteria = append(criteria, FactorDescriptionKeyword)
	}

	if mentionsSpeaker(d.Title, d.Description, speakers) {
		score += 0.5
		criteria = append(criteria, FactorSpeakerMention)
	}

	if score > 10 {
		score = 10
	}
	return score, criteria
}

// calendarDayDiff compares UTC calendar days, ignoring time of day.
func calendarDayDiff(a, b time.Time) int {
	ad := a.UTC().Truncate(24 * time.Hour)
	bd := b.UTC().Truncate(24 * time.Hour)
	diff := int(ad.Sub(bd).Hours() / 24)
	if diff < 0 {
		diff = -diff
	}
	return diff
}

func containsKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range parliamentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func mentionsSpeaker(title, description string, speakers []string) bool {
	haystack := strings.ToLower(title + "\n" + description)
	for _, s := range speakers {
		s = strings.TrimSpace(strings.ToLower(s))
		if s != "" && strings.Contains(haystack, s) {
			return true
		}
	}
	return false
}
