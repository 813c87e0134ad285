package moments

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/hansard-backend/internal/domain"
)

const extractionSystemPrompt = `You identify potentially viral moments in parliamentary debate transcripts.
A viral moment is a quote that would make people stop scrolling: confrontational exchanges, evasive answers, surprising admissions, jargon-heavy deflections, or statements that directly affect citizens' daily lives.
Return ONLY a JSON array. Each element must have these fields:
  "quote": the exact quote, 15-300 characters
  "speaker": the speaker's name as given
  "why_viral": one sentence on why this would spread
  "ai_score": number 0-10
  "topic": short topic label
  "emotional_tone": one word (e.g. angry, defensive, evasive, frustrated, shocked, concerned, worried, skeptical, neutral)
  "target_demographic": who would share this
  "contains_jargon": boolean
  "has_contradiction": boolean
  "affects_everyday_life": boolean
  "segment_indices": array of integers referencing the [i] markers in the transcript
Do not include any text outside the JSON array.`

// buildExtractionPrompt renders the transcript as "[i] speaker: text" lines.
// The index markers are what candidates reference back through
// segment_indices, so they are never omitted.
func buildExtractionPrompt(t *domain.ProcessedTranscript) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Transcript of the parliamentary sitting on %s:\n\n", t.SittingDate)
	for _, seg := range t.Segments {
		speaker := seg.Speaker
		if speaker == "" {
			speaker = "Narration"
		}
		fmt.Fprintf(&sb, "[%d] %s: %s\n", seg.Index, speaker, seg.Text)
	}
	sb.WriteString("\nIdentify the most viral moments and return the JSON array.")
	return sb.String()
}

// candidate is the model's proposed moment, pre-rescoring.
type candidate struct {
	Quote               string  `json:"quote"`
	Speaker             string  `json:"speaker"`
	WhyViral            string  `json:"why_viral"`
	AIScore             float64 `json:"ai_score"`
	Topic               string  `json:"topic"`
	EmotionalTone       string  `json:"emotional_tone"`
	TargetDemographic   string  `json:"target_demographic"`
	ContainsJargon      bool    `json:"contains_jargon"`
	HasContradiction    bool    `json:"has_contradiction"`
	AffectsEverydayLife bool    `json:"affects_everyday_life"`
	SegmentIndices      []int   `json:"segment_indices"`
}

// stripCodeFence removes a wrapping markdown fence when the model adds one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line ("json" or similar).
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// parseCandidates decodes the model response. A full-parse failure yields an
// empty set, never an error; individually invalid candidates are dropped.
func parseCandidates(response string, maxSegmentIndex int) []candidate {
	cleaned := stripCodeFence(response)
	if cleaned == "" {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil
	}

	out := make([]candidate, 0, len(raw))
	for _, item := range raw {
		var c candidate
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		if !validCandidate(c, maxSegmentIndex) {
			continue
		}
		if c.AIScore < 0 {
			c.AIScore = 0
		}
		if c.AIScore > 10 {
			c.AIScore = 10
		}
		out = append(out, c)
	}
	return out
}

func validCandidate(c candidate, maxSegmentIndex int) bool {
	quote := strings.TrimSpace(c.Quote)
	if len(quote) < 15 || len(quote) > 300 {
		return false
	}
	if len(c.SegmentIndices) == 0 {
		return false
	}
	for _, idx := range c.SegmentIndices {
		if idx < 0 || idx > maxSegmentIndex {
			return false
		}
	}
	return true
}
