package domain

import "time"

// Moment is a candidate viral segment produced by the extractor.
type Moment struct {
	MomentID string `json:"moment_id"`
	Quote    string `json:"quote"`
	Speaker  string `json:"speaker"`

	TimestampRange string `json:"timestamp_range,omitempty"`

	ContextBefore string `json:"context_before"`
	ContextAfter  string `json:"context_after"`

	ViralityScore float64 `json:"virality_score"` // deterministic composite, [0,10]
	AIScore       float64 `json:"ai_score"`       // model-proposed, [0,10]
	WhyViral      string  `json:"why_viral"`

	Topic             string `json:"topic"`
	EmotionalTone     string `json:"emotional_tone"`
	TargetDemographic string `json:"target_demographic"`
	SectionTitle      string `json:"section_title,omitempty"`

	TranscriptID   string   `json:"transcript_id"`
	SegmentIDs     []string `json:"segment_ids"`
	SegmentIndices []int    `json:"segment_indices"`

	Embedding []float32 `json:"embedding,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type ExtractionCriteria struct {
	MinScore   float64  `json:"min_score"`
	MaxResults int      `json:"max_results"`
	Topics     []string `json:"topics,omitempty"`
	Speakers   []string `json:"speakers,omitempty"`
}

type ExtractionStats struct {
	Total     int            `json:"total"`
	ByTopic   map[string]int `json:"by_topic"`
	BySpeaker map[string]int `json:"by_speaker"`
	ByTone    map[string]int `json:"by_tone"`
	MeanScore float64        `json:"mean_score"`
}

type ExtractionResult struct {
	TranscriptID string          `json:"transcript_id"`
	Moments      []Moment        `json:"moments"`
	TopMoment    *Moment         `json:"top_moment,omitempty"`
	Stats        ExtractionStats `json:"stats"`
	ProcessedAt  time.Time       `json:"processed_at"`
	Model        string          `json:"model"`
}

// QuoteAnalysis is the deterministic-only score breakdown for a single quote.
type QuoteAnalysis struct {
	Quote         string  `json:"quote"`
	JargonDensity float64 `json:"jargon_density"`
	Contradiction bool    `json:"contradiction"`
	Quotability   float64 `json:"quotability"`
	Everyday      bool    `json:"affects_everyday_life"`
	Emotion       float64 `json:"emotion"`
	Score         float64 `json:"score"`
}

// MomentSearchHit is a semantic search result over the moment index.
type MomentSearchHit struct {
	MomentID      string  `json:"moment_id"`
	TranscriptID  string  `json:"transcript_id"`
	Quote         string  `json:"quote"`
	Speaker       string  `json:"speaker"`
	Topic         string  `json:"topic"`
	ViralityScore float64 `json:"virality_score"`
	Score         float64 `json:"score"` // retrieval similarity
}
