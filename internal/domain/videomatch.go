package domain

import "time"

// VideoMatch binds a transcript to its best-scoring YouTube recording.
type VideoMatch struct {
	TranscriptID string `json:"transcript_id"`

	VideoID   string `json:"video_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	ChannelID string `json:"channel_id"`

	DurationSeconds int64     `json:"duration_seconds"`
	PublishedAt     time.Time `json:"published_at"`

	Confidence        float64  `json:"confidence_score"` // [0,10], persisted matches are >= 5.0
	MatchCriteria     []string `json:"match_criteria"`   // only factors that fired
	CaptionsAvailable bool     `json:"captions_available"`

	CreatedAt time.Time `json:"created_at"`
}

// TimestampEstimate locates a quote within a matched video by proportional
// position of the quote's segment in the transcript.
type TimestampEstimate struct {
	TranscriptID  string  `json:"transcript_id"`
	VideoID       string  `json:"video_id"`
	OffsetSeconds int64   `json:"offset_seconds"`
	URL           string  `json:"url"` // watch URL with &t= offset
	SegmentID     string  `json:"segment_id"`
	Fraction      float64 `json:"fraction"` // position in [0,1]
}
