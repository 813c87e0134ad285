package domain

import "time"

// RawHansard is the upstream sitting document, persisted verbatim for audit.
// Extra upstream fields are ignored on decode; required fields are checked by
// ingestion.ValidateRawHansard (kept in one place on purpose).
type RawHansard struct {
	Metadata   RawMetadata        `json:"metadata"`
	Sections   []RawSection       `json:"sections"`
	Attendance []AttendanceRecord `json:"attendance"`
}

type RawMetadata struct {
	ParliamentNo *int   `json:"parliament_no"`
	SessionNo    *int   `json:"session_no"`
	SittingDate  string `json:"sitting_date"`
	DisplayDate  string `json:"display_date"`
	StartTime    string `json:"start_time"`
	Speaker      string `json:"speaker"`
}

type RawSection struct {
	PageNo  int    `json:"page_no"`
	Title   string `json:"title"`
	Type    string `json:"type"` // OS | OA | BILLS | PAPERS | OTHER
	Content string `json:"content"`
}

type AttendanceRecord struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
}

// Segment is one contiguous speech by a single speaker within a section.
type Segment struct {
	ID           string `json:"id"` // {transcript_id}-{index}
	Speaker      string `json:"speaker"`
	Text         string `json:"text"`
	Timestamp    string `json:"timestamp,omitempty"`
	SectionTitle string `json:"section_title"`
	SectionType  string `json:"section_type"`
	// SubsectionTitle is the most recent non-timestamp heading inside the
	// section, when one exists.
	SubsectionTitle string `json:"subsection_title,omitempty"`
	PageNo          int    `json:"page_no"`
	Index           int    `json:"index"`
	WordCount       int    `json:"word_count"`
	CharCount       int    `json:"char_count"`
}

type ProcessedTranscript struct {
	TranscriptID string `json:"transcript_id"`
	SittingDate  string `json:"sitting_date"` // canonical YYYY-MM-DD
	DisplayDate  string `json:"display_date"`

	ParliamentNo int `json:"parliament_no"`
	SessionNo    int `json:"session_no"`

	Segments []Segment `json:"segments"`

	// Derived sets, order of first appearance.
	Speakers []string `json:"speakers"`
	Topics   []string `json:"topics"`

	Attendance []string `json:"attendance"`

	TotalWords int `json:"total_words"`
	TotalChars int `json:"total_chars"`

	ProcessedAt time.Time `json:"processed_at"`
}

// SegmentByIndex returns the segment with the given index, or nil.
func (t *ProcessedTranscript) SegmentByIndex(idx int) *Segment {
	if t == nil || idx < 0 || idx >= len(t.Segments) {
		return nil
	}
	// Segment indices are assigned monotonically across the transcript, so
	// positional lookup is exact.
	return &t.Segments[idx]
}

type IngestResult struct {
	TranscriptID string   `json:"transcript_id"`
	SittingDate  string   `json:"sitting_date"`
	DisplayDate  string   `json:"display_date"`
	Speakers     []string `json:"speakers"`
	Topics       []string `json:"topics"`
	SegmentCount int      `json:"segment_count"`
	TotalWords   int      `json:"total_words"`

	Cached       bool  `json:"cached"`
	ProcessingMS int64 `json:"processing_ms"`

	RawURI       string `json:"raw_uri,omitempty"`
	ProcessedURI string `json:"processed_uri,omitempty"`
}
