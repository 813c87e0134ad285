package domain

import "time"

// Chunk is a retrieval-sized slice of a processed transcript.
type Chunk struct {
	ChunkID      string `json:"chunk_id"` // {transcript_id}_{index}
	TranscriptID string `json:"transcript_id"`
	Index        int    `json:"index"`

	Text            string `json:"text"`
	Speaker         string `json:"speaker,omitempty"` // most recent speaker at chunk start
	SectionTitle    string `json:"section_title,omitempty"`
	SubsectionTitle string `json:"subsection_title,omitempty"`

	WordCount     int `json:"word_count"`
	TokenEstimate int `json:"token_estimate"`

	Embedding []float32 `json:"embedding,omitempty"`
}

type EmbedStatus struct {
	Embedded   bool      `json:"embedded"`
	ChunkCount int       `json:"chunk_count"`
	EmbeddedAt time.Time `json:"embedded_at,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	Dimension  int       `json:"dimension,omitempty"`
}

type ChatCitation struct {
	Text         string  `json:"text"` // truncated chunk text
	Speaker      string  `json:"speaker,omitempty"`
	SectionTitle string  `json:"section_title,omitempty"`
	Confidence   float64 `json:"confidence"`
}

type ChatAnswer struct {
	TranscriptID string         `json:"transcript_id"`
	Answer       string         `json:"answer"`
	Citations    []ChatCitation `json:"citations"`
	Model        string         `json:"model,omitempty"`
}
