package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TranscriptRecord is the relational catalog row for an ingested sitting.
// The object store stays the source of truth; this row exists for listing
// and for joining pipeline runs to sittings.
type TranscriptRecord struct {
	TranscriptID string `gorm:"column:transcript_id;primaryKey" json:"transcript_id"`
	SittingDate  string `gorm:"column:sitting_date;not null;index" json:"sitting_date"`
	DisplayDate  string `gorm:"column:display_date" json:"display_date"`

	ParliamentNo int `gorm:"column:parliament_no" json:"parliament_no"`
	SessionNo    int `gorm:"column:session_no" json:"session_no"`

	SegmentCount int `gorm:"column:segment_count;not null;default:0" json:"segment_count"`
	SpeakerCount int `gorm:"column:speaker_count;not null;default:0" json:"speaker_count"`
	TotalWords   int `gorm:"column:total_words;not null;default:0" json:"total_words"`

	RawURI       string `gorm:"column:raw_uri" json:"raw_uri"`
	ProcessedURI string `gorm:"column:processed_uri" json:"processed_uri"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TranscriptRecord) TableName() string { return "transcript_record" }

const (
	PipelineIngest     = "ingest"
	PipelineMoments    = "moments"
	PipelineVideoMatch = "video_match"
	PipelineEmbed      = "embed"

	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// PipelineRun is one invocation of a pipeline against a key. Informational
// only; no worker claims these rows.
type PipelineRun struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	Pipeline     string `gorm:"column:pipeline;not null;index" json:"pipeline"`
	TranscriptID string `gorm:"column:transcript_id;index" json:"transcript_id"`

	Status     string         `gorm:"column:status;not null;index" json:"status"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	DurationMS int64          `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`
	Detail     datatypes.JSON `gorm:"type:jsonb;column:detail;not null;default:'{}'" json:"detail,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (PipelineRun) TableName() string { return "pipeline_run" }
