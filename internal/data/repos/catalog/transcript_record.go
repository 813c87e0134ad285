package catalog

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/hansard-backend/internal/domain"
	"github.com/yungbote/hansard-backend/internal/pkg/dbctx"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
)

type TranscriptRecordRepo interface {
	Upsert(dbc dbctx.Context, rec *types.TranscriptRecord) error
	GetByID(dbc dbctx.Context, transcriptID string) (*types.TranscriptRecord, error)
	GetBySittingDate(dbc dbctx.Context, isoDate string) (*types.TranscriptRecord, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.TranscriptRecord, int64, error)
}

type transcriptRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTranscriptRecordRepo(db *gorm.DB, baseLog *logger.Logger) TranscriptRecordRepo {
	return &transcriptRecordRepo{
		db:  db,
		log: baseLog.With("repo", "TranscriptRecordRepo"),
	}
}

func (r *transcriptRecordRepo) Upsert(dbc dbctx.Context, rec *types.TranscriptRecord) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if rec == nil || rec.TranscriptID == "" {
		return nil
	}
	rec.UpdatedAt = time.Now()
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "transcript_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sitting_date", "display_date", "parliament_no", "session_no",
				"segment_count", "speaker_count", "total_words",
				"raw_uri", "processed_uri", "updated_at",
			}),
		}).
		Create(rec).Error
}

func (r *transcriptRecordRepo) GetByID(dbc dbctx.Context, transcriptID string) (*types.TranscriptRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if transcriptID == "" {
		return nil, nil
	}
	var rec types.TranscriptRecord
	err := transaction.WithContext(dbc.Ctx).
		Where("transcript_id = ?", transcriptID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *transcriptRecordRepo) GetBySittingDate(dbc dbctx.Context, isoDate string) (*types.TranscriptRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if isoDate == "" {
		return nil, nil
	}
	var rec types.TranscriptRecord
	err := transaction.WithContext(dbc.Ctx).
		Where("sitting_date = ?", isoDate).
		Order("created_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *transcriptRecordRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.TranscriptRecord, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.TranscriptRecord{}).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*types.TranscriptRecord
	if err := transaction.WithContext(dbc.Ctx).
		Order("sitting_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
