package catalog

import (
	"gorm.io/gorm"

	types "github.com/yungbote/hansard-backend/internal/domain"
	"github.com/yungbote/hansard-backend/internal/pkg/dbctx"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
)

type PipelineRunRepo interface {
	Create(dbc dbctx.Context, run *types.PipelineRun) error
	ListByTranscript(dbc dbctx.Context, transcriptID string, limit int) ([]*types.PipelineRun, error)
}

type pipelineRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPipelineRunRepo(db *gorm.DB, baseLog *logger.Logger) PipelineRunRepo {
	return &pipelineRunRepo{
		db:  db,
		log: baseLog.With("repo", "PipelineRunRepo"),
	}
}

func (r *pipelineRunRepo) Create(dbc dbctx.Context, run *types.PipelineRun) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if run == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(run).Error
}

func (r *pipelineRunRepo) ListByTranscript(dbc dbctx.Context, transcriptID string, limit int) ([]*types.PipelineRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.PipelineRun
	q := transaction.WithContext(dbc.Ctx).Order("created_at DESC").Limit(limit)
	if transcriptID != "" {
		q = q.Where("transcript_id = ?", transcriptID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
