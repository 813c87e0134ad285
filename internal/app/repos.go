package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/hansard-backend/internal/data/repos/catalog"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
)

type Repos struct {
	Records catalog.TranscriptRecordRepo
	Runs    catalog.PipelineRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	if db == nil {
		return Repos{}
	}
	return Repos{
		Records: catalog.NewTranscriptRecordRepo(db, log),
		Runs:    catalog.NewPipelineRunRepo(db, log),
	}
}
