package app

import (
	"github.com/yungbote/hansard-backend/internal/http/handlers"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	Ingest     *handlers.IngestHandler
	Transcript *handlers.TranscriptHandler
	Moments    *handlers.MomentsHandler
	Video      *handlers.VideoHandler
	Chat       *handlers.ChatHandler
}

func wireHandlers(log *logger.Logger, clients Clients, repos Repos, services Services, dbUp bool) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: handlers.NewHealthHandler(handlers.Bindings{
			Postgres:  dbUp,
			Storage:   clients.Store != nil,
			Cache:     clients.Cache != nil,
			Vectors:   clients.Vectors != nil,
			Hansard:   clients.Hansard != nil,
			YouTube:   clients.YouTube != nil,
			OpenAI:    clients.OpenAI != nil,
			WorkersAI: clients.WorkersAI != nil,
		}),
		Ingest:     handlers.NewIngestHandler(services.Ingestion),
		Transcript: handlers.NewTranscriptHandler(services.Ingestion),
		Moments:    handlers.NewMomentsHandler(services.Moments),
		Video:      handlers.NewVideoHandler(services.VideoMatch),
		Chat:       handlers.NewChatHandler(services.RagChat, repos.Records),
	}
}
