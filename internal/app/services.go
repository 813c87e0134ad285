package app

import (
	"github.com/yungbote/hansard-backend/internal/clients/llm"
	"github.com/yungbote/hansard-backend/internal/ingestion"
	"github.com/yungbote/hansard-backend/internal/moments"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
	"github.com/yungbote/hansard-backend/internal/ragchat"
	"github.com/yungbote/hansard-backend/internal/videomatch"
)

type Services struct {
	Ingestion  ingestion.Service
	Moments    moments.Service
	VideoMatch videomatch.Service
	RagChat    ragchat.Service
}

func wireServices(log *logger.Logger, clients Clients, repos Repos) Services {
	log.Info("Wiring services...")

	// Workers AI leads both chains; OpenAI is the fallback leg. Nil clients
	// are dropped inside the chain and service constructors.
	embedChain := llm.NewEmbedChain(clients.WorkersAI, clients.OpenAI)
	chatProviders := []llm.Provider{clients.WorkersAI, clients.OpenAI}

	return Services{
		Ingestion: ingestion.NewService(
			log, clients.Hansard, clients.Store, clients.Cache,
			repos.Records, repos.Runs,
		),
		Moments: moments.NewService(
			log, clients.Store, clients.Cache,
			clients.OpenAI, embedChain, clients.Vectors, repos.Runs,
		),
		VideoMatch: videomatch.NewService(
			log, clients.YouTube, clients.Store, clients.Cache, repos.Runs,
		),
		RagChat: ragchat.NewService(
			log, clients.Store, clients.Cache,
			embedChain, chatProviders, clients.Vectors, repos.Runs,
		),
	}
}
