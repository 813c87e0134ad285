package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/hansard-backend/internal/clients/gcp"
	"github.com/yungbote/hansard-backend/internal/clients/hansard"
	"github.com/yungbote/hansard-backend/internal/clients/openai"
	"github.com/yungbote/hansard-backend/internal/clients/pinecone"
	"github.com/yungbote/hansard-backend/internal/clients/redis"
	"github.com/yungbote/hansard-backend/internal/clients/workersai"
	"github.com/yungbote/hansard-backend/internal/clients/youtube"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
)

// Clients holds every external binding. Store, Cache and Vectors are
// required; the rest stay nil when their credentials are absent and the
// services that depend on them answer with a configuration error instead.
type Clients struct {
	Hansard   hansard.Client
	Store     gcp.ObjectStore
	Cache     redis.KV
	Vectors   pinecone.VectorStore
	OpenAI    openai.Client
	WorkersAI workersai.Client
	YouTube   youtube.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	fetcher, err := hansard.NewClient(log)
	if err != nil {
		return c, fmt.Errorf("init hansard client: %w", err)
	}
	c.Hansard = fetcher

	store, err := gcp.NewBucketService(log)
	if err != nil {
		return c, fmt.Errorf("init bucket service: %w", err)
	}
	c.Store = store

	cache, err := redis.NewKV(log)
	if err != nil {
		return c, fmt.Errorf("init redis kv: %w", err)
	}
	c.Cache = cache

	pc, err := pinecone.New(log, pinecone.Config{
		APIKey: strings.TrimSpace(os.Getenv("PINECONE_API_KEY")),
	})
	if err != nil {
		return c, fmt.Errorf("init pinecone client: %w", err)
	}
	vectors, err := pinecone.NewVectorStore(log, pc)
	if err != nil {
		return c, fmt.Errorf("init vector store: %w", err)
	}
	c.Vectors = vectors

	if oa, err := openai.NewClient(log); err != nil {
		log.Warn("OpenAI client unavailable", "error", err)
	} else {
		c.OpenAI = oa
	}

	if wa, err := workersai.NewClient(log); err != nil {
		log.Warn("Workers AI client unavailable", "error", err)
	} else {
		c.WorkersAI = wa
	}

	if yt, err := youtube.NewClient(log); err != nil {
		log.Warn("YouTube client unavailable", "error", err)
	} else {
		c.YouTube = yt
	}

	return c, nil
}
