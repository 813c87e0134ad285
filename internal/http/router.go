package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/hansard-backend/internal/http/handlers"
	httpMW "github.com/yungbote/hansard-backend/internal/http/middleware"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	HealthHandler     *httpH.HealthHandler
	IngestHandler     *httpH.IngestHandler
	TranscriptHandler *httpH.TranscriptHandler
	MomentsHandler    *httpH.MomentsHandler
	VideoHandler      *httpH.VideoHandler
	ChatHandler       *httpH.ChatHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("hansard-backend"))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	if cfg.TranscriptHandler != nil {
		r.GET("/transcripts/:id", cfg.TranscriptHandler.Get)
	}

	if cfg.ChatHandler != nil {
		r.POST("/chat", cfg.ChatHandler.Chat)
		r.POST("/chat-stream", cfg.ChatHandler.ChatStream)
		r.POST("/embed-session", cfg.ChatHandler.EmbedSession)
		r.POST("/bulk-embed", cfg.ChatHandler.BulkEmbed)
		r.GET("/session/:date/status", cfg.ChatHandler.SessionStatus)
	}

	api := r.Group("/api")
	{
		if cfg.IngestHandler != nil {
			api.POST("/ingest/hansard", cfg.IngestHandler.Ingest)
		}

		if cfg.TranscriptHandler != nil {
			api.GET("/transcripts", cfg.TranscriptHandler.List)
		}

		if cfg.MomentsHandler != nil {
			api.POST("/moments/extract", cfg.MomentsHandler.Extract)
			api.POST("/moments/analyze", cfg.MomentsHandler.Analyze)
			api.POST("/moments/batch", cfg.MomentsHandler.Batch)
			api.GET("/moments/search", cfg.MomentsHandler.Search)
		}

		if cfg.VideoHandler != nil {
			api.POST("/video/match", cfg.VideoHandler.Match)
			api.POST("/video/find-timestamp", cfg.VideoHandler.FindTimestamp)
			api.GET("/video/match/:transcript_id", cfg.VideoHandler.GetMatch)
		}
	}

	return r
}
