package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/hansard-backend/internal/http/response"
	"github.com/yungbote/hansard-backend/internal/ingestion"
)

type IngestHandler struct {
	ingest ingestion.Service
}

func NewIngestHandler(ingest ingestion.Service) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// POST /api/ingest/hansard
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req ingestion.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	result, err := h.ingest.Ingest(c.Request.Context(), req)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, result)
}
