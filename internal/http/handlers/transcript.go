package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/hansard-backend/internal/http/response"
	"github.com/yungbote/hansard-backend/internal/ingestion"
)

type TranscriptHandler struct {
	ingest ingestion.Service
}

func NewTranscriptHandler(ingest ingestion.Service) *TranscriptHandler {
	return &TranscriptHandler{ingest: ingest}
}

// GET /transcripts/:id
func (h *TranscriptHandler) Get(c *gin.Context) {
	transcript, err := h.ingest.GetTranscript(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, transcript)
}

// GET /api/transcripts?limit=50&offset=0
func (h *TranscriptHandler) List(c *gin.Context) {
	limit, offset := 50, 0
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := strings.TrimSpace(c.Query("offset")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	records, total, err := h.ingest.ListTranscripts(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"transcripts": records, "total": total})
}
