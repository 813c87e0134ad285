package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/hansard-backend/internal/domain"
	"github.com/yungbote/hansard-backend/internal/http/response"
	"github.com/yungbote/hansard-backend/internal/moments"
)

var errQuoteRequired = errors.New("quote required")

type MomentsHandler struct {
	moments moments.Service
}

func NewMomentsHandler(svc moments.Service) *MomentsHandler {
	return &MomentsHandler{moments: svc}
}

type extractReq struct {
	TranscriptID string                     `json:"transcript_id"`
	Criteria     *domain.ExtractionCriteria `json:"criteria,omitempty"`
}

// POST /api/moments/extract
func (h *MomentsHandler) Extract(c *gin.Context) {
	var req extractReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	result, err := h.moments.Extract(c.Request.Context(), req.TranscriptID, req.Criteria)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, result)
}

type analyzeReq struct {
	Quote string `json:"quote"`
	Topic string `json:"topic,omitempty"`
	Tone  string `json:"tone,omitempty"`
}

// POST /api/moments/analyze
func (h *MomentsHandler) Analyze(c *gin.Context) {
	var req analyzeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Quote) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errQuoteRequired)
		return
	}
	response.RespondOK(c, h.moments.Analyze(req.Quote, req.Topic, req.Tone))
}

type batchReq struct {
	TranscriptIDs []string                   `json:"transcript_ids"`
	Criteria      *domain.ExtractionCriteria `json:"criteria,omitempty"`
}

// POST /api/moments/batch
func (h *MomentsHandler) Batch(c *gin.Context) {
	var req batchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	items := h.moments.ExtractBatch(c.Request.Context(), req.TranscriptIDs, req.Criteria)
	response.RespondOK(c, gin.H{"items": items})
}

// GET /api/moments/search?q=&limit=
func (h *MomentsHandler) Search(c *gin.Context) {
	limit := 0
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	hits, err := h.moments.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"results": hits})
}
