package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/hansard-backend/internal/http/response"
	"github.com/yungbote/hansard-backend/internal/videomatch"
)

type VideoHandler struct {
	video videomatch.Service
}

func NewVideoHandler(svc videomatch.Service) *VideoHandler {
	return &VideoHandler{video: svc}
}

// POST /api/video/match
func (h *VideoHandler) Match(c *gin.Context) {
	var req videomatch.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	match, err := h.video.Match(c.Request.Context(), req)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, match)
}

// GET /api/video/match/:transcript_id
func (h *VideoHandler) GetMatch(c *gin.Context) {
	match, err := h.video.GetMatch(c.Request.Context(), c.Param("transcript_id"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, match)
}

// POST /api/video/find-timestamp
func (h *VideoHandler) FindTimestamp(c *gin.Context) {
	var req videomatch.FindTimestampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	estimate, err := h.video.FindTimestamp(c.Request.Context(), req)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, estimate)
}
