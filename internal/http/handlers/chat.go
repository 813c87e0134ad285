package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/hansard-backend/internal/data/repos/catalog"
	"github.com/yungbote/hansard-backend/internal/http/response"
	"github.com/yungbote/hansard-backend/internal/ingestion"
	"github.com/yungbote/hansard-backend/internal/pkg/dbctx"
	apperrors "github.com/yungbote/hansard-backend/internal/pkg/errors"
	"github.com/yungbote/hansard-backend/internal/ragchat"
)

type ChatHandler struct {
	chat    ragchat.Service
	records catalog.TranscriptRecordRepo
}

func NewChatHandler(chat ragchat.Service, records catalog.TranscriptRecordRepo) *ChatHandler {
	return &ChatHandler{chat: chat, records: records}
}

// POST /chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ragchat.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	answer, err := h.chat.Chat(c.Request.Context(), req)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, answer)
}

// POST /chat-stream
//
// Plain-text fragments; model name and citation count travel as headers,
// committed just before the first fragment.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req ragchat.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	committed := false
	_, err := h.chat.ChatStream(c.Request.Context(), req,
		func(model string, citations int) {
			c.Header("X-Model-Used", model)
			c.Header("X-Citations-Count", strconv.Itoa(citations))
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Writer.WriteHeader(http.StatusOK)
			committed = true
		},
		func(delta string) {
			if _, werr := c.Writer.WriteString(delta); werr != nil {
				return
			}
			c.Writer.Flush()
		})
	if err != nil && !committed {
		response.RespondAppError(c, err)
	}
}

type embedSessionReq struct {
	TranscriptID string `json:"transcript_id"`
	Force        bool   `json:"force,omitempty"`
}

// POST /embed-session
func (h *ChatHandler) EmbedSession(c *gin.Context) {
	var req embedSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	status, err := h.chat.EmbedSession(c.Request.Context(), req.TranscriptID, req.Force)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, status)
}

type bulkEmbedReq struct {
	TranscriptIDs []string `json:"transcript_ids"`
	Force         bool     `json:"force,omitempty"`
}

// POST /bulk-embed
func (h *ChatHandler) BulkEmbed(c *gin.Context) {
	var req bulkEmbedReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	items := h.chat.BulkEmbed(c.Request.Context(), req.TranscriptIDs, req.Force)
	response.RespondOK(c, gin.H{"items": items})
}

// GET /session/:date/status
//
// The path segment accepts either a sitting date (resolved through the
// catalog) or a full transcript id.
func (h *ChatHandler) SessionStatus(c *gin.Context) {
	transcriptID, err := h.resolveSession(c, c.Param("date"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	status, err := h.chat.SessionStatus(c.Request.Context(), transcriptID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"transcript_id": transcriptID, "status": status})
}

func (h *ChatHandler) resolveSession(c *gin.Context, param string) (string, error) {
	param = strings.TrimSpace(param)
	if param == "" {
		return "", apperrors.BadRequest("session date or transcript id required")
	}

	iso, err := ingestion.CanonicalDate(param)
	if err != nil {
		// Not a date; treat it as a transcript id.
		return param, nil
	}
	if h.records == nil {
		return "", apperrors.Configuration("transcript catalog unavailable for date lookup")
	}
	rec, err := h.records.GetBySittingDate(dbctx.Context{Ctx: c.Request.Context()}, iso)
	if err != nil {
		return "", apperrors.Store("look up sitting", err)
	}
	if rec == nil {
		return "", apperrors.NotFound("no transcript for sitting " + iso)
	}
	return rec.TranscriptID, nil
}
