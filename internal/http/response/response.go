package response

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yungbote/hansard-backend/internal/pkg/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAppError maps a taxonomy error onto its HTTP status. Rate limited
// responses carry a Retry-After header.
func RespondAppError(c *gin.Context, err error) {
	appErr := apperrors.AsError(err)
	if appErr == nil {
		RespondError(c, http.StatusInternalServerError, "internal", fmt.Errorf("unknown error"))
		return
	}
	if appErr.Kind == apperrors.KindRateLimit && appErr.RetryAfter > 0 {
		c.Header("Retry-After", fmt.Sprintf("%d", int(appErr.RetryAfter.Seconds())))
	}
	RespondError(c, appErr.HTTPStatus(), string(appErr.Kind), appErr)
}
