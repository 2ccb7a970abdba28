package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/heartwall/internal/common"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
}

// statusFor maps service errors to HTTP status codes. Storage failures are
// reported with a generic message so backend details stay in the logs.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrNotImage):
		return http.StatusUnsupportedMediaType, err.Error()
	case common.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, common.GenericUploadFailure
	}
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Message: msg})
}
