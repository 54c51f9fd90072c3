package handler

import (
	"errors"
	"net/http"

	"scene-prompt-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusClientClosedRequest - клиент закрыл соединение до ответа.
const statusClientClosedRequest = 499

func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	errResp := models.ErrorResponse{Code: models.CodeOf(err), Message: err.Error()}

	switch {
	case errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		errResp.Message = "Token is missing or invalid"
	case errors.Is(err, models.ErrBatchCancelled):
		if c.Request.Context().Err() != nil {
			statusCode = statusClientClosedRequest
		} else {
			statusCode = http.StatusServiceUnavailable
		}
	case errors.Is(err, models.ErrRateLimited):
		statusCode = http.StatusTooManyRequests
	case errors.Is(err, models.ErrModelUnavailable):
		statusCode = http.StatusServiceUnavailable
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Code: models.ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(statusCode, errResp)
}
