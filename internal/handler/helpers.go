package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"boardtex/internal/pkg/errcode"
	appErr "boardtex/internal/pkg/errors"
	"boardtex/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrTooLarge):
		response.Error(c, errcode.ErrFileTooLarge, "file too large")
	case errors.Is(err, appErr.ErrAllPhotosFailed):
		response.Error(c, errcode.ErrAllPhotosFailed, "all photos failed")
	case errors.Is(err, appErr.ErrFallbackUnavailable):
		response.Error(c, errcode.ErrChatFailed, "assistant unavailable")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
