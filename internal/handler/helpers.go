package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	apperr "github.com/seekerhut/ticketrag/internal/pkg/errors"
	"github.com/seekerhut/ticketrag/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err != nil {
		requestID, _ := c.Get("request_id")
		logutil.GetLogger(c.Request.Context()).Error("request failed",
			zap.Any("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	switch {
	case err == nil:
		return
	case errors.Is(err, apperr.ErrValidation):
		response.Error(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, apperr.ErrFormat):
		response.Error(c, http.StatusBadRequest, "format_error", err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		response.Error(c, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, apperr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, apperr.ErrStoreUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "store_unavailable", "vector store unavailable")
	case errors.Is(err, apperr.ErrEmbeddingUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "embedding_unavailable", "embedding backend unavailable")
	default:
		response.Error(c, http.StatusInternalServerError, "internal", "internal error")
	}
}
