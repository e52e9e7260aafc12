package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/miniworld/modgen/internal/bundles"
	"github.com/miniworld/modgen/internal/catalog"
	"github.com/miniworld/modgen/internal/dispatch"
	"github.com/miniworld/modgen/internal/generator"
	"github.com/miniworld/modgen/internal/middleware"
	"go.uber.org/zap"
)

// respondError maps service errors onto API errors.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *generator.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.RespondErrorWithDetails(c, http.StatusBadRequest, middleware.ErrCodeBadRequest, verr.Message, verr.Field)
	case errors.Is(err, catalog.ErrNotFound):
		middleware.NotFound(c, "creature not found")
	case errors.Is(err, bundles.ErrNotFound):
		middleware.NotFound(c, err.Error())
	case errors.Is(err, dispatch.ErrJobNotFound):
		middleware.NotFound(c, err.Error())
	case errors.Is(err, generator.ErrAllocation):
		logger.Error("allocator failure", zap.Error(err))
		middleware.AllocatorUnavailable(c)
	case errors.Is(err, generator.ErrSynthesis):
		logger.Error("synthesis failure", zap.Error(err))
		middleware.SynthesisFailed(c, err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		middleware.InternalError(c, "internal server error")
	}
	_ = c.Error(err)
}
