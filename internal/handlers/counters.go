package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/miniworld/modgen/internal/allocator"
	"github.com/miniworld/modgen/internal/generator"
	"go.uber.org/zap"
)

// CounterHandler exposes the id allocator
type CounterHandler struct {
	alloc  allocator.Store
	logger *zap.Logger
}

func NewCounterHandler(alloc allocator.Store, logger *zap.Logger) *CounterHandler {
	return &CounterHandler{alloc: alloc, logger: logger}
}

// Get returns the next ids without consuming them
//
// @Summary Current counters
// @Tags counters
// @Success 200 {object} allocator.State
// @Router /counters [get]
func (h *CounterHandler) Get(c *gin.Context) {
	state, err := h.alloc.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, allocationErr(err))
		return
	}
	c.JSON(http.StatusOK, state)
}

// Reset restores both counters to their defaults
//
// @Summary Reset counters
// @Tags counters
// @Security Bearer
// @Success 200 {object} allocator.State
// @Router /counters/reset [post]
func (h *CounterHandler) Reset(c *gin.Context) {
	state, err := h.alloc.Reset(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, allocationErr(err))
		return
	}
	h.logger.Info("counters reset", zap.Int64("next_id", state.NextID), zap.Int64("next_result_id", state.NextResultID))
	c.JSON(http.StatusOK, state)
}

func allocationErr(err error) error {
	return fmt.Errorf("%w: %w", generator.ErrAllocation, err)
}
