package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/miniworld/modgen/internal/allocator"
	"github.com/miniworld/modgen/internal/eventbus"
)

const (
	serviceName = "modgen"
	version     = "0.1.0"

	probeTimeout = 5 * time.Second
)

// Probe is the outcome of checking one dependency.
type Probe struct {
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Latency string `json:"latency,omitempty"`
}

func (p Probe) healthy() bool { return p.Status != "unhealthy" }

// HealthResponse is the body of /health/deep.
type HealthResponse struct {
	Status       string           `json:"status"`
	Service      string           `json:"service"`
	Version      string           `json:"version"`
	Dependencies map[string]Probe `json:"dependencies"`
	// Counters is omitted when the allocator cannot be read.
	Counters *allocator.State `json:"counters,omitempty"`
}

type HealthHandler struct {
	alloc   allocator.Store
	backend string
	events  eventbus.Publisher
}

func NewHealthHandler(alloc allocator.Store, backend string, events eventbus.Publisher) *HealthHandler {
	return &HealthHandler{alloc: alloc, backend: backend, events: events}
}

// Health is the liveness probe. It touches no dependency.
//
// @Summary Liveness probe
// @Tags health
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName, "version": version})
}

// DeepHealth pings the id allocator and the event bus and reports the
// current counters. Any unhealthy dependency turns the response into a 503.
//
// @Summary Dependency health
// @Tags health
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health/deep [get]
func (h *HealthHandler) DeepHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:       "healthy",
		Service:      serviceName,
		Version:      version,
		Dependencies: map[string]Probe{"allocator": h.probeAllocator(ctx), "nats": h.probeEvents()},
	}
	if resp.Dependencies["allocator"].healthy() {
		if state, err := h.alloc.Snapshot(ctx); err == nil {
			resp.Counters = &state
		}
	}

	code := http.StatusOK
	for _, p := range resp.Dependencies {
		if !p.healthy() {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, resp)
}

func (h *HealthHandler) probeAllocator(ctx context.Context) Probe {
	start := time.Now()
	if err := h.alloc.Ping(ctx); err != nil {
		return Probe{Status: "unhealthy", Detail: err.Error()}
	}
	return Probe{Status: "healthy", Detail: h.backend, Latency: time.Since(start).String()}
}

func (h *HealthHandler) probeEvents() Probe {
	if _, off := h.events.(eventbus.Noop); off || h.events == nil {
		return Probe{Status: "disabled"}
	}
	if h.events.Healthy() {
		return Probe{Status: "healthy"}
	}
	return Probe{Status: "unhealthy", Detail: "not connected"}
}
