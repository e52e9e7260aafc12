package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/miniworld/modgen/internal/bundles"
	"github.com/miniworld/modgen/internal/dispatch"
	"github.com/miniworld/modgen/internal/generator"
	"github.com/miniworld/modgen/internal/middleware"
	"github.com/miniworld/modgen/internal/models"
	"github.com/miniworld/modgen/internal/packaging"
	"github.com/miniworld/modgen/internal/telemetry"
	"go.uber.org/zap"
)

// BatchJobs is the registry type used for background batch runs.
type BatchJobs = dispatch.Jobs[BatchSummary, generator.Progress]

// BatchHandler runs the highest tier of every family
type BatchHandler struct {
	svc      *generator.Service
	store    *bundles.Store
	signer   *packaging.Signer
	jobs     *BatchJobs
	metrics  *telemetry.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewBatchHandler(svc *generator.Service, store *bundles.Store, signer *packaging.Signer, jobs *BatchJobs, metrics *telemetry.Metrics, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{
		svc:     svc,
		store:   store,
		signer:  signer,
		jobs:    jobs,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// BatchRequest names the author of a batch run
type BatchRequest struct {
	Author string `json:"author" form:"author_value"`
}

// BatchSummary describes a finished batch run and its stored archive
type BatchSummary struct {
	Key         string                `json:"key"`
	ArchiveName string                `json:"archive_name"`
	Author      string                `json:"author"`
	Generated   int                   `json:"generated"`
	Failed      int                   `json:"failed"`
	Failures    []models.BatchFailure `json:"failures,omitempty"`
	TotalFiles  int                   `json:"total_files"`
	NextIDAfter int64                 `json:"next_id_after"`
	Duration    string                `json:"duration"`
	DownloadURL string                `json:"download_url"`
}

// StreamMessage is one websocket frame of a streamed batch
type StreamMessage struct {
	Type     string              `json:"type"`
	Message  string              `json:"message,omitempty"`
	Progress *generator.Progress `json:"progress,omitempty"`
	Summary  *BatchSummary       `json:"summary,omitempty"`
	Error    string              `json:"error,omitempty"`
}

func (h *BatchHandler) run(ctx context.Context, author string, progress generator.ProgressFunc) (BatchSummary, error) {
	res, err := h.svc.BatchRunner().RunAll(ctx, h.svc.Catalog(), author, progress)
	if err != nil {
		return BatchSummary{}, err
	}

	at := time.Now()
	archive, _, err := h.signer.Bytes(res.Author, res.Results, at)
	if err != nil {
		return BatchSummary{}, err
	}
	b := h.store.Put(&bundles.Bundle{
		Kind:        bundles.KindBatch,
		Author:      res.Author,
		ArchiveName: packaging.BatchArchiveName(res.Author, at),
		Archive:     archive,
		Results:     res.Results,
		Failures:    res.Failures,
	})
	h.metrics.SetStoredBundles(h.store.Len())

	return BatchSummary{
		Key:         b.Key,
		ArchiveName: b.ArchiveName,
		Author:      res.Author,
		Generated:   len(res.Results),
		Failed:      len(res.Failures),
		Failures:    res.Failures,
		TotalFiles:  res.FileCount(),
		NextIDAfter: res.NextIDAfter,
		Duration:    res.Duration.String(),
		DownloadURL: bundleURL(b.Key, "download"),
	}, nil
}

func (h *BatchHandler) bind(c *gin.Context) (string, bool) {
	var req BatchRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.RespondErrorWithDetails(c, http.StatusBadRequest, middleware.ErrCodeBadRequest, "invalid batch input", err.Error())
		return "", false
	}
	author, err := generator.ValidateAuthor(req.Author)
	if err != nil {
		respondError(c, h.logger, err)
		return "", false
	}
	return author, true
}

// Run generates the whole catalog and waits for the result
//
// @Summary Generate every family synchronously
// @Tags batch
// @Security Bearer
// @Param request body BatchRequest true "author"
// @Success 201 {object} BatchSummary
// @Failure 400 {object} middleware.ErrorResponse
// @Router /batch [post]
func (h *BatchHandler) Run(c *gin.Context) {
	author, ok := h.bind(c)
	if !ok {
		return
	}
	summary, err := h.run(c.Request.Context(), author, nil)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

// Submit starts a batch in the background
//
// @Summary Start a background batch
// @Tags batch
// @Security Bearer
// @Param request body BatchRequest true "author"
// @Success 202 {object} map[string]string
// @Router /batch/jobs [post]
func (h *BatchHandler) Submit(c *gin.Context) {
	author, ok := h.bind(c)
	if !ok {
		return
	}
	id, err := h.jobs.Submit(func(ctx context.Context, report func(generator.Progress)) (BatchSummary, error) {
		return h.run(ctx, author, report)
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"job_id":     id,
		"status":     dispatch.StatusQueued,
		"status_url": "/api/v1/batch/jobs/" + id,
	})
}

// GetJob reports a background batch
//
// @Summary Background batch status
// @Tags batch
// @Security Bearer
// @Param id path string true "job id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} middleware.ErrorResponse
// @Router /batch/jobs/{id} [get]
func (h *BatchHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Stream runs a batch and reports every creature over a websocket
//
// @Summary Stream batch progress
// @Tags batch
// @Security Bearer
// @Param author query string true "author"
// @Router /batch/stream [get]
func (h *BatchHandler) Stream(c *gin.Context) {
	author, err := generator.ValidateAuthor(c.Query("author"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	summary, err := h.run(c.Request.Context(), author, func(p generator.Progress) {
		msg := StreamMessage{
			Type:     "progress",
			Message:  fmt.Sprintf("%s (mod id %d)", p.Creature.Name, p.ModID),
			Progress: &p,
		}
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug("stream write failed", zap.Error(err))
		}
	})

	final := StreamMessage{Type: "done", Summary: &summary}
	if err != nil {
		final = StreamMessage{Type: "error", Error: err.Error()}
	}
	if err := conn.WriteJSON(final); err != nil {
		h.logger.Debug("stream write failed", zap.Error(err))
		return
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
