package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/miniworld/modgen/internal/bundles"
	"github.com/miniworld/modgen/internal/generator"
	"github.com/miniworld/modgen/internal/middleware"
	"github.com/miniworld/modgen/internal/models"
	"github.com/miniworld/modgen/internal/packaging"
	"github.com/miniworld/modgen/internal/telemetry"
	"go.uber.org/zap"
)

// GenerationHandler handles single-creature generation
type GenerationHandler struct {
	svc     *generator.Service
	store   *bundles.Store
	signer  *packaging.Signer
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(svc *generator.Service, store *bundles.Store, signer *packaging.Signer, metrics *telemetry.Metrics, logger *zap.Logger) *GenerationHandler {
	return &GenerationHandler{svc: svc, store: store, signer: signer, metrics: metrics, logger: logger}
}

// FileInfo describes one generated file
type FileInfo struct {
	Name     string          `json:"name"`
	Category models.Category `json:"category"`
	Path     string          `json:"path"`
	Size     int             `json:"size"`
}

// GenerateResponse is returned after a successful generation
type GenerateResponse struct {
	Key         string     `json:"key"`
	ModID       int64      `json:"mod_id"`
	ResultID    int64      `json:"result_id"`
	CopyID      int        `json:"copy_id"`
	Name        string     `json:"name"`
	Author      string     `json:"author"`
	Files       []FileInfo `json:"files"`
	ArchiveName string     `json:"archive_name"`
	PreviewURL  string     `json:"preview_url"`
	DownloadURL string     `json:"download_url"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

func fileInfos(files []models.GeneratedFile) []FileInfo {
	out := make([]FileInfo, 0, len(files))
	for _, f := range files {
		out = append(out, FileInfo{
			Name:     f.Name,
			Category: f.Category,
			Path:     packaging.EntryPath(f),
			Size:     len(f.Content),
		})
	}
	return out
}

func bundleURL(key, suffix string) string {
	return "/api/v1/bundles/" + key + "/" + suffix
}

// Generate synthesizes the four documents for one creature. Accepts JSON
// (mod_id, copy_id, author) or form fields (id_value, creature_select,
// author_value).
//
// @Summary Generate a creature bundle
// @Tags generation
// @Accept json
// @Produce json
// @Param request body generator.Input true "generation input"
// @Success 201 {object} GenerateResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /generate [post]
func (h *GenerationHandler) Generate(c *gin.Context) {
	var in generator.Input
	if err := c.ShouldBind(&in); err != nil {
		middleware.RespondErrorWithDetails(c, http.StatusBadRequest, middleware.ErrCodeBadRequest, "invalid generation input", err.Error())
		return
	}

	res, err := h.svc.Generate(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	now := time.Now()
	archive, _, err := h.signer.Bytes(res.Author, []*models.GenerationResult{res}, now)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	b := h.store.Put(&bundles.Bundle{
		Kind:        bundles.KindSingle,
		Author:      res.Author,
		ArchiveName: packaging.SingleArchiveName(res.Creature),
		Archive:     archive,
		Results:     []*models.GenerationResult{res},
	})
	h.metrics.SetStoredBundles(h.store.Len())

	c.JSON(http.StatusCreated, GenerateResponse{
		Key:         b.Key,
		ModID:       res.ModID,
		ResultID:    res.ResultID,
		CopyID:      res.Creature.CopyID,
		Name:        res.Creature.Name,
		Author:      res.Author,
		Files:       fileInfos(res.Files),
		ArchiveName: b.ArchiveName,
		PreviewURL:  bundleURL(b.Key, "preview"),
		DownloadURL: bundleURL(b.Key, "download"),
		ExpiresAt:   b.ExpiresAt,
	})
}
