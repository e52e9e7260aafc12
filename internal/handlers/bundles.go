package handlers

import (
	"mime"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/miniworld/modgen/internal/bundles"
	"github.com/miniworld/modgen/internal/packaging"
	"go.uber.org/zap"
)

// previewLength is the number of characters shown before "...".
const previewLength = 500

// BundleHandler serves stored bundles
type BundleHandler struct {
	store  *bundles.Store
	logger *zap.Logger
}

func NewBundleHandler(store *bundles.Store, logger *zap.Logger) *BundleHandler {
	return &BundleHandler{store: store, logger: logger}
}

// FilePreview is one file of a preview response
type FilePreview struct {
	FileInfo
	Preview string `json:"preview"`
	Content string `json:"content"`
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// List returns live bundles, newest first
//
// @Summary List stored bundles
// @Tags bundles
// @Success 200 {object} map[string]interface{}
// @Router /bundles [get]
func (h *BundleHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bundles": h.store.List()})
}

// Preview returns every file of a bundle with a shortened preview
//
// @Summary Preview a bundle
// @Tags bundles
// @Param key path string true "bundle key"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} middleware.ErrorResponse
// @Router /bundles/{key}/preview [get]
func (h *BundleHandler) Preview(c *gin.Context) {
	b, err := h.store.Get(c.Param("key"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	files := b.Files()
	previews := make([]FilePreview, 0, len(files))
	for i, f := range files {
		previews = append(previews, FilePreview{
			FileInfo: fileInfos(files[i : i+1])[0],
			Preview:  truncate(f.Content, previewLength),
			Content:  f.Content,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"bundle": b,
		"files":  previews,
	})
}

// Download sends the bundle's ZIP archive
//
// @Summary Download a bundle archive
// @Tags bundles
// @Produce application/zip
// @Param key path string true "bundle key"
// @Success 200 {file} binary
// @Failure 404 {object} middleware.ErrorResponse
// @Router /bundles/{key}/download [get]
func (h *BundleHandler) Download(c *gin.Context) {
	b, err := h.store.Get(c.Param("key"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	attachment(c, b.ArchiveName)
	c.Data(http.StatusOK, "application/zip", b.Archive)
}

// DownloadFile sends one JSON document of a bundle
//
// @Summary Download one document
// @Tags bundles
// @Produce json
// @Param key path string true "bundle key"
// @Param filename path string true "file name"
// @Success 200 {file} binary
// @Failure 404 {object} middleware.ErrorResponse
// @Router /bundles/{key}/files/{filename} [get]
func (h *BundleHandler) DownloadFile(c *gin.Context) {
	b, err := h.store.Get(c.Param("key"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	f, ok := b.File(c.Param("filename"))
	if !ok {
		respondError(c, h.logger, bundles.ErrNotFound)
		return
	}
	attachment(c, f.Name)
	c.Header("X-Archive-Path", packaging.EntryPath(f))
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(f.Content))
}

func attachment(c *gin.Context, name string) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
}
