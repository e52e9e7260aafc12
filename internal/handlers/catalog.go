package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/miniworld/modgen/internal/catalog"
	"github.com/miniworld/modgen/internal/middleware"
	"github.com/miniworld/modgen/internal/models"
	"github.com/miniworld/modgen/internal/synth"
	"go.uber.org/zap"
)

// CatalogHandler serves creature listings
type CatalogHandler struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
}

func NewCatalogHandler(cat *catalog.Catalog, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: cat, logger: logger}
}

// FamilyResponse is one family with its members and highest tier
type FamilyResponse struct {
	Key     string             `json:"key"`
	Members []catalog.Creature `json:"members"`
	Highest catalog.Creature   `json:"highest"`
}

// ListCreatures returns every creature sorted by copy id, or fuzzy matches
// for q.
//
// @Summary List creatures
// @Tags catalog
// @Param q query string false "fuzzy name search"
// @Param limit query int false "max search results"
// @Success 200 {object} map[string]interface{}
// @Router /creatures [get]
func (h *CatalogHandler) ListCreatures(c *gin.Context) {
	if q := c.Query("q"); q != "" {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if err != nil || limit <= 0 {
			middleware.BadRequest(c, "limit must be a positive integer")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"query":   q,
			"matches": h.catalog.Search(q, limit),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"variant":   h.catalog.Variant(),
		"count":     h.catalog.Len(),
		"creatures": h.catalog.SortedByCopyID(),
	})
}

// GetCreature returns one creature by copy id
//
// @Summary Creature info
// @Tags catalog
// @Param copyId path int true "copy id"
// @Success 200 {object} catalog.Creature
// @Failure 404 {object} middleware.ErrorResponse
// @Router /creatures/{copyId} [get]
func (h *CatalogHandler) GetCreature(c *gin.Context) {
	copyID, err := strconv.Atoi(c.Param("copyId"))
	if err != nil {
		middleware.BadRequest(c, "copy id must be an integer")
		return
	}
	cr, err := h.catalog.Lookup(copyID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}

// ListFamilies returns every family in catalog order
//
// @Summary List families
// @Tags catalog
// @Success 200 {array} FamilyResponse
// @Router /families [get]
func (h *CatalogHandler) ListFamilies(c *gin.Context) {
	keys := h.catalog.Families()
	out := make([]FamilyResponse, 0, len(keys))
	for _, key := range keys {
		members, err := h.catalog.Family(key)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		highest, err := h.catalog.HighestTier(key)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		out = append(out, FamilyResponse{Key: key, Members: members, Highest: highest})
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(out),
		"families": out,
		"warnings": h.catalog.Warnings(),
	})
}

// DocumentSchema returns the JSON schema of one generated document category.
//
// @Summary Document JSON schema
// @Tags catalog
// @Param category path string true "actor, horse, crafting or item"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} middleware.ErrorResponse
// @Router /schemas/{category} [get]
func (h *CatalogHandler) DocumentSchema(c *gin.Context) {
	schema, err := synth.Schema(models.Category(c.Param("category")))
	if err != nil {
		middleware.NotFound(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, schema)
}
