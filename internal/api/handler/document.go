package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/goalpost/feedsync/internal/repository"
)

// DocumentHandler handles display document read endpoints.
type DocumentHandler struct {
	documents *repository.DocumentRepository
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(documents *repository.DocumentRepository) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// ListByBoard handles GET /api/v1/boards/:id/documents.
func (h *DocumentHandler) ListByBoard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	docs, err := h.documents.ListByBoard(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list documents: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     len(docs),
	})
}
