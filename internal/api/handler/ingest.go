package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goalpost/feedsync/internal/api/middleware"
	"github.com/goalpost/feedsync/internal/domain"
	"github.com/goalpost/feedsync/internal/service"
)

// IngestHandler handles on-demand ingestion endpoints.
type IngestHandler struct {
	ingest *service.IngestService
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

type runRequest struct {
	Trigger string `json:"trigger"`
}

// Run handles POST /api/v1/ingest/run. It processes all active feeds
// synchronously and returns the run record.
func (h *IngestHandler) Run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	trigger := domain.TriggerManual
	if req.Trigger != "" {
		trigger = domain.TriggerType(req.Trigger)
		if !trigger.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unknown trigger type: " + req.Trigger,
			})
			return
		}
	}

	record, err := h.ingest.RunAll(c.Request.Context(), trigger)
	if err != nil {
		middleware.GetLogger(c).WithError(err).Error("Batch ingestion failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
			"run":   record,
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

// RunFeed handles POST /api/v1/ingest/feeds/:id. It processes a single
// feed with no recency filter and returns the per-feed outcome.
func (h *IngestHandler) RunFeed(c *gin.Context) {
	result, err := h.ingest.RunFeed(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	status := http.StatusOK
	if result.Status == domain.FeedOutcomeError {
		status = http.StatusBadGateway
	}
	c.JSON(status, result)
}
