package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goalpost/feedsync/internal/api/middleware"
	"github.com/goalpost/feedsync/internal/domain"
	"github.com/goalpost/feedsync/internal/repository"
	"github.com/goalpost/feedsync/internal/service"
)

// FeedHandler handles feed source management endpoints.
type FeedHandler struct {
	feeds     *repository.FeedRepository
	snapshots *repository.SnapshotRepository
	ingest    *service.IngestService
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(feeds *repository.FeedRepository, snapshots *repository.SnapshotRepository, ingest *service.IngestService) *FeedHandler {
	return &FeedHandler{
		feeds:     feeds,
		snapshots: snapshots,
		ingest:    ingest,
	}
}

type createFeedRequest struct {
	Name        string `json:"name" binding:"required"`
	URL         string `json:"url" binding:"required,url"`
	Description string `json:"description"`
	BoardID     string `json:"board_id" binding:"required"`
}

type updateFeedRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ListFeeds handles GET /api/v1/feeds.
func (h *FeedHandler) ListFeeds(c *gin.Context) {
	feeds, err := h.feeds.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list feeds: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"total": len(feeds),
	})
}

// GetFeed handles GET /api/v1/feeds/:id.
func (h *FeedHandler) GetFeed(c *gin.Context) {
	feed, err := h.feeds.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get feed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, feed)
}

// CreateFeed handles POST /api/v1/feeds. The feed URL is fetched and
// parsed before registration so broken URLs are rejected up front.
func (h *FeedHandler) CreateFeed(c *gin.Context) {
	var req createFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	items, err := h.ingest.CheckFeed(c.Request.Context(), req.URL)
	if err != nil {
		middleware.GetLogger(c).WithError(err).Warn("Feed validation failed")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Feed URL is not a readable feed: " + err.Error(),
		})
		return
	}

	now := time.Now()
	feed := &domain.FeedSource{
		ID:          uuid.New().String(),
		Name:        req.Name,
		URL:         req.URL,
		Description: req.Description,
		BoardID:     req.BoardID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.feeds.Create(c.Request.Context(), feed); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create feed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"feed":        feed,
		"items_found": items,
	})
}

// UpdateFeed handles PATCH /api/v1/feeds/:id.
func (h *FeedHandler) UpdateFeed(c *gin.Context) {
	var req updateFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	id := c.Param("id")
	if err := h.feeds.SetActive(c.Request.Context(), id, *req.IsActive); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update feed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        id,
		"is_active": *req.IsActive,
	})
}

// ListSnapshots handles GET /api/v1/feeds/:id/snapshots, returning the
// most recently published snapshots ingested from one source.
func (h *FeedHandler) ListSnapshots(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	id := c.Param("id")
	if _, err := h.feeds.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get feed: " + err.Error(),
		})
		return
	}

	snapshots, err := h.snapshots.ListByFeed(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list snapshots: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshots": snapshots,
		"total":     len(snapshots),
	})
}

// DeleteFeed handles DELETE /api/v1/feeds/:id.
func (h *FeedHandler) DeleteFeed(c *gin.Context) {
	id := c.Param("id")
	if err := h.feeds.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete feed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
}
