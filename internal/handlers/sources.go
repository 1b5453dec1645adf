package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/goingest/internal/logger"
	"github.com/jonesrussell/goingest/internal/models"
	"github.com/jonesrussell/goingest/internal/repository"
)

// SourceRegistry is the slice of the source repository the handler needs.
type SourceRegistry interface {
	FindOrCreate(ctx context.Context, org, url string, attrs repository.SourceAttrs) (*models.Source, bool, error)
	GetByID(ctx context.Context, id string) (*models.Source, error)
	FindDueForCrawl(ctx context.Context, frequencyMinutes int) ([]models.SourceDueForCrawl, error)
}

type SourceHandler struct {
	registry SourceRegistry
	logger   logger.Logger
}

func NewSourceHandler(registry SourceRegistry, log logger.Logger) *SourceHandler {
	return &SourceHandler{
		registry: registry,
		logger:   log,
	}
}

type registerSourceRequest struct {
	URL                   string            `json:"url" binding:"required"`
	Name                  string            `json:"name"`
	SourceType            models.SourceType `json:"source_type"`
	CrawlConfig           models.JSONMap    `json:"crawl_config"`
	AuthConfig            models.JSONMap    `json:"auth_config"`
	CrawlFrequencyMinutes int               `json:"crawl_frequency_minutes"`
	IsActive              *bool             `json:"is_active"`
	IsTest                bool              `json:"is_test"`
}

// Register finds or creates the source for (organization, url). The same
// request is safe to repeat: an existing source comes back with 200 instead
// of 201 and its stored attributes untouched.
func (h *SourceHandler) Register(c *gin.Context) {
	org, ok := organization(c)
	if !ok {
		return
	}

	var req registerSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body",
			logger.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	source, created, err := h.registry.FindOrCreate(c.Request.Context(), org, req.URL, repository.SourceAttrs{
		Name:                  req.Name,
		SourceType:            req.SourceType,
		CrawlConfig:           req.CrawlConfig,
		AuthConfig:            req.AuthConfig,
		CrawlFrequencyMinutes: req.CrawlFrequencyMinutes,
		IsActive:              active,
		IsTest:                req.IsTest,
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to register source",
			logger.String("url", req.URL),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register source"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.logger.Info("Source created",
			logger.String("source_id", source.ID),
			logger.String("organization", org),
			logger.String("url", source.URL),
		)
	}

	c.JSON(status, gin.H{"source": source, "created": created})
}

func (h *SourceHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	source, err := h.registry.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSourceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
			return
		}
		h.logger.Error("Failed to get source",
			logger.String("source_id", id),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get source"})
		return
	}

	c.JSON(http.StatusOK, source)
}

// ListDue returns active sources whose crawl interval has elapsed, for
// schedulers that poll instead of subscribing to events.
func (h *SourceHandler) ListDue(c *gin.Context) {
	frequency := 0
	if raw := c.Query("frequency"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid frequency parameter"})
			return
		}
		frequency = parsed
	}

	due, err := h.registry.FindDueForCrawl(c.Request.Context(), frequency)
	if err != nil {
		h.logger.Error("Failed to list due sources",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list due sources"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": due,
		"count":   len(due),
	})
}
