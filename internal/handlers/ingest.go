package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/goingest/internal/ingest"
	"github.com/jonesrussell/goingest/internal/logger"
	"github.com/jonesrussell/goingest/internal/models"
	"github.com/jonesrussell/goingest/internal/repository"
)

// CrawlRunner ingests a batch of crawled items for one source.
type CrawlRunner interface {
	RunCrawl(ctx context.Context, org, sourceID string, items []ingest.RawItem) (*models.CrawlResult, error)
}

// SourceResolver looks up the crawl target before a batch is accepted.
type SourceResolver interface {
	GetByID(ctx context.Context, id string) (*models.Source, error)
}

type IngestHandler struct {
	runner  CrawlRunner
	sources SourceResolver
	logger  logger.Logger
}

func NewIngestHandler(runner CrawlRunner, sources SourceResolver, log logger.Logger) *IngestHandler {
	return &IngestHandler{
		runner:  runner,
		sources: sources,
		logger:  log,
	}
}

type ingestRequest struct {
	Items []ingest.RawItem `json:"items" binding:"required"`
}

// Ingest runs one crawl batch against a source. Per-item failures are
// reported in the response body, not as an HTTP error; the request only
// fails when the crawl attempt itself cannot be recorded.
func (h *IngestHandler) Ingest(c *gin.Context) {
	org, ok := organization(c)
	if !ok {
		return
	}
	sourceID := c.Param("id")

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body",
			logger.String("source_id", sourceID),
			logger.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	source, err := h.sources.GetByID(c.Request.Context(), sourceID)
	if err != nil {
		if errors.Is(err, repository.ErrSourceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
			return
		}
		h.logger.Error("Failed to resolve source",
			logger.String("source_id", sourceID),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve source"})
		return
	}
	// Another tenant's sources are indistinguishable from missing ones.
	if source.OrganizationSlug != org {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	result, err := h.runner.RunCrawl(c.Request.Context(), org, sourceID, req.Items)
	if err != nil {
		h.logger.Error("Crawl ingestion failed",
			logger.String("source_id", sourceID),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Crawl ingestion failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
