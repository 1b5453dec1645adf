package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/goingest/internal/logger"
	"github.com/jonesrussell/goingest/internal/models"
)

// ArticleReader is the slice of the article repository the handler needs.
type ArticleReader interface {
	FindNewSince(ctx context.Context, org string, sourceIDs []string, since time.Time, limit int) ([]models.Article, error)
}

type ArticleHandler struct {
	articles ArticleReader
	logger   logger.Logger
}

func NewArticleHandler(articles ArticleReader, log logger.Logger) *ArticleHandler {
	return &ArticleHandler{
		articles: articles,
		logger:   log,
	}
}

// ListNewForSource returns articles first seen after since for one source,
// oldest first with a stable id tie-break, so consumers can poll with the
// last timestamp they saw.
func (h *ArticleHandler) ListNewForSource(c *gin.Context) {
	org, ok := organization(c)
	if !ok {
		return
	}
	sourceID := c.Param("id")

	since, ok := sinceParam(c)
	if !ok {
		return
	}
	limit, ok := limitParam(c)
	if !ok {
		return
	}

	h.respondWithNewArticles(c, org, []string{sourceID}, since, limit)
}

// ListNew returns new articles across the sources named in the source_ids
// query parameter (comma-separated).
func (h *ArticleHandler) ListNew(c *gin.Context) {
	org, ok := organization(c)
	if !ok {
		return
	}

	raw := c.Query("source_ids")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_ids query parameter is required"})
		return
	}

	sourceIDs := make([]string, 0)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			sourceIDs = append(sourceIDs, id)
		}
	}
	if len(sourceIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_ids query parameter is required"})
		return
	}

	since, ok := sinceParam(c)
	if !ok {
		return
	}
	limit, ok := limitParam(c)
	if !ok {
		return
	}

	h.respondWithNewArticles(c, org, sourceIDs, since, limit)
}

func (h *ArticleHandler) respondWithNewArticles(c *gin.Context, org string, sourceIDs []string, since time.Time, limit int) {
	articles, err := h.articles.FindNewSince(c.Request.Context(), org, sourceIDs, since, limit)
	if err != nil {
		h.logger.Error("Failed to list new articles",
			logger.Strings("source_ids", sourceIDs),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list new articles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"count":    len(articles),
		"since":    since.UTC(),
	})
}
