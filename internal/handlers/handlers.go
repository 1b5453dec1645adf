// Package handlers implements the HTTP API for the ingestion service.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// OrganizationHeader carries the tenant for every /api/v1 request.
const OrganizationHeader = "X-Organization"

const (
	defaultArticleLimit = 100
	maxArticleLimit     = 500
)

// organization extracts the tenant slug from the request, answering 400 when
// it is missing. Every data-touching endpoint is organization-scoped.
func organization(c *gin.Context) (string, bool) {
	org := c.GetHeader(OrganizationHeader)
	if org == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Organization header is required"})
		return "", false
	}
	return org, true
}

// sinceParam parses the since query parameter (RFC 3339), defaulting to the
// last 24 hours.
func sinceParam(c *gin.Context) (time.Time, bool) {
	raw := c.Query("since")
	if raw == "" {
		return time.Now().UTC().Add(-24 * time.Hour), true
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since parameter, expected RFC 3339"})
		return time.Time{}, false
	}
	return since, true
}

// limitParam parses the limit query parameter, defaulting and capping it.
func limitParam(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultArticleLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return 0, false
	}
	if limit > maxArticleLimit {
		limit = maxArticleLimit
	}
	return limit, true
}
