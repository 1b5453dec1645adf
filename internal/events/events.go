// Package events publishes crawl lifecycle events to Redis Streams.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/goingest/internal/models"
)

// StreamName is the Redis stream crawl events are published to.
const StreamName = "goingest:crawl-events"

// EventType identifies the kind of crawl event.
type EventType string

const (
	// CrawlCompleted is emitted when a crawl run finishes successfully,
	// including runs with per-item errors.
	CrawlCompleted EventType = "crawl.completed"
	// CrawlFailed is emitted when a crawl run fails at the crawl level.
	CrawlFailed EventType = "crawl.failed"
)

// CrawlEvent is the payload published for every completed crawl run.
type CrawlEvent struct {
	EventID          uuid.UUID          `json:"event_id"`
	EventType        EventType          `json:"event_type"`
	Timestamp        time.Time          `json:"timestamp"`
	CrawlID          string             `json:"crawl_id"`
	SourceID         string             `json:"source_id"`
	OrganizationSlug string             `json:"organization_slug"`
	Counts           models.CrawlCounts `json:"counts"`
	ErrorMessage     string             `json:"error_message,omitempty"`
}
