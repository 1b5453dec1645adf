package models

import "time"

// CrawlStatus is the lifecycle state of a crawl attempt.
type CrawlStatus string

const (
	CrawlStatusRunning CrawlStatus = "running"
	CrawlStatusSuccess CrawlStatus = "success"
	CrawlStatusError   CrawlStatus = "error"
	CrawlStatusTimeout CrawlStatus = "timeout"
)

// Terminal reports whether the status is final. Terminal states never transition.
func (s CrawlStatus) Terminal() bool {
	switch s {
	case CrawlStatusSuccess, CrawlStatusError, CrawlStatusTimeout:
		return true
	default:
		return false
	}
}

// SourceCrawl is one attempt record per crawl run against a source.
type SourceCrawl struct {
	ID                      string      `json:"id" db:"id"`
	SourceID                string      `json:"source_id" db:"source_id"`
	StartedAt               time.Time   `json:"started_at" db:"started_at"`
	CompletedAt             *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	CrawlDurationMS         *int64      `json:"crawl_duration_ms,omitempty" db:"crawl_duration_ms"`
	Status                  CrawlStatus `json:"status" db:"status"`
	ArticlesFound           int         `json:"articles_found" db:"articles_found"`
	ArticlesNew             int         `json:"articles_new" db:"articles_new"`
	DuplicatesExact         int         `json:"duplicates_exact" db:"duplicates_exact"`
	DuplicatesCrossSource   int         `json:"duplicates_cross_source" db:"duplicates_cross_source"`
	DuplicatesFuzzyTitle    int         `json:"duplicates_fuzzy_title" db:"duplicates_fuzzy_title"`
	DuplicatesPhraseOverlap int         `json:"duplicates_phrase_overlap" db:"duplicates_phrase_overlap"`
	ErrorMessage            *string     `json:"error_message,omitempty" db:"error_message"`
	RetryCount              int         `json:"retry_count" db:"retry_count"`
	Metadata                JSONMap     `json:"metadata,omitempty" db:"metadata"`
}

// CrawlCounts aggregates per-item classification outcomes for one crawl run.
// Every input item is counted in ArticlesFound and in exactly one of the
// remaining buckets (new, one of the duplicate types, or an item error).
type CrawlCounts struct {
	ArticlesFound           int `json:"articles_found"`
	ArticlesNew             int `json:"articles_new"`
	DuplicatesExact         int `json:"duplicates_exact"`
	DuplicatesCrossSource   int `json:"duplicates_cross_source"`
	DuplicatesFuzzyTitle    int `json:"duplicates_fuzzy_title"`
	DuplicatesPhraseOverlap int `json:"duplicates_phrase_overlap"`
}

// RecordDuplicate increments the counter for the given duplicate type.
func (c *CrawlCounts) RecordDuplicate(t DuplicateType) {
	switch t {
	case DuplicateTypeExact:
		c.DuplicatesExact++
	case DuplicateTypeCrossSource:
		c.DuplicatesCrossSource++
	case DuplicateTypeFuzzyTitle:
		c.DuplicatesFuzzyTitle++
	case DuplicateTypePhraseOverlap:
		c.DuplicatesPhraseOverlap++
	}
}

// DuplicatesTotal returns the sum of all duplicate buckets.
func (c *CrawlCounts) DuplicatesTotal() int {
	return c.DuplicatesExact + c.DuplicatesCrossSource + c.DuplicatesFuzzyTitle + c.DuplicatesPhraseOverlap
}

// ItemError captures a per-item failure with enough context to identify the item.
// Item errors never abort the batch.
type ItemError struct {
	URL     string `json:"url"`
	Stage   string `json:"stage"` // validate, fingerprint, dedup, insert
	Message string `json:"message"`
	// Retryable is false for permanent item defects (validation) and true for
	// transient failures worth retrying on the next crawl.
	Retryable bool `json:"retryable"`
}

// CrawlResult is returned by the ingestion orchestrator for one crawl run.
// Partial success is the normal case: Errors rides alongside whatever was ingested.
type CrawlResult struct {
	CrawlID          string `json:"crawl_id,omitempty"`
	SourceID         string `json:"source_id"`
	OrganizationSlug string `json:"organization_slug"`
	CrawlCounts
	NewArticles []*Article  `json:"new_articles"`
	Errors      []ItemError `json:"errors"`
}
