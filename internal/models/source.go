// Package models defines the persistent and transient types of the ingestion core.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SourceType identifies how a source is fetched.
type SourceType string

const (
	SourceTypeWeb           SourceType = "web"
	SourceTypeRSS           SourceType = "rss"
	SourceTypeTwitterSearch SourceType = "twitter_search"
	SourceTypeAPI           SourceType = "api"
	SourceTypeTestDB        SourceType = "test_db"
)

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeWeb, SourceTypeRSS, SourceTypeTwitterSearch, SourceTypeAPI, SourceTypeTestDB:
		return true
	default:
		return false
	}
}

// CrawlFrequencies are the allowed crawl intervals in minutes.
var CrawlFrequencies = []int{5, 15, 30, 60, 180, 360, 720, 1440}

// DefaultCrawlFrequencyMinutes is used when a source is registered without one.
const DefaultCrawlFrequencyMinutes = 60

// ValidCrawlFrequency reports whether minutes is one of the allowed intervals.
func ValidCrawlFrequency(minutes int) bool {
	for _, f := range CrawlFrequencies {
		if f == minutes {
			return true
		}
	}
	return false
}

// Source represents a crawlable content origin, unique per (organization, url).
type Source struct {
	ID                    string     `json:"id" db:"id"`
	OrganizationSlug      string     `json:"organization_slug" db:"organization_slug"`
	Name                  string     `json:"name" db:"name"`
	SourceType            SourceType `json:"source_type" db:"source_type"`
	URL                   string     `json:"url" db:"url"`
	CrawlConfig           JSONMap    `json:"crawl_config,omitempty" db:"crawl_config"`
	AuthConfig            JSONMap    `json:"auth_config,omitempty" db:"auth_config"`
	CrawlFrequencyMinutes int        `json:"crawl_frequency_minutes" db:"crawl_frequency_minutes"`
	IsActive              bool       `json:"is_active" db:"is_active"`
	IsTest                bool       `json:"is_test" db:"is_test"`
	LastCrawlAt           *time.Time `json:"last_crawl_at,omitempty" db:"last_crawl_at"`
	LastCrawlStatus       *string    `json:"last_crawl_status,omitempty" db:"last_crawl_status"`
	LastError             *string    `json:"last_error,omitempty" db:"last_error"`
	ConsecutiveErrors     int        `json:"consecutive_errors" db:"consecutive_errors"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"`
}

// SourceDueForCrawl is the read-only projection consumed by the external scheduler.
type SourceDueForCrawl struct {
	ID                    string     `json:"id" db:"id"`
	OrganizationSlug      string     `json:"organization_slug" db:"organization_slug"`
	Name                  string     `json:"name" db:"name"`
	SourceType            SourceType `json:"source_type" db:"source_type"`
	URL                   string     `json:"url" db:"url"`
	CrawlConfig           JSONMap    `json:"crawl_config,omitempty" db:"crawl_config"`
	CrawlFrequencyMinutes int        `json:"crawl_frequency_minutes" db:"crawl_frequency_minutes"`
	LastCrawlAt           *time.Time `json:"last_crawl_at,omitempty" db:"last_crawl_at"`
}

// JSONMap is a free-form JSON object stored in a jsonb column.
type JSONMap map[string]any

// Value implements driver.Valuer for database storage.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for database retrieval.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("jsonmap: cannot scan %T", value)
	}
	return json.Unmarshal(bytes, m)
}
