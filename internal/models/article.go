package models

import (
	"time"

	"github.com/lib/pq"
)

// Article is a unit of ingested content. Immutable after creation except for
// downstream metadata enrichment.
type Article struct {
	ID               string         `json:"id" db:"id"`
	OrganizationSlug string         `json:"organization_slug" db:"organization_slug"`
	SourceID         string         `json:"source_id" db:"source_id"`
	URL              string         `json:"url" db:"url"`
	Title            string         `json:"title" db:"title"`
	Content          string         `json:"content" db:"content"`
	Summary          *string        `json:"summary,omitempty" db:"summary"`
	Author           *string        `json:"author,omitempty" db:"author"`
	PublishedAt      *time.Time     `json:"published_at,omitempty" db:"published_at"`
	ContentHash      string         `json:"content_hash" db:"content_hash"`
	TitleNormalized  string         `json:"title_normalized" db:"title_normalized"`
	KeyPhrases       pq.StringArray `json:"key_phrases" db:"key_phrases"`
	FingerprintHash  string         `json:"fingerprint_hash" db:"fingerprint_hash"`
	RawData          JSONMap        `json:"raw_data,omitempty" db:"raw_data"`
	IsTest           bool           `json:"is_test" db:"is_test"`
	FirstSeenAt      time.Time      `json:"first_seen_at" db:"first_seen_at"`
	Metadata         JSONMap        `json:"metadata,omitempty" db:"metadata"`
}

// ArticleFingerprint is the read model used for duplicate comparisons so the
// engine never re-tokenizes stored article bodies. Exists 1:1 with every Article.
type ArticleFingerprint struct {
	ArticleID        string         `json:"article_id" db:"article_id"`
	SourceID         string         `json:"source_id" db:"source_id"`
	OrganizationSlug string         `json:"organization_slug" db:"organization_slug"`
	ContentHash      string         `json:"content_hash" db:"content_hash"`
	TitleNormalized  string         `json:"title_normalized" db:"title_normalized"`
	KeyPhrases       pq.StringArray `json:"key_phrases" db:"key_phrases"`
	FingerprintHash  string         `json:"fingerprint_hash" db:"fingerprint_hash"`
	FirstSeenAt      time.Time      `json:"first_seen_at" db:"first_seen_at"`
}
