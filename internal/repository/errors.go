// Package repository implements the persistence layer: source registry,
// article store, and crawl lifecycle records.
package repository

import "errors"

var (
	// ErrInvalidInput wraps validation failures so callers can distinguish
	// caller mistakes from storage failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSourceNotFound is returned when a source id does not exist.
	ErrSourceNotFound = errors.New("source not found")
	// ErrArticleNotFound is returned when an article id does not exist.
	ErrArticleNotFound = errors.New("article not found")
	// ErrCrawlNotFound is returned when a crawl id does not exist.
	ErrCrawlNotFound = errors.New("crawl not found")
	// ErrCrawlAlreadyCompleted signals a completion call against a crawl that
	// already reached a terminal state. Callers treat it as a warning, not a
	// failure — terminal states are never overwritten.
	ErrCrawlAlreadyCompleted = errors.New("crawl already completed")
)
