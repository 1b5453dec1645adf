// Package ingest coordinates one crawl run: it fingerprints crawled items,
// classifies them against stored articles, persists the genuinely new ones,
// and keeps the crawl attempt record and source health bookkeeping consistent.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/goingest/internal/dedup"
	"github.com/jonesrussell/goingest/internal/events"
	"github.com/jonesrussell/goingest/internal/fingerprint"
	"github.com/jonesrussell/goingest/internal/logger"
	"github.com/jonesrussell/goingest/internal/metrics"
	"github.com/jonesrussell/goingest/internal/models"
	"github.com/jonesrussell/goingest/internal/repository"
)

// RawItem is one crawled item as produced by an external fetcher. Only URL
// plus at least one of Title/Content are required; everything else is carried
// through to the stored article.
type RawItem struct {
	URL         string         `json:"url"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Summary     *string        `json:"summary,omitempty"`
	Author      *string        `json:"author,omitempty"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	RawData     models.JSONMap `json:"raw_data,omitempty"`
	IsTest      bool           `json:"is_test,omitempty"`
}

// ArticleStore persists accepted articles.
type ArticleStore interface {
	Insert(ctx context.Context, article *models.Article) error
}

// Classifier decides whether a fingerprint duplicates an existing article.
type Classifier interface {
	Classify(
		ctx context.Context,
		org, sourceID string,
		fp fingerprint.Fingerprint,
		batch *dedup.WorkingSet,
	) (models.DeduplicationResult, error)
}

// CrawlTracker records crawl attempt lifecycle transitions.
type CrawlTracker interface {
	Start(ctx context.Context, sourceID string) (*models.SourceCrawl, error)
	CompleteSuccess(ctx context.Context, crawlID string, counts models.CrawlCounts) error
	CompleteError(ctx context.Context, crawlID, message string, counts models.CrawlCounts) error
	CompleteTimeout(ctx context.Context, crawlID, message string, counts models.CrawlCounts) error
}

// SourceHealth updates per-source crawl health after a run.
type SourceHealth interface {
	MarkCrawlSuccess(ctx context.Context, sourceID string) error
	MarkCrawlError(ctx context.Context, sourceID, message string) error
}

// Orchestrator runs batch ingestion for crawled items.
type Orchestrator struct {
	engine    Classifier
	articles  ArticleStore
	crawls    CrawlTracker
	sources   SourceHealth
	publisher *events.Publisher
	metrics   *metrics.Metrics
	log       logger.Logger
}

// NewOrchestrator wires the ingestion pipeline. publisher and m may be nil.
func NewOrchestrator(
	engine Classifier,
	articles ArticleStore,
	crawls CrawlTracker,
	sources SourceHealth,
	publisher *events.Publisher,
	m *metrics.Metrics,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		engine:    engine,
		articles:  articles,
		crawls:    crawls,
		sources:   sources,
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

// RunCrawl records a crawl attempt around ProcessItems: start the attempt,
// ingest the items, then complete the attempt and update source health.
// Per-item errors never fail the run; they ride back on the result.
func (o *Orchestrator) RunCrawl(
	ctx context.Context,
	org, sourceID string,
	items []RawItem,
) (*models.CrawlResult, error) {
	crawl, err := o.crawls.Start(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("start crawl: %w", err)
	}

	result := o.ProcessItems(ctx, org, sourceID, items)
	result.CrawlID = crawl.ID

	if err := o.crawls.CompleteSuccess(ctx, crawl.ID, result.CrawlCounts); err != nil {
		if errors.Is(err, repository.ErrCrawlAlreadyCompleted) {
			o.log.Warn("crawl already completed, keeping first outcome",
				logger.String("crawl_id", crawl.ID),
			)
		} else {
			return result, fmt.Errorf("complete crawl: %w", err)
		}
	}

	if err := o.sources.MarkCrawlSuccess(ctx, sourceID); err != nil {
		o.log.Error("failed to update source health after crawl",
			logger.String("source_id", sourceID),
			logger.Error(err),
		)
	}

	o.metrics.RecordCrawl(string(models.CrawlStatusSuccess))
	o.metrics.ObserveCrawlDuration(time.Since(crawl.StartedAt))
	o.publisher.PublishAsync(events.CrawlEvent{
		EventType:        events.CrawlCompleted,
		CrawlID:          crawl.ID,
		SourceID:         sourceID,
		OrganizationSlug: org,
		Counts:           result.CrawlCounts,
	})

	o.log.Info("crawl completed",
		logger.String("crawl_id", crawl.ID),
		logger.String("source_id", sourceID),
		logger.Int("articles_found", result.ArticlesFound),
		logger.Int("articles_new", result.ArticlesNew),
		logger.Int("duplicates", result.DuplicatesTotal()),
		logger.Int("item_errors", len(result.Errors)),
	)

	return result, nil
}

// FailCrawl marks a crawl attempt as failed at the crawl level, for fetchers
// that died before producing items. A duplicate completion is a warn no-op.
func (o *Orchestrator) FailCrawl(ctx context.Context, org, sourceID, crawlID, message string) error {
	return o.failCrawl(ctx, org, sourceID, crawlID, message, models.CrawlStatusError)
}

// TimeoutCrawl marks a crawl attempt as timed out.
func (o *Orchestrator) TimeoutCrawl(ctx context.Context, org, sourceID, crawlID, message string) error {
	return o.failCrawl(ctx, org, sourceID, crawlID, message, models.CrawlStatusTimeout)
}

func (o *Orchestrator) failCrawl(
	ctx context.Context,
	org, sourceID, crawlID, message string,
	status models.CrawlStatus,
) error {
	complete := o.crawls.CompleteError
	if status == models.CrawlStatusTimeout {
		complete = o.crawls.CompleteTimeout
	}

	if err := complete(ctx, crawlID, message, models.CrawlCounts{}); err != nil {
		if errors.Is(err, repository.ErrCrawlAlreadyCompleted) {
			o.log.Warn("crawl already completed, keeping first outcome",
				logger.String("crawl_id", crawlID),
			)
			return nil
		}
		return fmt.Errorf("complete crawl: %w", err)
	}

	if err := o.sources.MarkCrawlError(ctx, sourceID, message); err != nil {
		o.log.Error("failed to update source health after crawl failure",
			logger.String("source_id", sourceID),
			logger.Error(err),
		)
	}

	o.metrics.RecordCrawl(string(status))
	o.publisher.PublishAsync(events.CrawlEvent{
		EventType:        events.CrawlFailed,
		CrawlID:          crawlID,
		SourceID:         sourceID,
		OrganizationSlug: org,
		ErrorMessage:     message,
	})

	return nil
}

// ProcessItems ingests a batch of crawled items for one source. Items are
// processed sequentially; a failing item is recorded and skipped, never
// aborting the batch. Every item lands in exactly one bucket, so
// ArticlesFound == ArticlesNew + DuplicatesTotal() + len(Errors).
func (o *Orchestrator) ProcessItems(
	ctx context.Context,
	org, sourceID string,
	items []RawItem,
) *models.CrawlResult {
	result := &models.CrawlResult{
		SourceID:         sourceID,
		OrganizationSlug: org,
		NewArticles:      []*models.Article{},
		Errors:           []models.ItemError{},
	}

	batch := dedup.NewWorkingSet()
	for i := range items {
		result.ArticlesFound++
		o.processItem(ctx, org, sourceID, items[i], batch, result)
	}

	return result
}

func (o *Orchestrator) processItem(
	ctx context.Context,
	org, sourceID string,
	item RawItem,
	batch *dedup.WorkingSet,
	result *models.CrawlResult,
) {
	if err := validateItem(item); err != nil {
		o.recordItemError(result, item.URL, StageValidate, err)
		return
	}

	fp := fingerprint.Compute(item.Title, item.Content)

	res, err := o.engine.Classify(ctx, org, sourceID, fp, batch)
	if err != nil {
		o.recordItemError(result, item.URL, StageDedup, err)
		return
	}

	if res.IsDuplicate {
		result.RecordDuplicate(res.DuplicateType)
		o.metrics.RecordItem("duplicate")
		o.metrics.RecordDuplicate(string(res.DuplicateType))
		o.log.Debug("duplicate item skipped",
			logger.String("url", item.URL),
			logger.String("duplicate_type", string(res.DuplicateType)),
			logger.String("existing_article_id", res.ExistingArticleID),
			logger.Float64("similarity", res.SimilarityScore),
		)
		return
	}

	article := &models.Article{
		OrganizationSlug: org,
		SourceID:         sourceID,
		URL:              item.URL,
		Title:            item.Title,
		Content:          item.Content,
		Summary:          item.Summary,
		Author:           item.Author,
		PublishedAt:      item.PublishedAt,
		ContentHash:      fp.ContentHash,
		TitleNormalized:  fp.TitleNormalized,
		KeyPhrases:       fp.KeyPhrases,
		FingerprintHash:  fp.FingerprintHash,
		RawData:          item.RawData,
		IsTest:           item.IsTest,
	}
	if err := o.articles.Insert(ctx, article); err != nil {
		o.recordItemError(result, item.URL, StageInsert, err)
		return
	}

	batch.Add(models.ArticleFingerprint{
		ArticleID:        article.ID,
		SourceID:         sourceID,
		OrganizationSlug: org,
		ContentHash:      fp.ContentHash,
		TitleNormalized:  fp.TitleNormalized,
		KeyPhrases:       fp.KeyPhrases,
		FingerprintHash:  fp.FingerprintHash,
		FirstSeenAt:      article.FirstSeenAt,
	})

	result.ArticlesNew++
	result.NewArticles = append(result.NewArticles, article)
	o.metrics.RecordItem("new")
	o.metrics.RecordNewArticle()
}

func (o *Orchestrator) recordItemError(result *models.CrawlResult, url, stage string, err error) {
	result.Errors = append(result.Errors, models.ItemError{
		URL:       url,
		Stage:     stage,
		Message:   err.Error(),
		Retryable: IsRetryable(err),
	})
	o.metrics.RecordItem("error")
	o.metrics.RecordItemError(stage)
	o.log.Warn("item ingestion failed",
		logger.String("url", url),
		logger.String("stage", stage),
		logger.Error(err),
	)
}

func validateItem(item RawItem) error {
	if item.URL == "" {
		return &ValidationError{Reason: "item url is required"}
	}
	if item.Title == "" && item.Content == "" {
		return &ValidationError{Reason: "item needs a title or content"}
	}
	return nil
}
