package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/goingest/internal/logger"
	"github.com/jonesrussell/goingest/internal/models"
)

// SourceRepository owns Source rows and their crawl-health bookkeeping.
type SourceRepository struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewSourceRepository creates a new source repository.
func NewSourceRepository(db *sqlx.DB, log logger.Logger) *SourceRepository {
	return &SourceRepository{
		db:     db,
		logger: log,
	}
}

// SourceAttrs carries the creation attributes for FindOrCreate. They are only
// applied when the row is created; an existing source is returned untouched.
type SourceAttrs struct {
	Name                  string
	SourceType            models.SourceType
	CrawlConfig           models.JSONMap
	AuthConfig            models.JSONMap
	CrawlFrequencyMinutes int
	IsActive              bool
	IsTest                bool
}

const sourceColumns = `id, organization_slug, name, source_type, url, crawl_config, auth_config,
	       crawl_frequency_minutes, is_active, is_test, last_crawl_at, last_crawl_status,
	       last_error, consecutive_errors, created_at, updated_at`

// FindOrCreate returns the source for (org, url), creating it if absent. The
// upsert is a single atomic statement, so concurrent calls for the same pair
// converge on one row. The returned bool reports whether the row was created
// (xmax = 0 only holds for freshly inserted rows).
func (r *SourceRepository) FindOrCreate(
	ctx context.Context,
	org, url string,
	attrs SourceAttrs,
) (*models.Source, bool, error) {
	if org == "" {
		return nil, false, fmt.Errorf("%w: organization slug is required", ErrInvalidInput)
	}
	if url == "" {
		return nil, false, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	if attrs.SourceType == "" {
		attrs.SourceType = models.SourceTypeWeb
	}
	if !attrs.SourceType.Valid() {
		return nil, false, fmt.Errorf("%w: invalid source type: %s", ErrInvalidInput, attrs.SourceType)
	}
	if attrs.CrawlFrequencyMinutes == 0 {
		attrs.CrawlFrequencyMinutes = models.DefaultCrawlFrequencyMinutes
	}
	if !models.ValidCrawlFrequency(attrs.CrawlFrequencyMinutes) {
		return nil, false, fmt.Errorf("%w: invalid crawl frequency: %d minutes", ErrInvalidInput, attrs.CrawlFrequencyMinutes)
	}
	if attrs.Name == "" {
		attrs.Name = url
	}

	now := time.Now().UTC()

	// ON CONFLICT DO UPDATE with a self-assignment so the existing row is
	// returned; (xmax = 0) distinguishes insert from conflict.
	query := `
		INSERT INTO sources (
			id, organization_slug, name, source_type, url, crawl_config, auth_config,
			crawl_frequency_minutes, is_active, is_test, consecutive_errors,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $11)
		ON CONFLICT (organization_slug, url) DO UPDATE SET
			url = EXCLUDED.url
		RETURNING ` + sourceColumns + `, (xmax = 0) AS is_insert
	`

	var source models.Source
	var isInsert bool
	err := r.db.QueryRowContext(ctx,
		query,
		uuid.New().String(),
		org,
		attrs.Name,
		attrs.SourceType,
		url,
		attrs.CrawlConfig,
		attrs.AuthConfig,
		attrs.CrawlFrequencyMinutes,
		attrs.IsActive,
		attrs.IsTest,
		now,
	).Scan(
		&source.ID,
		&source.OrganizationSlug,
		&source.Name,
		&source.SourceType,
		&source.URL,
		&source.CrawlConfig,
		&source.AuthConfig,
		&source.CrawlFrequencyMinutes,
		&source.IsActive,
		&source.IsTest,
		&source.LastCrawlAt,
		&source.LastCrawlStatus,
		&source.LastError,
		&source.ConsecutiveErrors,
		&source.CreatedAt,
		&source.UpdatedAt,
		&isInsert,
	)
	if err != nil {
		return nil, false, fmt.Errorf("find or create source: %w", err)
	}

	return &source, isInsert, nil
}

// GetByID retrieves a source by its id.
func (r *SourceRepository) GetByID(ctx context.Context, id string) (*models.Source, error) {
	var source models.Source
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`

	err := r.db.GetContext(ctx, &source, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query source: %w", err)
	}

	return &source, nil
}

// MarkCrawlSuccess records a healthy crawl: status success, error counter reset.
func (r *SourceRepository) MarkCrawlSuccess(ctx context.Context, sourceID string) error {
	query := `
		UPDATE sources
		SET last_crawl_status = 'success', consecutive_errors = 0, last_error = NULL,
		    last_crawl_at = $2, updated_at = $2
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, sourceID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark crawl success: %w", err)
	}

	return requireRow(result, ErrSourceNotFound)
}

// MarkCrawlError records a failed crawl: status error, counter incremented,
// message kept for operators. Repeated failures are a backoff/alerting signal
// for the external scheduler, not enforced here.
func (r *SourceRepository) MarkCrawlError(ctx context.Context, sourceID, message string) error {
	query := `
		UPDATE sources
		SET last_crawl_status = 'error', consecutive_errors = consecutive_errors + 1,
		    last_error = $2, last_crawl_at = $3, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, sourceID, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark crawl error: %w", err)
	}

	return requireRow(result, ErrSourceNotFound)
}

// FindDueForCrawl returns the active sources whose crawl interval has elapsed.
// Read-only projection for the external scheduler; frequency, when non-zero,
// restricts the result to sources with that interval.
func (r *SourceRepository) FindDueForCrawl(ctx context.Context, frequencyMinutes int) ([]models.SourceDueForCrawl, error) {
	var due []models.SourceDueForCrawl
	var err error

	baseQuery := `
		SELECT id, organization_slug, name, source_type, url, crawl_config,
		       crawl_frequency_minutes, last_crawl_at
		FROM sources
		WHERE is_active = true
		  AND (last_crawl_at IS NULL
		       OR last_crawl_at < now() - make_interval(mins => crawl_frequency_minutes))`

	if frequencyMinutes > 0 {
		query := baseQuery + `
		  AND crawl_frequency_minutes = $1
		ORDER BY last_crawl_at ASC NULLS FIRST`
		err = r.db.SelectContext(ctx, &due, query, frequencyMinutes)
	} else {
		query := baseQuery + `
		ORDER BY last_crawl_at ASC NULLS FIRST`
		err = r.db.SelectContext(ctx, &due, query)
	}

	if err != nil {
		return nil, fmt.Errorf("query due sources: %w", err)
	}

	if due == nil {
		due = []models.SourceDueForCrawl{}
	}
	return due, nil
}

// requireRow converts a zero-rows-affected result into notFound.
func requireRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
