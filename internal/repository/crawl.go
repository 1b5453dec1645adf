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

// CrawlRepository tracks the lifecycle of crawl attempts. Exactly one row is
// created per Start call; status only ever moves running -> success | error |
// timeout, and terminal states are final.
type CrawlRepository struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewCrawlRepository creates a new crawl repository.
func NewCrawlRepository(db *sqlx.DB, log logger.Logger) *CrawlRepository {
	return &CrawlRepository{
		db:     db,
		logger: log,
	}
}

const crawlColumns = `id, source_id, started_at, completed_at, crawl_duration_ms, status,
	       articles_found, articles_new, duplicates_exact, duplicates_cross_source,
	       duplicates_fuzzy_title, duplicates_phrase_overlap, error_message, retry_count, metadata`

// Start records the beginning of a crawl attempt against a source.
func (r *CrawlRepository) Start(ctx context.Context, sourceID string) (*models.SourceCrawl, error) {
	crawl := &models.SourceCrawl{
		ID:        uuid.New().String(),
		SourceID:  sourceID,
		StartedAt: time.Now().UTC(),
		Status:    models.CrawlStatusRunning,
	}

	query := `
		INSERT INTO source_crawls (id, source_id, started_at, status, retry_count)
		VALUES ($1, $2, $3, $4, 0)
	`

	_, err := r.db.ExecContext(ctx, query, crawl.ID, crawl.SourceID, crawl.StartedAt, crawl.Status)
	if err != nil {
		return nil, fmt.Errorf("start crawl: %w", err)
	}

	return crawl, nil
}

// GetByID retrieves a crawl attempt by its id.
func (r *CrawlRepository) GetByID(ctx context.Context, id string) (*models.SourceCrawl, error) {
	var crawl models.SourceCrawl
	query := `SELECT ` + crawlColumns + ` FROM source_crawls WHERE id = $1`

	err := r.db.GetContext(ctx, &crawl, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCrawlNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query crawl: %w", err)
	}

	return &crawl, nil
}

// CompleteSuccess transitions a running crawl to success with its final counts.
func (r *CrawlRepository) CompleteSuccess(ctx context.Context, crawlID string, counts models.CrawlCounts) error {
	return r.complete(ctx, crawlID, models.CrawlStatusSuccess, "", counts)
}

// CompleteError transitions a running crawl to error, recording the message.
func (r *CrawlRepository) CompleteError(ctx context.Context, crawlID, message string, counts models.CrawlCounts) error {
	return r.complete(ctx, crawlID, models.CrawlStatusError, message, counts)
}

// CompleteTimeout transitions a running crawl to timeout. The tracker does not
// enforce timeouts itself; the caller signals them on cancellation.
func (r *CrawlRepository) CompleteTimeout(ctx context.Context, crawlID, message string, counts models.CrawlCounts) error {
	return r.complete(ctx, crawlID, models.CrawlStatusTimeout, message, counts)
}

// complete performs the single permitted transition. The WHERE status =
// 'running' guard makes a duplicate completion affect zero rows; that case is
// reported as ErrCrawlAlreadyCompleted so callers can warn and move on instead
// of overwriting a terminal state.
func (r *CrawlRepository) complete(
	ctx context.Context,
	crawlID string,
	status models.CrawlStatus,
	message string,
	counts models.CrawlCounts,
) error {
	if !status.Terminal() {
		return fmt.Errorf("invalid terminal status: %s", status)
	}

	completedAt := time.Now().UTC()

	query := `
		UPDATE source_crawls
		SET status = $2,
		    completed_at = $3,
		    crawl_duration_ms = (EXTRACT(EPOCH FROM ($3::timestamptz - started_at)) * 1000)::bigint,
		    articles_found = $4,
		    articles_new = $5,
		    duplicates_exact = $6,
		    duplicates_cross_source = $7,
		    duplicates_fuzzy_title = $8,
		    duplicates_phrase_overlap = $9,
		    error_message = NULLIF($10, '')
		WHERE id = $1 AND status = 'running'
	`

	result, err := r.db.ExecContext(ctx, query,
		crawlID,
		status,
		completedAt,
		counts.ArticlesFound,
		counts.ArticlesNew,
		counts.DuplicatesExact,
		counts.DuplicatesCrossSource,
		counts.DuplicatesFuzzyTitle,
		counts.DuplicatesPhraseOverlap,
		message,
	)
	if err != nil {
		return fmt.Errorf("complete crawl: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// Zero rows: either the crawl never existed or it already reached a
	// terminal state.
	var existing string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM source_crawls WHERE id = $1`, crawlID).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCrawlNotFound
	}
	if err != nil {
		return fmt.Errorf("check crawl status: %w", err)
	}

	r.logger.Warn("Duplicate crawl completion ignored",
		logger.String("crawl_id", crawlID),
		logger.String("existing_status", existing),
		logger.String("attempted_status", string(status)),
	)
	return ErrCrawlAlreadyCompleted
}
