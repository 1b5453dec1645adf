package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/goingest/internal/logger"
	"github.com/jonesrussell/goingest/internal/models"
)

// ArticleRepository persists accepted articles and serves the fingerprint
// lookups consumed by the deduplication engine. Articles carry their own
// fingerprint columns, so the fingerprint read model is a projection of the
// articles table and never re-tokenizes bodies.
type ArticleRepository struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(db *sqlx.DB, log logger.Logger) *ArticleRepository {
	return &ArticleRepository{
		db:     db,
		logger: log,
	}
}

const articleColumns = `id, organization_slug, source_id, url, title, content, summary, author,
	       published_at, content_hash, title_normalized, key_phrases, fingerprint_hash,
	       raw_data, is_test, first_seen_at, metadata`

// Insert persists an article unconditionally. Deduplication must already have
// cleared the candidate; this is not the place for it. Failures surface to the
// caller as retryable errors, never silently dropped.
func (r *ArticleRepository) Insert(ctx context.Context, article *models.Article) error {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}
	if article.FirstSeenAt.IsZero() {
		article.FirstSeenAt = time.Now().UTC()
	}

	query := `
		INSERT INTO articles (
			id, organization_slug, source_id, url, title, content, summary, author,
			published_at, content_hash, title_normalized, key_phrases, fingerprint_hash,
			raw_data, is_test, first_seen_at, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		article.ID,
		article.OrganizationSlug,
		article.SourceID,
		article.URL,
		article.Title,
		article.Content,
		article.Summary,
		article.Author,
		article.PublishedAt,
		article.ContentHash,
		article.TitleNormalized,
		pq.Array([]string(article.KeyPhrases)),
		article.FingerprintHash,
		article.RawData,
		article.IsTest,
		article.FirstSeenAt,
		article.Metadata,
	)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}

	return nil
}

// GetByID retrieves an article by its id.
func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	var article models.Article
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`

	err := r.db.GetContext(ctx, &article, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query article: %w", err)
	}

	return &article, nil
}

// ExistsByHash returns the id of an article in the same source with the same
// content hash, or "" when none exists.
func (r *ArticleRepository) ExistsByHash(ctx context.Context, org, sourceID, contentHash string) (string, error) {
	query := `
		SELECT id FROM articles
		WHERE organization_slug = $1 AND source_id = $2 AND content_hash = $3
		LIMIT 1
	`
	return r.scanOptionalID(ctx, query, org, sourceID, contentHash)
}

// ExistsByHashCrossSource returns the id of an article with the same content
// hash in a different source of the same organization, or "".
func (r *ArticleRepository) ExistsByHashCrossSource(ctx context.Context, org, sourceID, contentHash string) (string, error) {
	query := `
		SELECT id FROM articles
		WHERE organization_slug = $1 AND source_id <> $2 AND content_hash = $3
		LIMIT 1
	`
	return r.scanOptionalID(ctx, query, org, sourceID, contentHash)
}

// ExistsByNormalizedTitle returns the id of an article with an identical
// normalized title, regardless of source, or "".
func (r *ArticleRepository) ExistsByNormalizedTitle(ctx context.Context, org, titleNormalized string) (string, error) {
	if titleNormalized == "" {
		return "", nil
	}
	query := `
		SELECT id FROM articles
		WHERE organization_slug = $1 AND title_normalized = $2
		LIMIT 1
	`
	return r.scanOptionalID(ctx, query, org, titleNormalized)
}

// RecentFingerprints returns up to limit of the organization's most recent
// fingerprints, newest first. This is the candidate window for the fuzzy-title
// and phrase-overlap layers.
func (r *ArticleRepository) RecentFingerprints(ctx context.Context, org string, limit int) ([]models.ArticleFingerprint, error) {
	var fps []models.ArticleFingerprint
	query := `
		SELECT id AS article_id, source_id, organization_slug, content_hash,
		       title_normalized, key_phrases, fingerprint_hash, first_seen_at
		FROM articles
		WHERE organization_slug = $1
		ORDER BY first_seen_at DESC, id DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &fps, query, org, limit); err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}

	return fps, nil
}

// FindNewSince returns the organization's articles from the given sources with
// first_seen_at > since, ordered by (first_seen_at, id) ascending and capped at
// limit. The stable id tie-break makes polling restartable: re-querying with
// the same since never skips or re-orders rows.
func (r *ArticleRepository) FindNewSince(
	ctx context.Context,
	org string,
	sourceIDs []string,
	since time.Time,
	limit int,
) ([]models.Article, error) {
	if len(sourceIDs) == 0 {
		return []models.Article{}, nil
	}

	var articles []models.Article
	query := `
		SELECT ` + articleColumns + `
		FROM articles
		WHERE organization_slug = $1 AND source_id = ANY($2) AND first_seen_at > $3
		ORDER BY first_seen_at ASC, id ASC
		LIMIT $4
	`

	err := r.db.SelectContext(ctx, &articles, query, org, pq.Array(sourceIDs), since, limit)
	if err != nil {
		return nil, fmt.Errorf("query new articles: %w", err)
	}

	if articles == nil {
		articles = []models.Article{}
	}
	return articles, nil
}

// scanOptionalID runs a single-id query where no row is a normal outcome.
func (r *ArticleRepository) scanOptionalID(ctx context.Context, query string, args ...any) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup article: %w", err)
	}
	return id, nil
}
