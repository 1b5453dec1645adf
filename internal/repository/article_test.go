package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goingest/internal/logger"
	"github.com/jonesrussell/goingest/internal/models"
	"github.com/jonesrussell/goingest/internal/repository"
)

func TestArticleRepository_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewArticleRepository(db, logger.NewNopLogger())

	mock.ExpectExec("INSERT INTO articles").WillReturnResult(sqlmock.NewResult(0, 1))

	article := &models.Article{
		OrganizationSlug: "acme",
		SourceID:         "src-1",
		URL:              "https://example.com/story",
		Title:            "Council Approves Budget",
		Content:          "The council approved the budget.",
		ContentHash:      "hash-1",
		TitleNormalized:  "council approves budget",
		KeyPhrases:       []string{"council approved budget"},
		FingerprintHash:  "fp-1",
	}

	require.NoError(t, repo.Insert(context.Background(), article))
	assert.NotEmpty(t, article.ID, "insert assigns an id")
	assert.False(t, article.FirstSeenAt.IsZero(), "insert stamps first_seen_at")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepository_Insert_SurfacesFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewArticleRepository(db, logger.NewNopLogger())

	mock.ExpectExec("INSERT INTO articles").WillReturnError(errors.New("connection lost"))

	err := repo.Insert(context.Background(), &models.Article{OrganizationSlug: "acme", SourceID: "src-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert article")
}

func TestArticleRepository_ExistsByHash(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewArticleRepository(db, logger.NewNopLogger())

	mock.ExpectQuery("SELECT id FROM articles").
		WithArgs("acme", "src-1", "hash-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("art-1"))

	id, err := repo.ExistsByHash(context.Background(), "acme", "src-1", "hash-1")

	require.NoError(t, err)
	assert.Equal(t, "art-1", id)
}

func TestArticleRepository_ExistsByHash_NoMatchIsNotAnError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewArticleRepository(db, logger.NewNopLogger())

	mock.ExpectQuery("SELECT id FROM articles").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	id, err := repo.ExistsByHash(context.Background(), "acme", "src-1", "hash-unseen")

	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestArticleRepository_ExistsByNormalizedTitle_EmptyTitleShortCircuits(t *testing.T) {
	db, _ := newMockDB(t)
	repo := repository.NewArticleRepository(db, logger.NewNopLogger())

	id, err := repo.ExistsByNormalizedTitle(context.Background(), "acme", "")

	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestArticleRepository_RecentFingerprints(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewArticleRepository(db, logger.NewNopLogger())

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"article_id", "source_id", "organization_slug", "content_hash",
		"title_normalized", "key_phrases", "fingerprint_hash", "first_seen_at",
	}).AddRow(
		"art-1", "src-1", "acme", "hash-1",
		"council approves budget", []byte(`{"council approved budget","budget city hall"}`), "fp-1", now,
	)

	mock.ExpectQuery("SELECT id AS article_id").
		WithArgs("acme", 500).
		WillReturnRows(rows)

	fps, err := repo.RecentFingerprints(context.Background(), "acme", 500)

	require.NoError(t, err)
	require.Len(t, fps, 1)
	assert.Equal(t, "art-1", fps[0].ArticleID)
	assert.Equal(t, []string{"council approved budget", "budget city hall"}, []string(fps[0].KeyPhrases))
}

func TestArticleRepository_FindNewSince(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewArticleRepository(db, logger.NewNopLogger())

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "organization_slug", "source_id", "url", "title", "content", "summary", "author",
		"published_at", "content_hash", "title_normalized", "key_phrases", "fingerprint_hash",
		"raw_data", "is_test", "first_seen_at", "metadata",
	}).
		AddRow("art-1", "acme", "src-1", "https://a", "A", "body a", nil, nil, nil,
			"h1", "a", []byte(`{}`), "f1", nil, false, now.Add(-2*time.Minute), nil).
		AddRow("art-2", "acme", "src-1", "https://b", "B", "body b", nil, nil, nil,
			"h2", "b", []byte(`{}`), "f2", nil, false, now.Add(-time.Minute), nil)

	mock.ExpectQuery("SELECT id, organization_slug, source_id").
		WillReturnRows(rows)

	articles, err := repo.FindNewSince(context.Background(), "acme", []string{"src-1"}, now.Add(-time.Hour), 100)

	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "art-1", articles[0].ID)
	assert.Equal(t, "art-2", articles[1].ID)
}

func TestArticleRepository_FindNewSince_NoSources(t *testing.T) {
	db, _ := newMockDB(t)
	repo := repository.NewArticleRepository(db, logger.NewNopLogger())

	articles, err := repo.FindNewSince(context.Background(), "acme", nil, time.Now(), 100)

	require.NoError(t, err)
	assert.Empty(t, articles)
}
