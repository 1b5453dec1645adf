package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goingest/internal/dedup"
	"github.com/jonesrussell/goingest/internal/fingerprint"
	"github.com/jonesrussell/goingest/internal/ingest"
	"github.com/jonesrussell/goingest/internal/logger"
	"github.com/jonesrussell/goingest/internal/models"
	"github.com/jonesrussell/goingest/internal/repository"
)

// memIndex is an in-memory FingerprintIndex so the tests exercise the real
// deduplication engine without a database.
type memIndex struct {
	fps []models.ArticleFingerprint
}

func (m *memIndex) ExistsByHash(_ context.Context, org, sourceID, contentHash string) (string, error) {
	for i := range m.fps {
		fp := &m.fps[i]
		if fp.OrganizationSlug == org && fp.SourceID == sourceID && fp.ContentHash == contentHash {
			return fp.ArticleID, nil
		}
	}
	return "", nil
}

func (m *memIndex) ExistsByHashCrossSource(_ context.Context, org, sourceID, contentHash string) (string, error) {
	for i := range m.fps {
		fp := &m.fps[i]
		if fp.OrganizationSlug == org && fp.SourceID != sourceID && fp.ContentHash == contentHash {
			return fp.ArticleID, nil
		}
	}
	return "", nil
}

func (m *memIndex) ExistsByNormalizedTitle(_ context.Context, org, titleNormalized string) (string, error) {
	for i := range m.fps {
		fp := &m.fps[i]
		if fp.OrganizationSlug == org && fp.TitleNormalized == titleNormalized {
			return fp.ArticleID, nil
		}
	}
	return "", nil
}

func (m *memIndex) RecentFingerprints(_ context.Context, org string, limit int) ([]models.ArticleFingerprint, error) {
	out := make([]models.ArticleFingerprint, 0, len(m.fps))
	for i := range m.fps {
		if m.fps[i].OrganizationSlug == org && len(out) < limit {
			out = append(out, m.fps[i])
		}
	}
	return out, nil
}

type fakeArticles struct {
	inserted []*models.Article
	failing  map[string]error

	// When set, inserts also land in the index, simulating durable storage
	// visible to later crawl runs.
	index *memIndex
}

func (f *fakeArticles) Insert(_ context.Context, article *models.Article) error {
	if err, ok := f.failing[article.URL]; ok {
		return err
	}
	if article.ID == "" {
		article.ID = fmt.Sprintf("art-%d", len(f.inserted)+1)
	}
	if article.FirstSeenAt.IsZero() {
		article.FirstSeenAt = time.Now().UTC()
	}
	f.inserted = append(f.inserted, article)

	if f.index != nil {
		f.index.fps = append(f.index.fps, models.ArticleFingerprint{
			ArticleID:        article.ID,
			SourceID:         article.SourceID,
			OrganizationSlug: article.OrganizationSlug,
			ContentHash:      article.ContentHash,
			TitleNormalized:  article.TitleNormalized,
			KeyPhrases:       article.KeyPhrases,
			FingerprintHash:  article.FingerprintHash,
			FirstSeenAt:      article.FirstSeenAt,
		})
	}
	return nil
}

type completion struct {
	crawlID string
	status  models.CrawlStatus
	message string
	counts  models.CrawlCounts
}

type fakeCrawls struct {
	startErr    error
	completeErr error
	started     []string
	completions []completion
}

func (f *fakeCrawls) Start(_ context.Context, sourceID string) (*models.SourceCrawl, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, sourceID)
	return &models.SourceCrawl{
		ID:        fmt.Sprintf("crawl-%d", len(f.started)),
		SourceID:  sourceID,
		Status:    models.CrawlStatusRunning,
		StartedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeCrawls) complete(crawlID string, status models.CrawlStatus, message string, counts models.CrawlCounts) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completions = append(f.completions, completion{crawlID: crawlID, status: status, message: message, counts: counts})
	return nil
}

func (f *fakeCrawls) CompleteSuccess(_ context.Context, crawlID string, counts models.CrawlCounts) error {
	return f.complete(crawlID, models.CrawlStatusSuccess, "", counts)
}

func (f *fakeCrawls) CompleteError(_ context.Context, crawlID, message string, counts models.CrawlCounts) error {
	return f.complete(crawlID, models.CrawlStatusError, message, counts)
}

func (f *fakeCrawls) CompleteTimeout(_ context.Context, crawlID, message string, counts models.CrawlCounts) error {
	return f.complete(crawlID, models.CrawlStatusTimeout, message, counts)
}

type fakeSources struct {
	successes []string
	failures  map[string]string
}

func (f *fakeSources) MarkCrawlSuccess(_ context.Context, sourceID string) error {
	f.successes = append(f.successes, sourceID)
	return nil
}

func (f *fakeSources) MarkCrawlError(_ context.Context, sourceID, message string) error {
	if f.failures == nil {
		f.failures = map[string]string{}
	}
	f.failures[sourceID] = message
	return nil
}

func newTestOrchestrator(index *memIndex) (*ingest.Orchestrator, *fakeArticles, *fakeCrawls, *fakeSources) {
	engine := dedup.NewEngine(index, dedup.Config{}, logger.NewNopLogger())
	articles := &fakeArticles{failing: map[string]error{}}
	crawls := &fakeCrawls{}
	sources := &fakeSources{}
	orch := ingest.NewOrchestrator(engine, articles, crawls, sources, nil, nil, logger.NewNopLogger())
	return orch, articles, crawls, sources
}

var (
	itemBudget = ingest.RawItem{
		URL:     "https://example.com/news/transit-budget",
		Title:   "City Council Approves New Transit Budget",
		Content: "The city council voted to approve the new transit budget after months of public hearings and debate over funding priorities.",
	}
	itemHospital = ingest.RawItem{
		URL:     "https://example.com/news/hospital-expansion",
		Title:   "Regional Hospital Breaks Ground on Emergency Wing",
		Content: "Construction crews broke ground on a major expansion of the regional hospital emergency department expected to finish next winter.",
	}
	itemRobotics = ingest.RawItem{
		URL:     "https://example.com/news/robotics-title",
		Title:   "High School Robotics Team Wins Provincial Championship",
		Content: "Students from the district robotics club captured the provincial championship with a fully autonomous machine design.",
	}
)

func assertCountingInvariant(t *testing.T, result *models.CrawlResult) {
	t.Helper()
	assert.Equal(t, result.ArticlesFound,
		result.ArticlesNew+result.DuplicatesTotal()+len(result.Errors),
		"every item must land in exactly one bucket")
}

func TestRunCrawl_AllNewItems(t *testing.T) {
	orch, articles, crawls, sources := newTestOrchestrator(&memIndex{})

	result, err := orch.RunCrawl(context.Background(), "acme", "src-1",
		[]ingest.RawItem{itemBudget, itemHospital, itemRobotics})

	require.NoError(t, err)
	assert.Equal(t, "crawl-1", result.CrawlID)
	assert.Equal(t, 3, result.ArticlesFound)
	assert.Equal(t, 3, result.ArticlesNew)
	assert.Zero(t, result.DuplicatesTotal())
	assert.Empty(t, result.Errors)
	assertCountingInvariant(t, result)

	require.Len(t, articles.inserted, 3)
	assert.Equal(t, "acme", articles.inserted[0].OrganizationSlug)
	assert.NotEmpty(t, articles.inserted[0].ContentHash)

	require.Len(t, crawls.completions, 1)
	assert.Equal(t, models.CrawlStatusSuccess, crawls.completions[0].status)
	assert.Equal(t, result.CrawlCounts, crawls.completions[0].counts)
	assert.Equal(t, []string{"src-1"}, sources.successes)
}

func TestProcessItems_InBatchExactDuplicate(t *testing.T) {
	orch, articles, _, _ := newTestOrchestrator(&memIndex{})

	result := orch.ProcessItems(context.Background(), "acme", "src-1",
		[]ingest.RawItem{itemBudget, itemBudget})

	assert.Equal(t, 2, result.ArticlesFound)
	assert.Equal(t, 1, result.ArticlesNew)
	assert.Equal(t, 1, result.DuplicatesExact)
	assert.Len(t, articles.inserted, 1)
	assertCountingInvariant(t, result)
}

func TestProcessItems_CrossSourceDuplicateFromStore(t *testing.T) {
	fp := fingerprint.Compute(itemBudget.Title, itemBudget.Content)
	index := &memIndex{fps: []models.ArticleFingerprint{{
		ArticleID:        "art-existing",
		SourceID:         "src-other",
		OrganizationSlug: "acme",
		ContentHash:      fp.ContentHash,
		TitleNormalized:  fp.TitleNormalized,
		KeyPhrases:       fp.KeyPhrases,
	}}}
	orch, articles, _, _ := newTestOrchestrator(index)

	result := orch.ProcessItems(context.Background(), "acme", "src-1",
		[]ingest.RawItem{itemBudget})

	assert.Equal(t, 1, result.DuplicatesCrossSource)
	assert.Zero(t, result.ArticlesNew)
	assert.Empty(t, articles.inserted)
	assertCountingInvariant(t, result)
}

func TestProcessItems_PartialFailureIsolation(t *testing.T) {
	orch, articles, _, _ := newTestOrchestrator(&memIndex{})
	articles.failing[itemHospital.URL] = errors.New("deadlock detected")

	result := orch.ProcessItems(context.Background(), "acme", "src-1",
		[]ingest.RawItem{itemBudget, itemHospital, itemRobotics})

	assert.Equal(t, 3, result.ArticlesFound)
	assert.Equal(t, 2, result.ArticlesNew)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, itemHospital.URL, result.Errors[0].URL)
	assert.Equal(t, ingest.StageInsert, result.Errors[0].Stage)
	assert.Contains(t, result.Errors[0].Message, "deadlock")
	assert.True(t, result.Errors[0].Retryable, "store failures are transient")
	assert.Len(t, articles.inserted, 2)
	assertCountingInvariant(t, result)
}

func TestProcessItems_ValidationErrors(t *testing.T) {
	orch, articles, _, _ := newTestOrchestrator(&memIndex{})

	result := orch.ProcessItems(context.Background(), "acme", "src-1", []ingest.RawItem{
		{Title: "No URL At All", Content: "some body"},
		{URL: "https://example.com/empty"},
	})

	assert.Equal(t, 2, result.ArticlesFound)
	assert.Zero(t, result.ArticlesNew)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, ingest.StageValidate, result.Errors[0].Stage)
	assert.Equal(t, ingest.StageValidate, result.Errors[1].Stage)
	assert.False(t, result.Errors[0].Retryable, "validation failures are permanent")
	assert.Empty(t, articles.inserted)
	assertCountingInvariant(t, result)
}

// Same content hash across consecutive crawl runs: first seen is new, a repeat
// in the same source is exact, the same content via another source of the same
// organization is cross_source, and fresh content is new again.
func TestProcessItems_HashScenarioAcrossRuns(t *testing.T) {
	index := &memIndex{}
	orch, articles, _, _ := newTestOrchestrator(index)
	articles.index = index

	ctx := context.Background()

	resA := orch.ProcessItems(ctx, "acme", "src-1", []ingest.RawItem{itemBudget})
	assert.Equal(t, 1, resA.ArticlesNew)

	itemB := itemBudget
	itemB.URL = "https://mirror.example.com/transit-budget"
	resB := orch.ProcessItems(ctx, "acme", "src-1", []ingest.RawItem{itemB})
	assert.Zero(t, resB.ArticlesNew)
	assert.Equal(t, 1, resB.DuplicatesExact)

	resC := orch.ProcessItems(ctx, "acme", "src-2", []ingest.RawItem{itemB})
	assert.Zero(t, resC.ArticlesNew)
	assert.Equal(t, 1, resC.DuplicatesCrossSource)

	resD := orch.ProcessItems(ctx, "acme", "src-1", []ingest.RawItem{itemHospital})
	assert.Equal(t, 1, resD.ArticlesNew)

	assert.Len(t, articles.inserted, 2)
}

func TestProcessItems_MixedBatchHoldsInvariant(t *testing.T) {
	orch, articles, _, _ := newTestOrchestrator(&memIndex{})
	articles.failing[itemRobotics.URL] = errors.New("connection reset")

	result := orch.ProcessItems(context.Background(), "acme", "src-1", []ingest.RawItem{
		itemBudget,
		itemBudget, // in-batch exact duplicate
		itemRobotics,
		{URL: "https://example.com/blank"},
	})

	assert.Equal(t, 4, result.ArticlesFound)
	assert.Equal(t, 1, result.ArticlesNew)
	assert.Equal(t, 1, result.DuplicatesExact)
	assert.Len(t, result.Errors, 2)
	assertCountingInvariant(t, result)
}

func TestRunCrawl_DuplicateCompletionIsWarnNoOp(t *testing.T) {
	orch, _, crawls, sources := newTestOrchestrator(&memIndex{})
	crawls.completeErr = repository.ErrCrawlAlreadyCompleted

	result, err := orch.RunCrawl(context.Background(), "acme", "src-1",
		[]ingest.RawItem{itemBudget})

	require.NoError(t, err, "a lost completion race keeps the first outcome")
	assert.Equal(t, 1, result.ArticlesNew)
	assert.Equal(t, []string{"src-1"}, sources.successes)
}

func TestRunCrawl_StartFailure(t *testing.T) {
	orch, articles, crawls, _ := newTestOrchestrator(&memIndex{})
	crawls.startErr = errors.New("db down")

	result, err := orch.RunCrawl(context.Background(), "acme", "src-1",
		[]ingest.RawItem{itemBudget})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "start crawl")
	assert.Nil(t, result)
	assert.Empty(t, articles.inserted)
}

func TestRunCrawl_CompletionFailureSurfaces(t *testing.T) {
	orch, _, crawls, _ := newTestOrchestrator(&memIndex{})
	crawls.completeErr = errors.New("db down")

	result, err := orch.RunCrawl(context.Background(), "acme", "src-1",
		[]ingest.RawItem{itemBudget})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "complete crawl")
	require.NotNil(t, result, "ingested work is still reported")
	assert.Equal(t, 1, result.ArticlesNew)
}

func TestFailCrawl(t *testing.T) {
	orch, _, crawls, sources := newTestOrchestrator(&memIndex{})

	err := orch.FailCrawl(context.Background(), "acme", "src-1", "crawl-9", "fetch timed out after 3 retries")

	require.NoError(t, err)
	require.Len(t, crawls.completions, 1)
	assert.Equal(t, models.CrawlStatusError, crawls.completions[0].status)
	assert.Equal(t, "crawl-9", crawls.completions[0].crawlID)
	assert.Equal(t, "fetch timed out after 3 retries", sources.failures["src-1"])
}

func TestTimeoutCrawl(t *testing.T) {
	orch, _, crawls, _ := newTestOrchestrator(&memIndex{})

	err := orch.TimeoutCrawl(context.Background(), "acme", "src-1", "crawl-9", "deadline exceeded")

	require.NoError(t, err)
	require.Len(t, crawls.completions, 1)
	assert.Equal(t, models.CrawlStatusTimeout, crawls.completions[0].status)
}
