package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goingest/internal/models"
)

func TestJSONMap_ValueAndScan(t *testing.T) {
	m := models.JSONMap{"selector": "h1.headline", "depth": float64(3)}

	value, err := m.Value()
	require.NoError(t, err)

	var scanned models.JSONMap
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, m, scanned)
}

func TestJSONMap_NilRoundTrip(t *testing.T) {
	var m models.JSONMap

	value, err := m.Value()
	require.NoError(t, err)
	assert.Nil(t, value)

	var scanned models.JSONMap
	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
}

func TestJSONMap_ScanRejectsNonBytes(t *testing.T) {
	var m models.JSONMap
	assert.Error(t, m.Scan(42))
}

func TestCrawlStatus_Terminal(t *testing.T) {
	assert.False(t, models.CrawlStatusRunning.Terminal())
	assert.True(t, models.CrawlStatusSuccess.Terminal())
	assert.True(t, models.CrawlStatusError.Terminal())
	assert.True(t, models.CrawlStatusTimeout.Terminal())
}

func TestCrawlCounts_RecordDuplicate(t *testing.T) {
	var counts models.CrawlCounts
	counts.RecordDuplicate(models.DuplicateTypeExact)
	counts.RecordDuplicate(models.DuplicateTypeExact)
	counts.RecordDuplicate(models.DuplicateTypeCrossSource)
	counts.RecordDuplicate(models.DuplicateTypeFuzzyTitle)
	counts.RecordDuplicate(models.DuplicateTypePhraseOverlap)

	assert.Equal(t, 2, counts.DuplicatesExact)
	assert.Equal(t, 1, counts.DuplicatesCrossSource)
	assert.Equal(t, 1, counts.DuplicatesFuzzyTitle)
	assert.Equal(t, 1, counts.DuplicatesPhraseOverlap)
	assert.Equal(t, 5, counts.DuplicatesTotal())
}

func TestSourceType_Valid(t *testing.T) {
	assert.True(t, models.SourceTypeWeb.Valid())
	assert.True(t, models.SourceTypeRSS.Valid())
	assert.False(t, models.SourceType("carrier_pigeon").Valid())
}

func TestValidCrawlFrequency(t *testing.T) {
	for _, freq := range models.CrawlFrequencies {
		assert.True(t, models.ValidCrawlFrequency(freq), "frequency %d", freq)
	}
	assert.False(t, models.ValidCrawlFrequency(7))
	assert.False(t, models.ValidCrawlFrequency(0))
}
