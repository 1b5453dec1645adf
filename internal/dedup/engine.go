// Package dedup classifies candidate articles against already-stored
// fingerprints. Four checks run in fixed priority order — exact, cross_source,
// fuzzy_title, phrase_overlap — and the first match wins, so the reported
// duplicate type is deterministic when several checks would fire.
package dedup

import (
	"context"
	"fmt"

	"github.com/jonesrussell/goingest/internal/fingerprint"
	"github.com/jonesrussell/goingest/internal/logger"
	"github.com/jonesrussell/goingest/internal/models"
)

const (
	// DefaultFuzzyTitleMaxDistance is the edit-distance bound for fuzzy title matches.
	DefaultFuzzyTitleMaxDistance = 2
	// DefaultPhraseOverlapThreshold is the fraction of the smaller phrase set
	// that must overlap for a phrase_overlap match.
	DefaultPhraseOverlapThreshold = 0.5
	// DefaultFingerprintWindow caps how many recent fingerprints the fuzzy and
	// overlap layers compare against.
	DefaultFingerprintWindow = 500

	// minTitleSimilarity is the floor a non-exact title match must clear.
	// Without it, very short titles that differ in every character still sit
	// within the edit-distance bound.
	minTitleSimilarity = 0.5
)

// FingerprintIndex is the stored-fingerprint read model the engine consults.
// All lookups are organization-scoped; cross-organization rows never match.
type FingerprintIndex interface {
	// ExistsByHash returns the id of an article with the same content hash in
	// the same source, or "" when none exists.
	ExistsByHash(ctx context.Context, org, sourceID, contentHash string) (string, error)
	// ExistsByHashCrossSource returns the id of an article with the same content
	// hash in a different source of the same organization, or "".
	ExistsByHashCrossSource(ctx context.Context, org, sourceID, contentHash string) (string, error)
	// ExistsByNormalizedTitle returns the id of an article whose normalized
	// title is identical, regardless of source, or "".
	ExistsByNormalizedTitle(ctx context.Context, org, titleNormalized string) (string, error)
	// RecentFingerprints returns up to limit of the organization's most recent
	// fingerprints, newest first.
	RecentFingerprints(ctx context.Context, org string, limit int) ([]models.ArticleFingerprint, error)
}

// Config tunes the fuzzy and overlap layers.
type Config struct {
	FuzzyTitleMaxDistance  int
	PhraseOverlapThreshold float64
	FingerprintWindow      int
}

// Engine applies the fixed-priority duplicate checks.
type Engine struct {
	index FingerprintIndex
	cfg   Config
	log   logger.Logger

	// TitleDistance computes the edit distance between two normalized titles,
	// returning a value greater than max when the bound is exceeded. Swappable
	// so the distance function can be replaced without touching the chain.
	TitleDistance func(a, b string, max int) int
}

// NewEngine creates a deduplication engine over the given fingerprint index.
func NewEngine(index FingerprintIndex, cfg Config, log logger.Logger) *Engine {
	if cfg.FuzzyTitleMaxDistance <= 0 {
		cfg.FuzzyTitleMaxDistance = DefaultFuzzyTitleMaxDistance
	}
	if cfg.PhraseOverlapThreshold <= 0 {
		cfg.PhraseOverlapThreshold = DefaultPhraseOverlapThreshold
	}
	if cfg.FingerprintWindow <= 0 {
		cfg.FingerprintWindow = DefaultFingerprintWindow
	}
	return &Engine{
		index:         index,
		cfg:           cfg,
		log:           log,
		TitleDistance: BoundedLevenshtein,
	}
}

// Classify decides whether the candidate fingerprint duplicates an existing
// article. The batch working set holds fingerprints accepted earlier in the
// same crawl run and is consulted before the durable store at every layer, so
// two near-identical items in one batch cannot both be accepted.
func (e *Engine) Classify(
	ctx context.Context,
	org, sourceID string,
	fp fingerprint.Fingerprint,
	batch *WorkingSet,
) (models.DeduplicationResult, error) {
	// Layer 1: exact — same content hash, same source.
	if id := batch.matchHash(org, sourceID, fp.ContentHash, true); id != "" {
		return duplicate(models.DuplicateTypeExact, id, 1.0), nil
	}
	id, err := e.index.ExistsByHash(ctx, org, sourceID, fp.ContentHash)
	if err != nil {
		return models.DeduplicationResult{}, fmt.Errorf("exact check: %w", err)
	}
	if id != "" {
		return duplicate(models.DuplicateTypeExact, id, 1.0), nil
	}

	// Layer 2: cross_source — same content hash, different source, same org.
	if id := batch.matchHash(org, sourceID, fp.ContentHash, false); id != "" {
		return duplicate(models.DuplicateTypeCrossSource, id, 1.0), nil
	}
	id, err = e.index.ExistsByHashCrossSource(ctx, org, sourceID, fp.ContentHash)
	if err != nil {
		return models.DeduplicationResult{}, fmt.Errorf("cross-source check: %w", err)
	}
	if id != "" {
		return duplicate(models.DuplicateTypeCrossSource, id, 1.0), nil
	}

	// A degenerate fingerprint (no title, no phrases) can only match the hash
	// layers; report not-a-duplicate instead of erroring.
	if fp.TitleNormalized == "" && len(fp.KeyPhrases) == 0 {
		return models.DeduplicationResult{}, nil
	}

	// The fuzzy and overlap layers share one window of recent fingerprints.
	window, err := e.index.RecentFingerprints(ctx, org, e.cfg.FingerprintWindow)
	if err != nil {
		return models.DeduplicationResult{}, fmt.Errorf("fingerprint window: %w", err)
	}

	// Layer 3: fuzzy_title — identical or near-identical normalized title.
	if fp.TitleNormalized != "" {
		if res, ok := e.fuzzyTitle(ctx, org, fp, batch, window); ok {
			return res, nil
		}
	}

	// Layer 4: phrase_overlap — shared key phrases above the threshold.
	if len(fp.KeyPhrases) > 0 {
		if res, ok := e.phraseOverlap(org, fp, batch, window); ok {
			return res, nil
		}
	}

	return models.DeduplicationResult{}, nil
}

func (e *Engine) fuzzyTitle(
	ctx context.Context,
	org string,
	fp fingerprint.Fingerprint,
	batch *WorkingSet,
	window []models.ArticleFingerprint,
) (models.DeduplicationResult, bool) {
	for _, cand := range batch.fingerprints(org) {
		if score, ok := e.titleMatch(fp.TitleNormalized, cand.TitleNormalized); ok {
			return duplicate(models.DuplicateTypeFuzzyTitle, cand.ArticleID, score), true
		}
	}

	// Exact title equality is an indexed lookup; try it before scanning the window.
	if id, err := e.index.ExistsByNormalizedTitle(ctx, org, fp.TitleNormalized); err == nil && id != "" {
		return duplicate(models.DuplicateTypeFuzzyTitle, id, 1.0), true
	} else if err != nil {
		e.log.Warn("fuzzy title lookup failed, falling back to window scan",
			logger.Error(err),
		)
	}

	for i := range window {
		if score, ok := e.titleMatch(fp.TitleNormalized, window[i].TitleNormalized); ok {
			return duplicate(models.DuplicateTypeFuzzyTitle, window[i].ArticleID, score), true
		}
	}
	return models.DeduplicationResult{}, false
}

func (e *Engine) titleMatch(candidate, stored string) (float64, bool) {
	if stored == "" {
		return 0, false
	}
	if candidate == stored {
		return 1.0, true
	}
	dist := e.TitleDistance(candidate, stored, e.cfg.FuzzyTitleMaxDistance)
	if dist > e.cfg.FuzzyTitleMaxDistance {
		return 0, false
	}
	longest := len([]rune(candidate))
	if l := len([]rune(stored)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0, false
	}
	score := 1.0 - float64(dist)/float64(longest)
	if score < minTitleSimilarity {
		return 0, false
	}
	return score, true
}

func (e *Engine) phraseOverlap(
	org string,
	fp fingerprint.Fingerprint,
	batch *WorkingSet,
	window []models.ArticleFingerprint,
) (models.DeduplicationResult, bool) {
	check := func(cand models.ArticleFingerprint) (float64, bool) {
		score := overlapScore(fp.KeyPhrases, cand.KeyPhrases)
		return score, score >= e.cfg.PhraseOverlapThreshold
	}

	for _, cand := range batch.fingerprints(org) {
		if score, ok := check(cand); ok {
			return duplicate(models.DuplicateTypePhraseOverlap, cand.ArticleID, score), true
		}
	}
	for i := range window {
		if score, ok := check(window[i]); ok {
			return duplicate(models.DuplicateTypePhraseOverlap, window[i].ArticleID, score), true
		}
	}
	return models.DeduplicationResult{}, false
}

// overlapScore returns overlap count divided by the size of the smaller set.
func overlapScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, p := range a {
		set[p] = true
	}
	overlap := 0
	for _, p := range b {
		if set[p] {
			overlap++
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(overlap) / float64(smaller)
}

func duplicate(t models.DuplicateType, articleID string, score float64) models.DeduplicationResult {
	return models.DeduplicationResult{
		IsDuplicate:       true,
		DuplicateType:     t,
		ExistingArticleID: articleID,
		SimilarityScore:   score,
	}
}
