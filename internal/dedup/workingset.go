package dedup

import "github.com/jonesrussell/goingest/internal/models"

// WorkingSet accumulates the fingerprints of articles accepted earlier in the
// same batch. It is created per crawl run and discarded afterwards; it is not
// safe for concurrent use and does not need to be — items within one batch are
// processed sequentially.
type WorkingSet struct {
	items []models.ArticleFingerprint
}

// NewWorkingSet returns an empty working set.
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{}
}

// Add records an accepted article's fingerprint.
func (w *WorkingSet) Add(fp models.ArticleFingerprint) {
	w.items = append(w.items, fp)
}

// Len returns the number of accumulated fingerprints.
func (w *WorkingSet) Len() int {
	if w == nil {
		return 0
	}
	return len(w.items)
}

// matchHash returns the article id of an in-batch entry with the same content
// hash, constrained to the same source when sameSource is true and to other
// sources otherwise. Entries from other organizations never match.
func (w *WorkingSet) matchHash(org, sourceID, contentHash string, sameSource bool) string {
	if w == nil || contentHash == "" {
		return ""
	}
	for i := range w.items {
		fp := &w.items[i]
		if fp.OrganizationSlug != org || fp.ContentHash != contentHash {
			continue
		}
		if sameSource == (fp.SourceID == sourceID) {
			return fp.ArticleID
		}
	}
	return ""
}

// fingerprints returns the accumulated entries belonging to org.
func (w *WorkingSet) fingerprints(org string) []models.ArticleFingerprint {
	if w == nil {
		return nil
	}
	out := make([]models.ArticleFingerprint, 0, len(w.items))
	for i := range w.items {
		if w.items[i].OrganizationSlug == org {
			out = append(out, w.items[i])
		}
	}
	return out
}
