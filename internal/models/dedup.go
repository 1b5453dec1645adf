package models

// DuplicateType classifies why a candidate article was rejected as a duplicate.
// The values are ordered by check priority: a cheaper, more certain check
// pre-empts the later ones.
type DuplicateType string

const (
	DuplicateTypeExact         DuplicateType = "exact"
	DuplicateTypeCrossSource   DuplicateType = "cross_source"
	DuplicateTypeFuzzyTitle    DuplicateType = "fuzzy_title"
	DuplicateTypePhraseOverlap DuplicateType = "phrase_overlap"
)

// DeduplicationResult is the transient outcome of classifying one candidate.
type DeduplicationResult struct {
	IsDuplicate       bool          `json:"is_duplicate"`
	DuplicateType     DuplicateType `json:"duplicate_type,omitempty"`
	ExistingArticleID string        `json:"existing_article_id,omitempty"`
	SimilarityScore   float64       `json:"similarity_score,omitempty"`
}
