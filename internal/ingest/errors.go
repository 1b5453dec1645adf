package ingest

import "errors"

// Stages a crawled item can fail at. Recorded on models.ItemError so callers
// can tell persistent item defects (validate) from transient failures
// (dedup, insert) worth retrying on the next crawl.
const (
	StageValidate    = "validate"
	StageFingerprint = "fingerprint"
	StageDedup       = "dedup"
	StageInsert      = "insert"
)

// ValidationError marks a crawled item that can never be ingested as-is.
// Retrying the same item will not help.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsRetryable reports whether a per-item failure is worth retrying on the
// next crawl. Validation failures are permanent defects of the item itself;
// classification and storage failures are assumed transient.
func IsRetryable(err error) bool {
	var verr *ValidationError
	return !errors.As(err, &verr)
}
