package types

import "time"

// Result represents a single ranked search result with its explanation.
type Result struct {
	// Identification
	DocumentID string
	Path       string

	// Scoring
	Score        float64 // Final combined score in [0, 1]
	Similarity   float64 // Semantic similarity component in [0, 1]
	RecencyBoost float64 // Age-decay contribution in [0, 1]
	LexicalBonus float64 // Exact keyword overlap contribution in [0, 1]

	// Metadata
	Category string
	Preview  string
	ModTime  time.Time

	MatchedTerms []string
	Explanation  string
}

// Validate checks if the result is valid.
func (r *Result) Validate() error {
	if r.DocumentID == "" {
		return ErrMissingDocumentID
	}
	if r.Score < 0 || r.Score > 1 {
		return ErrInvalidScore
	}
	return nil
}

// IndexStatus contains statistics about the current index, reported to the
// caller via index_status.
type IndexStatus struct {
	TotalDocuments   int
	TotalChunks      int
	TotalSizeBytes   int64
	Categories       map[string]int
	LastScanTime     time.Time
	LastScanDuration time.Duration
	FailedPaths      []string
	ProviderVersion  string
}

// ScanSummary reports the outcome of one scan cycle.
type ScanSummary struct {
	TotalListed int
	Indexed     int
	Unchanged   int
	Removed     int
	Failed      int
	Duration    time.Duration
	Errors      []string
}
