package types

import "time"

// Intent is the coarse classification of a query, drawn from a closed set.
type Intent string

const (
	IntentGeneral  Intent = "general_search"
	IntentRecency  Intent = "recency_filtered"
	IntentType     Intent = "type_filtered"
	IntentCombined Intent = "combined"
)

// Constraints are the structured filters extracted from a query. Zero times
// mean unbounded.
type Constraints struct {
	Since      time.Time
	Until      time.Time
	Categories []string
}

// Empty reports whether no constraint is set.
func (c Constraints) Empty() bool {
	return c.Since.IsZero() && c.Until.IsZero() && len(c.Categories) == 0
}

// QueryContext is the ephemeral, request-scoped representation of one query.
// It is created by the analyzer, consumed by the ranking engine and the
// explanation generator, and discarded after the response.
type QueryContext struct {
	Raw        string
	Normalized string

	Terms         []string // Informative terms of the normalized query
	ExpandedTerms []string // Added synonym/semantic expansion terms, deduplicated

	Intent      Intent
	Constraints Constraints
	MaxResults  int

	// Degraded lists constraint phrases that could not be parsed and were
	// dropped rather than failing the query.
	Degraded []string
}

// ExpandedText returns the query text used for embedding: the normalized
// query followed by its expansion terms.
func (q *QueryContext) ExpandedText() string {
	text := q.Normalized
	for _, term := range q.ExpandedTerms {
		text += " " + term
	}
	return text
}
