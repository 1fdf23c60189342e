package searcher

import (
	"fmt"
	"strings"

	"github.com/localseek/localseek/pkg/types"
)

// Explain builds the human-readable justification for one result. It is a
// pure function of the result and the query context; the numbers it cites
// (similarity, recency boost) are the ones the ranking actually used.
func Explain(r *types.Result, qc *types.QueryContext) string {
	var parts []string

	switch {
	case r.Similarity >= 0.7:
		parts = append(parts, fmt.Sprintf("closely matches your query %q (similarity %.2f)", qc.Raw, r.Similarity))
	case r.Similarity >= 0.3:
		parts = append(parts, fmt.Sprintf("relates to your query %q (similarity %.2f)", qc.Raw, r.Similarity))
	default:
		parts = append(parts, fmt.Sprintf("has weak relevance to your query %q (similarity %.2f)", qc.Raw, r.Similarity))
	}

	if len(r.MatchedTerms) > 0 {
		parts = append(parts, fmt.Sprintf("matches the terms %s", strings.Join(r.MatchedTerms, ", ")))
	}

	if r.RecencyBoost >= 0.5 {
		parts = append(parts, fmt.Sprintf("was modified recently (%s, recency boost %.2f)",
			r.ModTime.Format("January 2, 2006"), r.RecencyBoost))
	}

	if len(qc.Constraints.Categories) > 0 && r.Category != "" {
		parts = append(parts, fmt.Sprintf("is a %s file, matching your filter", r.Category))
	}

	return "This document " + strings.Join(parts, "; it ") + "."
}
