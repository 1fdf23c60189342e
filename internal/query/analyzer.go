package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/localseek/localseek/pkg/types"
)

const maxExpansionTerms = 8

var (
	tokenPattern = regexp.MustCompile(`\p{L}+(?:'\p{L}+)*|\p{N}+`)
	yearPattern  = regexp.MustCompile(`^(19|20)\d{2}$`)
)

// Analyzer turns a raw query string into a QueryContext: normalized text,
// expansion terms, intent, and structured constraints. It touches nothing
// outside its inputs, so analysis is deterministic for a fixed clock.
type Analyzer struct {
	maxResults int
	now        func() time.Time
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithClock fixes the reference time used to anchor date phrases.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New creates an Analyzer. maxResults caps the result count requested by
// every produced QueryContext.
func New(maxResults int, opts ...Option) *Analyzer {
	a := &Analyzer{maxResults: maxResults, now: time.Now}
	if a.maxResults <= 0 {
		a.maxResults = 10
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze parses one query. Only an empty query is an error; unparsable
// constraints degrade and are listed in QueryContext.Degraded.
func (a *Analyzer) Analyze(raw string) (*types.QueryContext, error) {
	normalized := normalize(raw)
	if normalized == "" {
		return nil, fmt.Errorf("analyzing %q: %w", raw, types.ErrEmptyQuery)
	}

	terms := tokenPattern.FindAllString(normalized, -1)
	qc := &types.QueryContext{
		Raw:        raw,
		Normalized: normalized,
		Terms:      terms,
		MaxResults: a.maxResults,
	}

	qc.ExpandedTerms = expand(normalized, terms)
	a.extractConstraints(qc)
	qc.Intent = classify(normalized, terms, qc.Constraints)
	return qc, nil
}

// normalize lowercases the query and strips everything but letters, digits,
// and apostrophes inside words.
func normalize(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	return strings.Join(tokenPattern.FindAllString(lower, -1), " ")
}

// expand adds static synonym and domain-related terms absent from the query.
func expand(normalized string, terms []string) []string {
	present := make(map[string]bool, len(terms))
	for _, t := range terms {
		present[t] = true
	}

	var added []string
	add := func(term string) {
		if len(added) >= maxExpansionTerms || present[term] {
			return
		}
		present[term] = true
		added = append(added, term)
	}

	for _, domain := range domainOrder {
		related := domainExpansions[domain]
		if !triggersDomain(normalized, domain, related) {
			continue
		}
		for i, term := range related {
			if i >= 2 {
				break
			}
			add(term)
		}
	}

	for _, term := range terms {
		for i, syn := range synonyms[term] {
			if i >= 2 {
				break
			}
			add(syn)
		}
	}
	return added
}

// triggersDomain reports whether the query names the domain or uses one of
// its leading related terms.
func triggersDomain(normalized, domain string, related []string) bool {
	if containsWord(normalized, domain) {
		return true
	}
	for i, term := range related {
		if i >= 3 {
			break
		}
		if containsWord(normalized, term) {
			return true
		}
	}
	return false
}

func containsWord(normalized, word string) bool {
	for _, t := range strings.Fields(normalized) {
		if t == word {
			return true
		}
	}
	return false
}

// extractConstraints resolves date phrases against the analyzer clock and
// maps file-type hints to categories.
func (a *Analyzer) extractConstraints(qc *types.QueryContext) {
	now := a.now()
	normalized := qc.Normalized

	since, until, matched := datePhraseRange(normalized, now)
	if matched {
		qc.Constraints.Since = since
		qc.Constraints.Until = until
	} else if prep, year, ok := prepositionYear(qc.Terms); ok {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
		switch prep {
		case "before":
			qc.Constraints.Until = start
		case "after":
			qc.Constraints.Since = start.AddDate(1, 0, 0)
		default: // since
			qc.Constraints.Since = start
		}
	} else if year, ok := bareYear(qc.Terms); ok {
		qc.Constraints.Since = time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
		qc.Constraints.Until = time.Date(year+1, time.January, 1, 0, 0, 0, 0, now.Location())
	} else if ref, ok := danglingDateReference(normalized); ok {
		// A relative-date preposition with nothing parsable after it
		qc.Degraded = append(qc.Degraded, ref)
	}

	seen := make(map[string]bool)
	for _, term := range qc.Terms {
		if category, ok := categoryHints[term]; ok && !seen[category] {
			seen[category] = true
			qc.Constraints.Categories = append(qc.Constraints.Categories, category)
		}
	}
}

// datePhraseRange maps a closed set of date phrases to a concrete range.
func datePhraseRange(normalized string, now time.Time) (since, until time.Time, ok bool) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := midnight.AddDate(0, 0, -int((now.Weekday()+6)%7)) // Monday
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

	switch {
	case strings.Contains(normalized, "today"):
		return midnight, time.Time{}, true
	case strings.Contains(normalized, "yesterday"):
		return midnight.AddDate(0, 0, -1), midnight, true
	case strings.Contains(normalized, "this week"):
		return weekStart, time.Time{}, true
	case strings.Contains(normalized, "last week"):
		return weekStart.AddDate(0, 0, -7), weekStart, true
	case strings.Contains(normalized, "this month"):
		return monthStart, time.Time{}, true
	case strings.Contains(normalized, "last month"):
		return monthStart.AddDate(0, -1, 0), monthStart, true
	case strings.Contains(normalized, "this year"):
		return yearStart, time.Time{}, true
	case strings.Contains(normalized, "last year"):
		return yearStart.AddDate(-1, 0, 0), yearStart, true
	case hasRecencyKeyword(normalized):
		// Soft recency phrasing reads as "the last 30 days"
		return midnight.AddDate(0, 0, -30), time.Time{}, true
	}
	return time.Time{}, time.Time{}, false
}

func hasRecencyKeyword(normalized string) bool {
	for _, t := range strings.Fields(normalized) {
		if recencyKeywords[t] {
			return true
		}
	}
	return false
}

// prepositionYear matches "since 2021", "before 2020", "after 2019".
func prepositionYear(terms []string) (prep string, year int, ok bool) {
	for i := 0; i+1 < len(terms); i++ {
		t := terms[i]
		if t != "since" && t != "before" && t != "after" {
			continue
		}
		if yearPattern.MatchString(terms[i+1]) {
			y, err := strconv.Atoi(terms[i+1])
			if err == nil {
				return t, y, true
			}
		}
	}
	return "", 0, false
}

func bareYear(terms []string) (int, bool) {
	for _, t := range terms {
		if yearPattern.MatchString(t) {
			year, err := strconv.Atoi(t)
			if err == nil {
				return year, true
			}
		}
	}
	return 0, false
}

// danglingDateReference finds "since"/"before"/"after" followed by a token
// that is not a recognizable date.
func danglingDateReference(normalized string) (string, bool) {
	fields := strings.Fields(normalized)
	for i, t := range fields {
		if t != "since" && t != "before" && t != "after" {
			continue
		}
		if i+1 >= len(fields) {
			return t, true
		}
		next := fields[i+1]
		if !yearPattern.MatchString(next) && next != "today" && next != "yesterday" &&
			next != "this" && next != "last" {
			return t + " " + next, true
		}
	}
	return "", false
}

// classify picks the coarse intent from what the constraint extraction found.
func classify(normalized string, terms []string, constraints types.Constraints) types.Intent {
	recency := !constraints.Since.IsZero() || !constraints.Until.IsZero() || hasRecencyKeyword(normalized)
	typed := len(constraints.Categories) > 0
	switch {
	case recency && typed:
		return types.IntentCombined
	case recency:
		return types.IntentRecency
	case typed:
		return types.IntentType
	default:
		return types.IntentGeneral
	}
}
