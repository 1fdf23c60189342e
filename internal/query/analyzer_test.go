package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localseek/localseek/pkg/types"
)

// Wednesday
var fixedNow = time.Date(2026, 3, 18, 15, 30, 0, 0, time.UTC)

func newTestAnalyzer() *Analyzer {
	return New(10, WithClock(func() time.Time { return fixedNow }))
}

func TestAnalyzeEmptyQuery(t *testing.T) {
	a := newTestAnalyzer()
	_, err := a.Analyze("   ")
	assert.ErrorIs(t, err, types.ErrEmptyQuery)
}

func TestAnalyzeNormalization(t *testing.T) {
	a := newTestAnalyzer()
	qc, err := a.Analyze("  Financial REPORT!!!  ")
	require.NoError(t, err)
	assert.Equal(t, "financial report", qc.Normalized)
	assert.Equal(t, []string{"financial", "report"}, qc.Terms)
	assert.Equal(t, 10, qc.MaxResults)
}

func TestAnalyzeExpandsFinancialQuery(t *testing.T) {
	a := newTestAnalyzer()
	qc, err := a.Analyze("financial report")
	require.NoError(t, err)

	// Domain expansion contributes revenue and profit, the synonym table
	// contributes summary for report
	assert.Contains(t, qc.ExpandedTerms, "revenue")
	assert.Contains(t, qc.ExpandedTerms, "profit")
	assert.Contains(t, qc.ExpandedTerms, "summary")

	text := qc.ExpandedText()
	assert.Contains(t, text, "financial report")
	assert.Contains(t, text, "revenue")
}

func TestAnalyzeExpansionIsDeterministic(t *testing.T) {
	a := newTestAnalyzer()
	first, err := a.Analyze("urgent project plan update")
	require.NoError(t, err)
	second, err := a.Analyze("urgent project plan update")
	require.NoError(t, err)
	assert.Equal(t, first.ExpandedTerms, second.ExpandedTerms)
	assert.NotEmpty(t, first.ExpandedTerms)
}

func TestAnalyzeExpansionSkipsPresentTerms(t *testing.T) {
	a := newTestAnalyzer()
	qc, err := a.Analyze("revenue report")
	require.NoError(t, err)
	assert.NotContains(t, qc.ExpandedTerms, "revenue")
}

func TestAnalyzeIntentGeneral(t *testing.T) {
	a := newTestAnalyzer()
	qc, err := a.Analyze("pasta cooking ingredients")
	require.NoError(t, err)
	assert.Equal(t, types.IntentGeneral, qc.Intent)
	assert.True(t, qc.Constraints.Empty())
}

func TestAnalyzeIntentRecency(t *testing.T) {
	a := newTestAnalyzer()
	qc, err := a.Analyze("recent meeting minutes")
	require.NoError(t, err)
	assert.Equal(t, types.IntentRecency, qc.Intent)
	assert.Equal(t, fixedNow.AddDate(0, 0, -30).Truncate(24*time.Hour), qc.Constraints.Since)
}

func TestAnalyzeIntentType(t *testing.T) {
	a := newTestAnalyzer()
	qc, err := a.Analyze("excel budget numbers")
	require.NoError(t, err)
	assert.Equal(t, types.IntentType, qc.Intent)
	assert.Equal(t, []string{"spreadsheet"}, qc.Constraints.Categories)
}

func TestAnalyzeIntentCombined(t *testing.T) {
	a := newTestAnalyzer()
	qc, err := a.Analyze("spreadsheets from last week")
	require.NoError(t, err)
	assert.Equal(t, types.IntentCombined, qc.Intent)
	assert.Equal(t, []string{"spreadsheet"}, qc.Constraints.Categories)
	assert.False(t, qc.Constraints.Since.IsZero())
	assert.False(t, qc.Constraints.Until.IsZero())
}

func TestDatePhrases(t *testing.T) {
	a := newTestAnalyzer()
	midnight := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		query string
		since time.Time
		until time.Time
	}{
		{"notes from today", midnight, time.Time{}},
		{"notes from yesterday", midnight.AddDate(0, 0, -1), midnight},
		{"notes from this week", monday, time.Time{}},
		{"notes from last week", monday.AddDate(0, 0, -7), monday},
		{"notes from this month", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Time{}},
		{"notes from last month", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"notes from last year", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		qc, err := a.Analyze(tc.query)
		require.NoError(t, err, tc.query)
		assert.Equal(t, tc.since, qc.Constraints.Since, tc.query)
		assert.Equal(t, tc.until, qc.Constraints.Until, tc.query)
	}
}

func TestBareYearConstraint(t *testing.T) {
	a := newTestAnalyzer()
	qc, err := a.Analyze("vacation photos 2023")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), qc.Constraints.Since)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), qc.Constraints.Until)
}

func TestPrepositionYearConstraints(t *testing.T) {
	a := newTestAnalyzer()

	qc, err := a.Analyze("tax documents before 2024")
	require.NoError(t, err)
	assert.True(t, qc.Constraints.Since.IsZero())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), qc.Constraints.Until)

	qc, err = a.Analyze("invoices since 2024")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), qc.Constraints.Since)
	assert.True(t, qc.Constraints.Until.IsZero())
}

func TestUnparsableDateDegrades(t *testing.T) {
	a := newTestAnalyzer()
	qc, err := a.Analyze("invoices since forever")
	require.NoError(t, err)
	assert.True(t, qc.Constraints.Since.IsZero())
	assert.NotEmpty(t, qc.Degraded)
	assert.Contains(t, qc.Degraded[0], "since")
}
