package explain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optispark/tiercast/internal/domain"
	"github.com/optispark/tiercast/internal/tier"
)

func gen() *Generator {
	return NewGenerator(tier.DefaultStrengths)
}

func todayRecord(longTier, shortTier string, longScore, shortScore float64) domain.DailyTierRecord {
	return domain.DailyTierRecord{
		Date:  time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		Long:  domain.TierAssignment{Tier: longTier, Score: longScore},
		Short: domain.TierAssignment{Tier: shortTier, Score: shortScore},
	}
}

func hasSuggestionContaining(suggestions []string, substr string) bool {
	for _, s := range suggestions {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func TestGenerate_StableFields(t *testing.T) {
	e := gen().Generate(todayRecord("A+", "B", 3, 1), nil, nil)

	assert.Equal(t, "2026-03-03", e.Date)
	assert.Equal(t, "A+", e.LongSignal)
	assert.Equal(t, "B", e.ShortSignal)
	assert.Equal(t, Disclaimer, e.Disclaimer)
	assert.NotEmpty(t, e.Summary)
	assert.NotEmpty(t, e.Risk)
	assert.NotEmpty(t, e.Outlook)
	assert.NotEmpty(t, e.Suggestions)
}

func TestGenerate_ChoppyWarningWhenBothStrong(t *testing.T) {
	// SS (8) and A+ (6) are both at or above the strong threshold.
	e := gen().Generate(todayRecord("SS", "A+", 3, 2.9), nil, nil)

	require.True(t, e.Relationship.BothStrong)
	assert.True(t, hasSuggestionContaining(e.Suggestions, "CHOPPY"),
		"a two-sided strong market must carry the choppy warning")
	assert.Contains(t, e.Risk, "Choppy")
}

func TestGenerate_ChoppyAndSizingCoexist(t *testing.T) {
	e := gen().Generate(todayRecord("SS", "A+", 3, 2.9), nil, nil)

	assert.True(t, hasSuggestionContaining(e.Suggestions, "CHOPPY"))
	assert.True(t, hasSuggestionContaining(e.Suggestions, "position"),
		"the sizing note is not suppressed by the choppy warning")
}

func TestGenerate_StrongBullishCall(t *testing.T) {
	// SSS vs A: tier difference 4.
	e := gen().Generate(todayRecord("SSS", "A", 5, 1), nil, nil)

	assert.Equal(t, "Very High", e.Confidence)
	assert.True(t, hasSuggestionContaining(e.Suggestions, "STRONG LONG"))
	assert.Contains(t, e.Summary, "STRONG LONG")
	assert.Contains(t, e.Outlook, "upward")
}

func TestGenerate_ReversalWarning(t *testing.T) {
	// Yesterday's strong long call missed a strong down day: factor 0.8.
	yesterday := &domain.DailyTierRecord{
		Date:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Long:  domain.TierAssignment{Tier: "A+", Score: 4},
		Short: domain.TierAssignment{Tier: "B", Score: 1},
	}
	downDay := &domain.PriceBar{Ticker: "SPY", Open: 100, High: 100.5, Low: 96, Close: 97}

	e := gen().Generate(todayRecord("A", "A", 1, 1), yesterday, downDay)

	assert.InDelta(t, 0.8, e.Compensation.Factor, 1e-9)
	assert.True(t, hasSuggestionContaining(e.Suggestions, "REVERSAL"))
	assert.Contains(t, e.Summary, "REVERSAL")
	assert.Contains(t, e.Outlook, "reverse")
}

func TestGenerate_SuggestionOrdering(t *testing.T) {
	yesterday := &domain.DailyTierRecord{
		Date:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Long:  domain.TierAssignment{Tier: "A+", Score: 4},
		Short: domain.TierAssignment{Tier: "B", Score: 1},
	}
	downDay := &domain.PriceBar{Ticker: "SPY", Open: 100, High: 100.5, Low: 96, Close: 97}

	e := gen().Generate(todayRecord("SS", "A+", 3, 2.9), yesterday, downDay)

	require.Len(t, e.Suggestions, 4)
	assert.Contains(t, e.Suggestions[1], "REVERSAL", "directional call first, then the reversal warning")
	assert.Contains(t, e.Suggestions[2], "CHOPPY")
	assert.Contains(t, e.Suggestions[3], "position")
}

func TestGenerate_MissingYesterdayDegrades(t *testing.T) {
	e := gen().Generate(todayRecord("A", "A", 1, 1), nil, nil)

	assert.Equal(t, "insufficient_data", e.Compensation.Analysis)
	assert.False(t, hasSuggestionContaining(e.Suggestions, "REVERSAL"))
	assert.False(t, hasSuggestionContaining(e.Suggestions, "CORRECTION"))
}
