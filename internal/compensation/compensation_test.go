package compensation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optispark/tiercast/internal/domain"
	"github.com/optispark/tiercast/internal/tier"
)

func bar(open, high, low, close float64) domain.PriceBar {
	return domain.PriceBar{
		Ticker: "SPY",
		Date:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
	}
}

func record(longTier, shortTier string, longScore, shortScore float64) *domain.DailyTierRecord {
	return &domain.DailyTierRecord{
		Date:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Long:  domain.TierAssignment{Tier: longTier, Score: longScore},
		Short: domain.TierAssignment{Tier: shortTier, Score: shortScore},
	}
}

func TestClassifyMovement(t *testing.T) {
	m, ok := ClassifyMovement(bar(100, 104, 99, 103))
	require.True(t, ok)
	assert.Equal(t, DirectionUp, m.Direction)
	assert.Equal(t, StrengthStrong, m.Strength, "+3% close-over-open is strong")
	assert.InDelta(t, 3.0, m.CloseOpenPct, 1e-9)

	m, _ = ClassifyMovement(bar(100, 101, 99, 99))
	assert.Equal(t, DirectionDown, m.Direction)
	assert.Equal(t, StrengthModerate, m.Strength)

	m, _ = ClassifyMovement(bar(100, 100.4, 99.9, 100.2))
	assert.Equal(t, StrengthWeak, m.Strength)

	m, _ = ClassifyMovement(bar(100, 101, 99, 100))
	assert.Equal(t, DirectionFlat, m.Direction)
}

func TestClassifyMovement_ZeroOpen(t *testing.T) {
	_, ok := ClassifyMovement(bar(0, 1, 0, 1))
	assert.False(t, ok)
}

func TestAnalyze_StrongCompensation(t *testing.T) {
	// Strong long call (tier difference 3) against a strong down day.
	yesterday := record("A+", "B", 4.0, 1.0)
	down3pct := bar(100, 100.5, 96, 97)

	acc := Analyze(yesterday, &down3pct, tier.DefaultStrengths)

	assert.Equal(t, AnalysisStrongCompensation, acc.Analysis)
	assert.InDelta(t, 0.8, acc.Factor, 1e-9)
	assert.Equal(t, "long", acc.PredictedDirection)
	assert.Equal(t, StrengthStrong, acc.PredictionStrength)
	assert.Equal(t, DirectionDown, acc.ActualDirection)
	assert.Equal(t, 3, acc.TierDifference)
}

func TestAnalyze_CorrectStrong(t *testing.T) {
	yesterday := record("A+", "B", 4.0, 1.0)
	up3pct := bar(100, 104, 99.5, 103)

	acc := Analyze(yesterday, &up3pct, tier.DefaultStrengths)

	assert.Equal(t, AnalysisCorrectStrong, acc.Analysis)
	assert.InDelta(t, 0.1, acc.Factor, 1e-9)
}

func TestAnalyze_ModerateCompensation(t *testing.T) {
	// Strong short call wrong against only a moderate up day.
	yesterday := record("B", "A", 1.0, 2.0)
	up1pct := bar(100, 101.5, 99.8, 101)

	acc := Analyze(yesterday, &up1pct, tier.DefaultStrengths)

	assert.Equal(t, "short", acc.PredictedDirection)
	assert.Equal(t, AnalysisModerateCompensation, acc.Analysis)
	assert.InDelta(t, 0.6, acc.Factor, 1e-9)
}

func TestAnalyze_ScoreTiebreak(t *testing.T) {
	// Equal tiers, score gap beyond 0.5 decides the direction. The realized
	// move is a weak drift down, so the miss only warrants weak compensation.
	yesterday := record("A", "A", 2.0, 0.5)
	down := bar(100, 100.2, 99.5, 99.7)

	acc := Analyze(yesterday, &down, tier.DefaultStrengths)
	assert.Equal(t, "long", acc.PredictedDirection)
	assert.Equal(t, StrengthModerate, acc.PredictionStrength)
	assert.Equal(t, AnalysisWeakCompensation, acc.Analysis)
	assert.InDelta(t, 0.3, acc.Factor, 1e-9)
}

func TestAnalyze_NeutralMarket(t *testing.T) {
	yesterday := record("A", "A", 1.0, 1.0)
	flat := bar(100, 100.5, 99.5, 100)

	acc := Analyze(yesterday, &flat, tier.DefaultStrengths)
	assert.Equal(t, AnalysisNeutralMarket, acc.Analysis)
	assert.InDelta(t, 0.0, acc.Factor, 1e-9)
}

func TestAnalyze_MissingInputs(t *testing.T) {
	acc := Analyze(nil, nil, tier.DefaultStrengths)
	assert.Equal(t, AnalysisInsufficientData, acc.Analysis)
	assert.InDelta(t, 0.0, acc.Factor, 1e-9)

	b := bar(0, 0, 0, 0)
	acc = Analyze(record("A", "A", 1, 1), &b, tier.DefaultStrengths)
	assert.Equal(t, AnalysisNoPriceData, acc.Analysis)
}

func TestAnalyze_FactorAlwaysWithinBounds(t *testing.T) {
	tiers := []string{"SSS", "S", "A", "B", "D"}
	bars := []domain.PriceBar{
		bar(100, 104, 96, 103),   // strong up
		bar(100, 104, 96, 97),    // strong down
		bar(100, 101.5, 99, 101), // moderate up
		bar(100, 101, 98.5, 99),  // moderate down
		bar(100, 100.3, 99.8, 100.1), // weak up
		bar(100, 100.5, 99.5, 100),   // flat
	}

	for _, lt := range tiers {
		for _, st := range tiers {
			for _, b := range bars {
				b := b
				acc := Analyze(record(lt, st, 1.7, 0.4), &b, tier.DefaultStrengths)
				assert.GreaterOrEqual(t, acc.Factor, 0.0, "%s/%s", lt, st)
				assert.LessOrEqual(t, acc.Factor, 0.8, "%s/%s", lt, st)
			}
		}
	}
}

func TestRelate_Buckets(t *testing.T) {
	r := Relate("SSS", "A", 5, 1, tier.DefaultStrengths)
	assert.Equal(t, "strong_bullish", r.MarketType)
	assert.Equal(t, "very_high", r.Confidence)

	r = Relate("A", "SSS", 1, 5, tier.DefaultStrengths)
	assert.Equal(t, "strong_bearish", r.MarketType)

	r = Relate("A+", "A", 2, 1, tier.DefaultStrengths)
	assert.Equal(t, "slightly_bullish", r.MarketType)
	assert.Equal(t, "moderate", r.Confidence)

	r = Relate("A", "A", 1.0, 1.2, tier.DefaultStrengths)
	assert.Equal(t, "neutral", r.MarketType)
	assert.Equal(t, "very_low", r.Confidence)

	r = Relate("A", "A", 2.0, 1.0, tier.DefaultStrengths)
	assert.Equal(t, "slightly_bullish", r.MarketType)
	assert.Equal(t, "low", r.Confidence)
}

func TestRelate_BothStrong(t *testing.T) {
	r := Relate("SS", "A+", 3, 2.8, tier.DefaultStrengths)
	assert.True(t, r.BothStrong, "strengths 8 and 6 are both at or above the choppy threshold")

	r = Relate("SS", "B", 3, 1, tier.DefaultStrengths)
	assert.False(t, r.BothStrong)
}
