package ensemble

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optispark/tiercast/internal/domain"
)

func testBuilder(models []string) *Builder {
	return NewBuilder(
		models,
		RollingConfig{Primary: 60, Fallback: 120, MinHistory: 30},
		WeightConfig{Temperature: 10, Floor: 0.12, Alpha: 1.0},
		DistributionConfig{LookbackDays: 180, HardCapDays: 730},
		nil,
		zerolog.Nop(),
	)
}

func TestScoreDate_ExcludesAbsentModels(t *testing.T) {
	b := testBuilder([]string{"a", "b"})

	var rows []domain.ModelObservation
	for i := 0; i < 30; i++ {
		rows = append(rows,
			obsWithPreds("a", day(i), map[int]float64{1: 1, 8: 1}),
			obsWithPreds("b", day(i), map[int]float64{1: 1, 8: 1}),
		)
	}
	// Only model a reports the target date.
	rows = append(rows, withMetrics(obsWithPreds("a", day(40), map[int]float64{1: 5, 8: 5}), 60, 40))
	hist := domain.NewHistory(rows)

	c, ok := b.ScoreDate(domain.PostureLong, hist, day(40))
	require.True(t, ok)

	assert.Contains(t, c.Weights, "a")
	assert.NotContains(t, c.Weights, "b", "a model absent for the date must be excluded, not zero-weighted")
	assert.InDelta(t, 1.0, c.Weights["a"], 1e-9, "single present model carries all weight")
}

func TestScoreDate_NoRowsForDate(t *testing.T) {
	b := testBuilder([]string{"a"})
	hist := domain.NewHistory([]domain.ModelObservation{
		obsWithPreds("a", day(0), map[int]float64{1: 1, 8: 1}),
	})

	_, ok := b.ScoreDate(domain.PostureLong, hist, day(5))
	assert.False(t, ok)
}

func TestScoreDate_Deterministic(t *testing.T) {
	b := testBuilder([]string{"a", "b"})

	var rows []domain.ModelObservation
	for i := 0; i < 40; i++ {
		rows = append(rows,
			obsWithPreds("a", day(i), map[int]float64{1: float64(i % 7), 8: float64(i % 5)}),
			obsWithPreds("b", day(i), map[int]float64{1: float64(i % 3), 8: float64(i % 11)}),
		)
	}
	hist := domain.NewHistory(rows)

	c1, ok1 := b.ScoreDate(domain.PostureLong, hist, day(39))
	c2, ok2 := b.ScoreDate(domain.PostureLong, hist, day(39))
	require.True(t, ok1)
	require.True(t, ok2)

	assert.Equal(t, c1.Score, c2.Score, "replaying the same date must be bit-identical")
	assert.Equal(t, c1.Weights, c2.Weights)
}

func TestDistributions_StrictlyBeforeTarget(t *testing.T) {
	b := testBuilder([]string{"a"})

	var rows []domain.ModelObservation
	for i := 0; i < 10; i++ {
		rows = append(rows, obsWithPreds("a", day(i), map[int]float64{1: 1, 2: 1, 7: 1, 8: 1}))
	}
	hist := domain.NewHistory(rows)

	long, short := b.Distributions(hist, day(5))
	assert.Len(t, long, 5, "only dates before the target contribute")
	assert.Len(t, short, 5)
}

func TestDistributions_LookbackTrim(t *testing.T) {
	b := NewBuilder(
		[]string{"a"},
		RollingConfig{Primary: 60, Fallback: 120, MinHistory: 30},
		WeightConfig{Temperature: 10, Floor: 0.12, Alpha: 1.0},
		DistributionConfig{LookbackDays: 3, HardCapDays: 730},
		nil,
		zerolog.Nop(),
	)

	var rows []domain.ModelObservation
	for i := 0; i < 10; i++ {
		rows = append(rows, obsWithPreds("a", day(i), map[int]float64{1: 1, 8: 1}))
	}
	hist := domain.NewHistory(rows)

	long, _ := b.Distributions(hist, day(10))
	assert.Len(t, long, 3, "only the trailing lookback window is replayed")
}

func TestDistributions_HardCapExcludesAncientDates(t *testing.T) {
	b := NewBuilder(
		[]string{"a"},
		RollingConfig{Primary: 60, Fallback: 120, MinHistory: 30},
		WeightConfig{Temperature: 10, Floor: 0.12, Alpha: 1.0},
		DistributionConfig{LookbackDays: 1000, HardCapDays: 30},
		nil,
		zerolog.Nop(),
	)

	rows := []domain.ModelObservation{
		obsWithPreds("a", day(0), map[int]float64{1: 1, 8: 1}),   // beyond the cap
		obsWithPreds("a", day(90), map[int]float64{1: 1, 8: 1}),  // within
		obsWithPreds("a", day(95), map[int]float64{1: 1, 8: 1}),  // within
	}
	hist := domain.NewHistory(rows)

	long, _ := b.Distributions(hist, day(100))
	assert.Len(t, long, 2)
}
