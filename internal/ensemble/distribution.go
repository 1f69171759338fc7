package ensemble

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/optispark/tiercast/internal/domain"
)

// DistributionConfig bounds the trailing window used to reconstruct the
// empirical score distribution.
type DistributionConfig struct {
	// LookbackDays is the number of trailing distinct dates replayed.
	LookbackDays int
	// HardCapDays is the absolute ceiling on how far back replay may reach.
	HardCapDays int
}

// Builder reconstructs historical ensemble score distributions. Scores are
// never stored, only their inputs are, so every invocation replays the full
// pipeline for each trailing date as if that date were the target.
type Builder struct {
	models  []string
	rolling RollingConfig
	weights WeightConfig
	dist    DistributionConfig
	priors  map[domain.Posture][]float64
	log     zerolog.Logger
}

// NewBuilder creates a distribution builder for a fixed model set.
func NewBuilder(models []string, rolling RollingConfig, weights WeightConfig, dist DistributionConfig, priors map[domain.Posture][]float64, log zerolog.Logger) *Builder {
	return &Builder{
		models:  models,
		rolling: rolling,
		weights: weights,
		dist:    dist,
		priors:  priors,
		log:     log.With().Str("component", "ensemble.distribution").Logger(),
	}
}

// ScoreDate runs the full per-date ensemble for one posture, using only
// observations strictly before the date for normalization and skill.
// ok is false when no model has an observation for the date.
func (b *Builder) ScoreDate(p domain.Posture, hist *domain.History, date time.Time) (Combined, bool) {
	signals := DateSignals(p, b.models, hist, date, b.rolling)
	if len(signals) == 0 {
		return Combined{}, false
	}
	return Combine(signals, b.weights, b.priors[p]), true
}

// Distributions replays the ensemble over the trailing window of distinct
// observation dates strictly before target and returns the per-posture score
// samples, ordered by date. Dates with zero model rows contribute no sample.
func (b *Builder) Distributions(hist *domain.History, target time.Time) (long, short []float64) {
	from := target.AddDate(0, 0, -b.dist.HardCapDays)
	dates := hist.Dates(from, target)
	if n := b.dist.LookbackDays; n > 0 && len(dates) > n {
		dates = dates[len(dates)-n:]
	}

	long = make([]float64, 0, len(dates))
	short = make([]float64, 0, len(dates))
	for _, d := range dates {
		if c, ok := b.ScoreDate(domain.PostureLong, hist, d); ok {
			long = append(long, c.Score)
		}
		if c, ok := b.ScoreDate(domain.PostureShort, hist, d); ok {
			short = append(short, c.Score)
		}
	}

	b.log.Debug().
		Time("target", target).
		Int("dates", len(dates)).
		Int("long_samples", len(long)).
		Int("short_samples", len(short)).
		Msg("historical distributions rebuilt")
	return long, short
}
