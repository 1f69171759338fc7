// Package pipeline orchestrates one full tier computation: load
// observations, score both postures, reconstruct distributions, assign
// tiers, persist, and explain.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/optispark/tiercast/internal/config"
	"github.com/optispark/tiercast/internal/data/cache"
	"github.com/optispark/tiercast/internal/domain"
	"github.com/optispark/tiercast/internal/ensemble"
	"github.com/optispark/tiercast/internal/explain"
	"github.com/optispark/tiercast/internal/metrics"
	"github.com/optispark/tiercast/internal/persistence"
	"github.com/optispark/tiercast/internal/tier"
)

// Result is the outcome of one run. Durable is false when the record could
// not be written; the explanation is still valid and callers may retry the
// write.
type Result struct {
	Record      domain.DailyTierRecord
	Explanation explain.Explanation
	Durable     bool
}

// Runner wires the stores, cache, and analysis components for repeated runs.
type Runner struct {
	cfg       config.Config
	obs       persistence.ObservationStore
	tiers     persistence.TierStore
	prices    persistence.PriceStore
	dist      cache.DistributionCache
	builder   *ensemble.Builder
	generator *explain.Generator
	metrics   *metrics.Registry
	log       zerolog.Logger
}

// NewRunner assembles a pipeline from its collaborators. The metrics
// registry may be nil; instrumentation is then skipped.
func NewRunner(cfg config.Config, obs persistence.ObservationStore, tiers persistence.TierStore, prices persistence.PriceStore, dist cache.DistributionCache, reg *metrics.Registry, log zerolog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		obs:       obs,
		tiers:     tiers,
		prices:    prices,
		dist:      dist,
		builder:   ensemble.NewBuilder(cfg.Models, cfg.Rolling(), cfg.WeightCfg(), cfg.Distribution(), cfg.Priors(), log),
		generator: explain.NewGenerator(tier.DefaultStrengths),
		metrics:   reg,
		log:       log.With().Str("component", "pipeline").Logger(),
	}
}

// ResolveDate picks the target date: an explicit override wins, otherwise
// the latest observation date across the configured models.
func (r *Runner) ResolveDate(ctx context.Context, override string) (time.Time, error) {
	if override != "" {
		d, err := time.Parse("2006-01-02", override)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid as-of date %q: %w", override, err)
		}
		return domain.DateOnly(d), nil
	}

	latest, err := r.obs.LatestDate(ctx, r.cfg.Models)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to resolve latest observation date: %w", err)
	}
	return domain.DateOnly(latest), nil
}

// Run computes tiers for one date end to end. The only hard failures are an
// empty target date and persistence-layer errors on the target date's own
// observations; everything else degrades.
func (r *Runner) Run(ctx context.Context, date time.Time) (*Result, error) {
	date = domain.DateOnly(date)
	start := time.Now()

	res, err := r.run(ctx, date)
	if r.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		r.metrics.ComputeDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		r.metrics.ComputeRuns.WithLabelValues(outcome).Inc()
	}
	return res, err
}

func (r *Runner) run(ctx context.Context, date time.Time) (*Result, error) {
	today, err := r.obs.ForDate(ctx, r.cfg.Models, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load observations for %s: %w", domain.DateOnly(date), err)
	}
	if len(today) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoTargetData, domain.DateOnly(date))
	}

	// History gaps degrade precision, not availability.
	past, err := r.obs.Before(ctx, r.cfg.Models, date)
	if err != nil {
		r.countUpstream("history")
		r.log.Warn().Err(err).Msg("history unavailable, scoring with today only")
		past = nil
	}

	hist := domain.NewHistory(past)
	hist.Add(today...)

	longDist, shortDist := r.distributions(ctx, hist, date)

	longScore, ok := r.builder.ScoreDate(domain.PostureLong, hist, date)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoTargetData, domain.DateOnly(date))
	}
	shortScore, _ := r.builder.ScoreDate(domain.PostureShort, hist, date)

	rec := domain.DailyTierRecord{
		Date:  date,
		Long:  r.assign(domain.PostureLong, longScore, longDist),
		Short: r.assign(domain.PostureShort, shortScore, shortDist),
	}

	r.log.Info().
		Str("date", domain.DateOnly(date).Format("2006-01-02")).
		Float64("long_score", rec.Long.Score).
		Str("long_tier", rec.Long.Tier).
		Float64("short_score", rec.Short.Score).
		Str("short_tier", rec.Short.Tier).
		Msg("tiers computed")

	durable := true
	if err := r.tiers.Upsert(ctx, rec); err != nil {
		durable = false
		r.countPersist("daily_tiers")
		r.log.Error().Err(err).Msg("tier record write failed, result is not durable")
	}

	yesterday, price := r.yesterday(ctx, date)
	expl := r.generator.Generate(rec, yesterday, price)

	return &Result{Record: rec, Explanation: expl, Durable: durable}, nil
}

func (r *Runner) assign(p domain.Posture, c ensemble.Combined, dist []float64) domain.TierAssignment {
	cuts := r.cfg.Cuts(p)
	if len(dist) == 0 {
		r.countFallback("empty_distribution")
	}
	return domain.TierAssignment{
		Score:         c.Score,
		Percentile:    tier.Rank(dist, c.Score),
		Tier:          tier.Assign(c.Score, dist, cuts, r.cfg.Tiers.Labels),
		Bias:          tier.BiasTag(p, c.Score, dist),
		ModelWeights:  c.Weights,
		ModelSignals:  c.Signals,
		CutsTopCumPct: cuts,
	}
}

// distributions returns the per-posture historical score samples, consulting
// the cache first. The cache key covers everything that affects content, so
// a hit is exact.
func (r *Runner) distributions(ctx context.Context, hist *domain.History, date time.Time) (long, short []float64) {
	longKey := cache.Key(domain.PostureLong, r.cfg.Models, date, r.cfg.Windows.DistLookbackDays)
	shortKey := cache.Key(domain.PostureShort, r.cfg.Models, date, r.cfg.Windows.DistLookbackDays)

	longHit, okL := r.dist.Get(ctx, longKey)
	shortHit, okS := r.dist.Get(ctx, shortKey)
	if okL && okS {
		r.countCache(domain.PostureLong, true)
		r.countCache(domain.PostureShort, true)
		return longHit, shortHit
	}
	r.countCache(domain.PostureLong, okL)
	r.countCache(domain.PostureShort, okS)

	long, short = r.builder.Distributions(hist, date)
	r.dist.Set(ctx, longKey, long, r.cfg.Storage.CacheTTL.Std())
	r.dist.Set(ctx, shortKey, short, r.cfg.Storage.CacheTTL.Std())
	return long, short
}

// yesterday fetches the prior record and price bar; either may be absent or
// failing, which the explanation layer treats as insufficient data.
func (r *Runner) yesterday(ctx context.Context, date time.Time) (*domain.DailyTierRecord, *domain.PriceBar) {
	rec, err := r.tiers.LatestBefore(ctx, date)
	if err != nil {
		r.countUpstream("yesterday_tiers")
		r.log.Warn().Err(err).Msg("prior tier record unavailable")
		rec = nil
	}
	bar, err := r.prices.LatestBefore(ctx, r.cfg.Price.Ticker, date)
	if err != nil {
		r.countUpstream("yesterday_price")
		r.log.Warn().Err(err).Msg("prior price bar unavailable")
		bar = nil
	}
	return rec, bar
}

func (r *Runner) countFallback(kind string) {
	if r.metrics != nil {
		r.metrics.SoftFallbacks.WithLabelValues(kind).Inc()
	}
}

func (r *Runner) countUpstream(source string) {
	if r.metrics != nil {
		r.metrics.UpstreamErrors.WithLabelValues(source).Inc()
	}
}

func (r *Runner) countPersist(store string) {
	if r.metrics != nil {
		r.metrics.PersistFailures.WithLabelValues(store).Inc()
	}
}

func (r *Runner) countCache(p domain.Posture, hit bool) {
	if r.metrics == nil {
		return
	}
	if hit {
		r.metrics.CacheHits.WithLabelValues(string(p)).Inc()
	} else {
		r.metrics.CacheMisses.WithLabelValues(string(p)).Inc()
	}
}
