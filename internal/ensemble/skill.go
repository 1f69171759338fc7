package ensemble

import (
	"math"

	"github.com/optispark/tiercast/internal/domain"
)

// RollingConfig sets the tiered lookback windows for skill estimation,
// counted in usable rows (one row per model per date).
type RollingConfig struct {
	Primary    int
	Fallback   int
	MinHistory int
}

// Skill computes a model's trailing accuracy/error composite for a posture,
// in roughly [0,100]. History must be the model's observations strictly
// before the target date, ordered ascending. The primary window widens to
// the fallback window, then to the full history, when too few rows remain;
// an empty history scores 0.
func Skill(p domain.Posture, history []domain.ModelObservation, cfg RollingConfig) float64 {
	window := tail(history, cfg.Primary)
	if len(window) < cfg.MinHistory {
		window = tail(history, cfg.Fallback)
	}
	if len(window) < cfg.MinHistory {
		window = history
	}
	if len(window) == 0 {
		return 0
	}

	h := postureHorizons[p]

	accMean := windowMean(window, func(o domain.ModelObservation) float64 {
		return nanMean(o.Acc[h[0]-1], o.Acc[h[1]-1])
	})
	rmseMean := windowMean(window, func(o domain.ModelObservation) float64 {
		return nanMean(o.RMSEPct[h[0]-1], o.RMSEPct[h[1]-1])
	})

	// Out-of-range metrics are clamped, not rejected; an unreported column
	// falls back to the neutral midpoint.
	acc := 50.0
	if !math.IsNaN(accMean) {
		acc = clip(accMean, 0, 100)
	}
	rmse := 50.0
	if !math.IsNaN(rmseMean) {
		rmse = clip(rmseMean, 0, 200)
	}

	return 0.6*acc + 0.4*(100.0-rmse)
}

func tail(obs []domain.ModelObservation, n int) []domain.ModelObservation {
	if n <= 0 || n >= len(obs) {
		return obs
	}
	return obs[len(obs)-n:]
}

// windowMean averages a per-row metric over the window, skipping rows where
// the metric is entirely unreported.
func windowMean(window []domain.ModelObservation, metric func(domain.ModelObservation) float64) float64 {
	sum, n := 0.0, 0
	for _, o := range window {
		if v := metric(o); !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
