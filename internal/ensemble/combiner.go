package ensemble

import (
	"time"

	"github.com/optispark/tiercast/internal/domain"
)

// ModelSignal is one model's contribution to a posture on one date.
type ModelSignal struct {
	Model  string
	Signal float64
	Skill  float64
}

// Combined is the ensemble outcome for one posture on one date.
type Combined struct {
	Score   float64
	Weights map[string]float64
	Signals map[string]float64
}

// Combine turns per-model skills into a weight vector and collapses the
// directional signals into one scalar score. Models absent for the date must
// not be present in signals at all: they were never entered into the skill
// vector, so normalization is unaffected by their omission. The prior is
// only blended when alpha < 1 and its length matches the signal count.
func Combine(signals []ModelSignal, cfg WeightConfig, prior []float64) Combined {
	skills := make([]float64, len(signals))
	for i, s := range signals {
		skills[i] = s.Skill
	}

	w := ApplyFloor(SoftmaxTemp(skills, cfg.Temperature), cfg.Floor)
	if cfg.Alpha < 1.0 {
		w = BlendPrior(w, prior, cfg.Alpha)
		// Blending against an arbitrary prior can dip below the floor;
		// re-flooring keeps the weight invariant intact.
		w = ApplyFloor(w, cfg.Floor)
	}

	out := Combined{
		Weights: make(map[string]float64, len(signals)),
		Signals: make(map[string]float64, len(signals)),
	}
	for i, s := range signals {
		out.Weights[s.Model] = w[i]
		out.Signals[s.Model] = s.Signal
		out.Score += w[i] * s.Signal
	}
	return out
}

// DateSignals computes each model's directional signal and skill for one
// posture on one date, using only history strictly before that date. Models
// without an observation for the date are excluded entirely.
func DateSignals(p domain.Posture, models []string, hist *domain.History, date time.Time, cfg RollingConfig) []ModelSignal {
	out := make([]ModelSignal, 0, len(models))
	for _, m := range models {
		obs, ok := hist.At(m, date)
		if !ok {
			continue
		}
		past := hist.Before(m, date)
		out = append(out, ModelSignal{
			Model:  m,
			Signal: DirectionalSignal(p, obs, past),
			Skill:  Skill(p, past, cfg),
		})
	}
	return out
}
