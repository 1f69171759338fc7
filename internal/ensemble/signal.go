package ensemble

import (
	"math"

	"github.com/optispark/tiercast/internal/domain"
)

// Horizon pairs are fixed per-posture feature selections: LONG reads the
// next-day and furthest horizons (y1/y8), SHORT reads y2 inverted plus y7.
// These are not configurable.
var postureHorizons = map[domain.Posture][2]int{
	domain.PostureLong:  {1, 8},
	domain.PostureShort: {2, 7},
}

// MetricHorizons returns the accuracy/error horizons relevant to a posture.
func MetricHorizons(p domain.Posture) [2]int {
	return postureHorizons[p]
}

// predHistory collects a horizon's reported predictions across a history
// slice, skipping dates where the model did not report the horizon.
func predHistory(history []domain.ModelObservation, horizon int) []float64 {
	out := make([]float64, 0, len(history))
	for _, o := range history {
		if v, ok := o.PredAt(horizon); ok {
			out = append(out, v)
		}
	}
	return out
}

// predToday returns today's prediction for a horizon, defaulting to 0 when
// the model did not report it (a missing horizon carries no deviation).
func predToday(obs domain.ModelObservation, horizon int) float64 {
	if v, ok := obs.PredAt(horizon); ok {
		return v
	}
	return 0
}

// DirectionalSignal converts a model's raw forecast for one date into a
// non-negative directional signal for a posture, scaled by the model's
// confidence. History must hold the model's observations strictly before the
// observation date.
func DirectionalSignal(p domain.Posture, obs domain.ModelObservation, history []domain.ModelObservation) float64 {
	conf := Confidence(p, obs, history)

	switch p {
	case domain.PostureLong:
		z1 := RobustZ(predHistory(history, 1), predToday(obs, 1))
		z8 := RobustZ(predHistory(history, 8), predToday(obs, 8))
		return (relu(z1) + relu(z8)) * conf
	case domain.PostureShort:
		z2 := RobustZ(predHistory(history, 2), predToday(obs, 2))
		z7 := RobustZ(predHistory(history, 7), predToday(obs, 7))
		return (relu(-z2) + relu(z7)) * conf
	default:
		return 0
	}
}

// nanMean averages the present values, NaN when none are present.
func nanMean(vals ...*float64) float64 {
	sum, n := 0.0, 0
	for _, v := range vals {
		if v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
