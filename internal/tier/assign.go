// Package tier maps scalar ensemble scores onto a discrete, ordered label
// ladder via percentile thresholds over a reconstructed score distribution.
package tier

import (
	"math"

	"github.com/optispark/tiercast/internal/domain"
	"github.com/optispark/tiercast/internal/ensemble"
)

// DefaultLabels is the label ladder ordered strongest to weakest.
var DefaultLabels = []string{"SSS", "SS", "S", "A+", "A", "B+", "B", "C+", "C", "D"}

// Default cumulative top-percentage cut tables per posture. Entry i is the
// share of the historical distribution that label i (and stronger) covers.
var (
	DefaultLongCuts  = []float64{1, 3, 7, 14, 24, 52, 69, 82, 93, 100}
	DefaultShortCuts = []float64{0.1, 0.4, 1.4, 4.4, 21.4, 49.4, 66.4, 82.4, 93.4, 100}
)

// DefaultStrengths maps each label to an integer strength, strongest highest.
// Hand-tuned alongside the cut tables; unknown labels read as the midpoint 5.
var DefaultStrengths = map[string]int{
	"SSS": 9, "SS": 8, "S": 7, "A+": 6, "A": 5,
	"B+": 4, "B": 3, "C+": 2, "C": 1, "D": 0,
}

// Strength returns a label's integer strength from the map, defaulting to 5
// for labels the map does not know.
func Strength(strengths map[string]int, label string) int {
	if s, ok := strengths[label]; ok {
		return s
	}
	return 5
}

// Thresholds computes the score threshold for each cut: the distribution's
// (100-p)-th percentile. NaN entries when the distribution is empty.
func Thresholds(hist []float64, topCumPcts []float64) []float64 {
	out := make([]float64, len(topCumPcts))
	for i, p := range topCumPcts {
		out[i] = ensemble.Percentile(hist, 100-p)
	}
	return out
}

// Assign maps a score to a label: the first cut (strongest-first) whose
// threshold the score meets or exceeds wins; none met assigns the weakest
// label. An empty distribution returns the middle label, since no ranking
// information exists.
func Assign(score float64, hist []float64, topCumPcts []float64, labels []string) string {
	if len(hist) == 0 {
		return labels[len(labels)/2]
	}
	thresholds := Thresholds(hist, topCumPcts)
	for i, label := range labels {
		if i >= len(thresholds) {
			break
		}
		if !math.IsNaN(thresholds[i]) && score >= thresholds[i] {
			return label
		}
	}
	return labels[len(labels)-1]
}

// Rank is the score's percentile rank (0-100) against the distribution, nil
// when the distribution is empty.
func Rank(hist []float64, score float64) *float64 {
	r, ok := ensemble.PercentileRank(hist, score)
	if !ok {
		return nil
	}
	return &r
}

// biasFallback is the synthetic two-point distribution used when no history
// exists; it forces a deterministic near-neutral z instead of an undefined
// result.
var biasFallback = []float64{0, 1}

// BiasTag classifies the score's robust z against its own historical
// distribution into a directional bias. For SHORT the sign interpretation is
// inverted: a high SHORT z is bearish conviction.
func BiasTag(p domain.Posture, score float64, hist []float64) string {
	if len(hist) == 0 {
		hist = biasFallback
	}
	z := ensemble.RobustZ(hist, score)

	if p == domain.PostureLong {
		switch {
		case z >= 2.5:
			return "Strong buy-the-dip bias"
		case z >= 1.5:
			return "Buy-the-dip bias"
		case z <= -2.5:
			return "Strong sell-the-rip bias"
		case z <= -1.5:
			return "Sell-the-rip bias"
		}
		return "Neutral/Two-way"
	}
	switch {
	case z >= 2.5:
		return "Strong sell-the-rip bias"
	case z >= 1.5:
		return "Sell-the-rip bias"
	case z <= -2.5:
		return "Strong buy-the-dip bias"
	case z <= -1.5:
		return "Buy-the-dip bias"
	}
	return "Neutral/Two-way"
}
