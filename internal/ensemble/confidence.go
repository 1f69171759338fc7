package ensemble

import (
	"math"

	"github.com/optispark/tiercast/internal/domain"
)

// normConfidence maps today's metric into [0,1] against its own historical
// 10th/90th percentile band. With fewer than robustMinSamples history points
// it degrades to a linear 0-1 scaling of the raw percentage. For error
// metrics the comparison is inverted: lower error means higher confidence.
// An unreported metric yields the neutral 0.5.
func normConfidence(today float64, history []float64, invert bool) float64 {
	s := finite(history)
	if math.IsNaN(today) || math.IsInf(today, 0) {
		return 0.5
	}
	if len(s) < robustMinSamples {
		v01 := clip(today/100.0, 0, 1)
		if invert {
			return 1.0 - v01
		}
		return v01
	}
	q10 := Percentile(s, 10)
	q90 := Percentile(s, 90)
	span := math.Max(q90-q10, 1e-6)
	if invert {
		return clip((q90-today)/span, 0, 1)
	}
	return clip((today-q10)/span, 0, 1)
}

// Confidence is the unweighted average of the accuracy-based and error-based
// sub-scores for the posture's metric horizons.
func Confidence(p domain.Posture, obs domain.ModelObservation, history []domain.ModelObservation) float64 {
	h := postureHorizons[p]

	accToday := nanMean(obs.Acc[h[0]-1], obs.Acc[h[1]-1])
	rmseToday := nanMean(obs.RMSEPct[h[0]-1], obs.RMSEPct[h[1]-1])

	accHist := make([]float64, 0, len(history))
	rmseHist := make([]float64, 0, len(history))
	for _, o := range history {
		if v := nanMean(o.Acc[h[0]-1], o.Acc[h[1]-1]); !math.IsNaN(v) {
			accHist = append(accHist, v)
		}
		if v := nanMean(o.RMSEPct[h[0]-1], o.RMSEPct[h[1]-1]); !math.IsNaN(v) {
			rmseHist = append(rmseHist, v)
		}
	}

	return 0.5*normConfidence(accToday, accHist, false) + 0.5*normConfidence(rmseToday, rmseHist, true)
}
