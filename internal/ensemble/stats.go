package ensemble

import (
	"math"
	"sort"
)

// madConsistency rescales the median absolute deviation so it is comparable
// to a standard deviation under normality.
const madConsistency = 0.6745

// robustMinSamples is the history size below which MAD statistics are not
// trustworthy and plain mean/std normalization is used instead.
const robustMinSamples = 10

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mu := mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// RobustZ returns value's z-score against history. With at least
// robustMinSamples finite samples it uses median/MAD scaled by the
// consistency constant; a numerically negligible MAD falls back to mean/std,
// and a near-zero spread substitutes 1.0 so the result stays defined.
func RobustZ(history []float64, value float64) float64 {
	s := finite(history)
	if len(s) < robustMinSamples {
		mu, sd := 0.0, 1.0
		if len(s) > 0 {
			mu = mean(s)
			sd = stddev(s)
		}
		if sd <= 1e-9 {
			sd = 1.0
		}
		return (value - mu) / sd
	}

	med := median(s)
	devs := make([]float64, len(s))
	for i, v := range s {
		devs[i] = math.Abs(v - med)
	}
	mad := median(devs)
	if mad < 1e-9 {
		sd := stddev(s)
		if sd <= 1e-9 {
			sd = 1.0
		}
		return (value - mean(s)) / sd
	}
	return madConsistency * (value - med) / mad
}

// Percentile returns the p-th percentile (0..100) of values using linear
// interpolation between closest ranks. NaN when values is empty.
func Percentile(values []float64, p float64) float64 {
	s := finite(values)
	if len(s) == 0 {
		return math.NaN()
	}
	sort.Float64s(s)
	if len(s) == 1 {
		return s[0]
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 100 {
		return s[len(s)-1]
	}
	pos := p / 100 * float64(len(s)-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	return s[lo] + frac*(s[lo+1]-s[lo])
}

// PercentileRank is the fraction of finite samples <= value, scaled to
// 0..100. Returns (0, false) when no samples exist.
func PercentileRank(history []float64, value float64) (float64, bool) {
	s := finite(history)
	if len(s) == 0 {
		return 0, false
	}
	count := 0
	for _, v := range s {
		if v <= value {
			count++
		}
	}
	return float64(count) / float64(len(s)) * 100.0, true
}

func relu(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	return x
}

func clip(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
