package ensemble

import "math"

// WeightConfig controls how per-model skills become ensemble weights.
type WeightConfig struct {
	// Temperature scales the softmax; larger values flatten the weight
	// distribution toward equal weighting.
	Temperature float64
	// Floor is the minimum weight guaranteed to every model. Floor*N must
	// not exceed 1 (validated at config load).
	Floor float64
	// Alpha < 1 blends the floored weights with a fixed prior vector:
	// mix = alpha*w + (1-alpha)*prior.
	Alpha float64
}

// SoftmaxTemp applies a temperature-scaled softmax, numerically stabilized
// by subtracting the max before exponentiating. All-non-finite input yields
// all zeros.
func SoftmaxTemp(x []float64, temperature float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	t := math.Max(temperature, 1e-9)

	maxV := math.Inf(-1)
	for _, v := range x {
		if !math.IsNaN(v) && !math.IsInf(v, 0) && v > maxV {
			maxV = v
		}
	}
	if math.IsInf(maxV, -1) {
		return out
	}

	sum := 0.0
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = 0
			continue
		}
		out[i] = math.Exp((v - maxV) / t)
		sum += out[i]
	}
	if sum <= 0 {
		for i := range out {
			out[i] = 0
		}
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// ApplyFloor renormalizes w so that every weight is at least floor and the
// vector sums to 1. Weights that would fall below the floor are pinned there
// and the remaining mass is redistributed proportionally among the rest,
// iterating until no weight violates the floor. A degenerate floor*N > 1 is
// clamped to equal weighting.
func ApplyFloor(w []float64, floor float64) []float64 {
	n := len(w)
	if n == 0 {
		return nil
	}
	out := make([]float64, n)

	sum := 0.0
	for _, v := range w {
		if v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
			sum += v
		}
	}
	if sum <= 0 {
		for i := range out {
			out[i] = 1.0 / float64(n)
		}
		return out
	}
	for i, v := range w {
		if v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = v / sum
		}
	}

	if floor <= 0 {
		return out
	}
	if floor*float64(n) >= 1 {
		for i := range out {
			out[i] = 1.0 / float64(n)
		}
		return out
	}

	pinned := make([]bool, n)
	for {
		free := 0.0
		avail := 1.0
		for i := range out {
			if pinned[i] {
				avail -= floor
			} else {
				free += out[i]
			}
		}

		changed := false
		if free <= 0 {
			// No mass left among the unpinned weights; they all sit at the
			// floor too, which only happens when avail/(unpinned) >= floor.
			for i := range out {
				if !pinned[i] {
					pinned[i] = true
					changed = true
				}
			}
			if !changed {
				break
			}
			continue
		}

		scale := avail / free
		for i := range out {
			if !pinned[i] && out[i]*scale < floor {
				pinned[i] = true
				changed = true
			}
		}
		if !changed {
			for i := range out {
				if pinned[i] {
					out[i] = floor
				} else {
					out[i] *= scale
				}
			}
			return out
		}
	}
	// Everything pinned: spread the mass equally.
	for i := range out {
		out[i] = 1.0 / float64(n)
	}
	return out
}

// BlendPrior linearly mixes weights with a prior vector and renormalizes.
// A size mismatch (e.g. a model was excluded for the date) skips blending
// and only renormalizes w.
func BlendPrior(w, prior []float64, alpha float64) []float64 {
	out := make([]float64, len(w))
	copy(out, w)

	if len(prior) != len(w) {
		return normalize(out)
	}
	for i := range out {
		out[i] = alpha*out[i] + (1.0-alpha)*prior[i]
	}
	return normalize(out)
}

func normalize(w []float64) []float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		for i := range w {
			w[i] = 1.0 / float64(len(w))
		}
		return w
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}
