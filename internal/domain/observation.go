package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Horizons is the number of prediction horizons a model reports per day (y1..y8).
const Horizons = 8

// Posture is one of the two market directions scored independently.
type Posture string

const (
	PostureLong  Posture = "long"
	PostureShort Posture = "short"
)

// ModelObservation is one model's reported metrics for one calendar date.
// Fields are optional per horizon: a nil entry means the model did not report
// that value. Observations are immutable once recorded.
type ModelObservation struct {
	Date    time.Time  `json:"as_of_date"`
	Model   string     `json:"model_name"`
	Pred    [Horizons]*float64 `json:"pred"`
	RMSEPct [Horizons]*float64 `json:"rmse_pct"`
	Acc     [Horizons]*float64 `json:"acc"`
}

// PredAt returns the prediction for horizon h (1-based), if reported.
func (o ModelObservation) PredAt(h int) (float64, bool) {
	return deref(o.Pred, h)
}

// RMSEPctAt returns the percentage RMSE for horizon h (1-based), if reported.
func (o ModelObservation) RMSEPctAt(h int) (float64, bool) {
	return deref(o.RMSEPct, h)
}

// AccAt returns the accuracy percentage for horizon h (1-based), if reported.
func (o ModelObservation) AccAt(h int) (float64, bool) {
	return deref(o.Acc, h)
}

func deref(vals [Horizons]*float64, h int) (float64, bool) {
	if h < 1 || h > Horizons {
		return 0, false
	}
	v := vals[h-1]
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

// modelArtifact mirrors the upstream forecast artifact layout. Metrics are
// loosely typed upstream, so every numeric field goes through coercion.
type modelArtifact struct {
	Predictions map[string]json.RawMessage `json:"predictions"`
	Metrics     struct {
		RMSEPct map[string]json.RawMessage `json:"rmse_pct"`
		AccPct  map[string]json.RawMessage `json:"acc_pct"`
	} `json:"metrics"`
	// Legacy artifacts carry only absolute RMSE at the top level.
	RMSE map[string]json.RawMessage `json:"rmse"`
}

// ParseObservation decodes a raw forecast artifact into a typed observation.
// A field that fails numeric coercion is treated as missing for that horizon
// only; the record as a whole still parses. Legacy artifacts that report only
// absolute RMSE get rmse_pct = rmse*100 and acc = max(0, 100-10*rmse).
func ParseObservation(date time.Time, model string, data []byte) (ModelObservation, error) {
	var art modelArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return ModelObservation{}, fmt.Errorf("parse artifact for %s: %w", model, err)
	}

	obs := ModelObservation{Date: DateOnly(date), Model: model}
	for i := 1; i <= Horizons; i++ {
		key := fmt.Sprintf("y%d", i)

		if raw, ok := art.Predictions[key]; ok {
			if v, ok := ParseOptionalFloat(raw); ok {
				obs.Pred[i-1] = &v
			}
		}

		rmseAbs, hasAbs := 0.0, false
		if raw, ok := art.RMSE[key]; ok {
			rmseAbs, hasAbs = ParseOptionalFloat(raw)
		}

		if raw, ok := art.Metrics.RMSEPct[key]; ok {
			if v, ok := ParseOptionalFloat(raw); ok {
				obs.RMSEPct[i-1] = &v
			}
		} else if hasAbs {
			v := rmseAbs * 100.0
			obs.RMSEPct[i-1] = &v
		}

		if raw, ok := art.Metrics.AccPct[key]; ok {
			if v, ok := ParseOptionalFloat(raw); ok {
				obs.Acc[i-1] = &v
			}
		} else if hasAbs {
			v := math.Max(0.0, 100.0-rmseAbs*10.0)
			obs.Acc[i-1] = &v
		}
	}
	return obs, nil
}

// ParseOptionalFloat coerces a raw JSON value to float64. Accepted shapes, in
// precedence order: JSON number, numeric string, boolean (1/0). Everything
// else (null, objects, non-numeric strings, NaN/Inf) reports !ok.
func ParseOptionalFloat(raw json.RawMessage) (float64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// ParseOptionalInt coerces a raw JSON value to int with the same precedence
// as ParseOptionalFloat; fractional values are truncated toward zero.
func ParseOptionalInt(raw json.RawMessage) (int, bool) {
	f, ok := ParseOptionalFloat(raw)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// DateOnly truncates a timestamp to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// History is a set of observations grouped by model, each slice ordered by
// date ascending. It is read-only once built.
type History struct {
	byModel map[string][]ModelObservation
}

// NewHistory groups observations by model and sorts each series by date.
func NewHistory(obs []ModelObservation) *History {
	h := &History{byModel: make(map[string][]ModelObservation)}
	for _, o := range obs {
		h.byModel[o.Model] = append(h.byModel[o.Model], o)
	}
	for m := range h.byModel {
		series := h.byModel[m]
		sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		h.byModel[m] = series
	}
	return h
}

// Add inserts additional observations, keeping per-model date order.
func (h *History) Add(obs ...ModelObservation) {
	for _, o := range obs {
		series := h.byModel[o.Model]
		series = append(series, o)
		sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		h.byModel[o.Model] = series
	}
}

// Before returns the model's observations strictly before date, ordered
// ascending. The returned slice aliases internal storage; callers must not
// mutate it.
func (h *History) Before(model string, date time.Time) []ModelObservation {
	series := h.byModel[model]
	i := sort.Search(len(series), func(i int) bool { return !series[i].Date.Before(date) })
	return series[:i]
}

// At returns the model's observation for the exact date, if present.
func (h *History) At(model string, date time.Time) (ModelObservation, bool) {
	series := h.byModel[model]
	i := sort.Search(len(series), func(i int) bool { return !series[i].Date.Before(date) })
	if i < len(series) && series[i].Date.Equal(date) {
		return series[i], true
	}
	return ModelObservation{}, false
}

// Dates returns the distinct observation dates across all models within
// [from, to), ordered ascending.
func (h *History) Dates(from, to time.Time) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, series := range h.byModel {
		for _, o := range series {
			if !o.Date.Before(from) && o.Date.Before(to) {
				seen[o.Date] = struct{}{}
			}
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
