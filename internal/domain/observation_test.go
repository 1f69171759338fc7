package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(day int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
}

func TestParseObservation_FullArtifact(t *testing.T) {
	raw := []byte(`{
		"predictions": {"y1": 1.5, "y8": "2.25"},
		"metrics": {
			"rmse_pct": {"y1": 30},
			"acc_pct": {"y1": 70}
		}
	}`)

	obs, err := ParseObservation(d(0), "m", raw)
	require.NoError(t, err)
	assert.Equal(t, "m", obs.Model)
	assert.Equal(t, d(0), obs.Date)

	v, ok := obs.PredAt(1)
	require.True(t, ok)
	assert.InDelta(t, 1.5, v, 1e-9)

	v, ok = obs.PredAt(8)
	require.True(t, ok, "numeric strings coerce")
	assert.InDelta(t, 2.25, v, 1e-9)

	v, ok = obs.RMSEPctAt(1)
	require.True(t, ok)
	assert.InDelta(t, 30, v, 1e-9)

	v, ok = obs.AccAt(1)
	require.True(t, ok)
	assert.InDelta(t, 70, v, 1e-9)

	_, ok = obs.PredAt(2)
	assert.False(t, ok, "unreported horizon stays missing")
}

func TestParseObservation_LegacyRMSEFallback(t *testing.T) {
	raw := []byte(`{
		"predictions": {"y1": 1.0},
		"rmse": {"y1": 0.4}
	}`)

	obs, err := ParseObservation(d(0), "m", raw)
	require.NoError(t, err)

	v, ok := obs.RMSEPctAt(1)
	require.True(t, ok)
	assert.InDelta(t, 40.0, v, 1e-9, "absolute rmse scales by 100")

	v, ok = obs.AccAt(1)
	require.True(t, ok)
	assert.InDelta(t, 96.0, v, 1e-9, "derived accuracy is 100 minus 10x rmse")
}

func TestParseObservation_LegacyAccFloorsAtZero(t *testing.T) {
	raw := []byte(`{"rmse": {"y1": 50}}`)

	obs, err := ParseObservation(d(0), "m", raw)
	require.NoError(t, err)

	v, ok := obs.AccAt(1)
	require.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-9)
}

func TestParseObservation_MetricsWinOverLegacy(t *testing.T) {
	raw := []byte(`{
		"metrics": {"rmse_pct": {"y1": 12}},
		"rmse": {"y1": 0.9}
	}`)

	obs, err := ParseObservation(d(0), "m", raw)
	require.NoError(t, err)

	v, ok := obs.RMSEPctAt(1)
	require.True(t, ok)
	assert.InDelta(t, 12.0, v, 1e-9, "explicit rmse_pct beats the legacy derivation")
}

func TestParseObservation_BadFieldIsMissingNotFatal(t *testing.T) {
	raw := []byte(`{"predictions": {"y1": "not-a-number", "y2": 3}}`)

	obs, err := ParseObservation(d(0), "m", raw)
	require.NoError(t, err)

	_, ok := obs.PredAt(1)
	assert.False(t, ok)
	v, ok := obs.PredAt(2)
	require.True(t, ok)
	assert.InDelta(t, 3.0, v, 1e-9)
}

func TestParseObservation_MalformedArtifact(t *testing.T) {
	_, err := ParseObservation(d(0), "m", []byte(`{`))
	assert.Error(t, err)
}

func TestParseOptionalFloat(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{`3.5`, 3.5, true},
		{`"2.5"`, 2.5, true},
		{`" 7 "`, 7, true},
		{`true`, 1, true},
		{`false`, 0, true},
		{`null`, 0, false},
		{`"abc"`, 0, false},
		{`{}`, 0, false},
		{`[1]`, 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseOptionalFloat(json.RawMessage(tc.raw))
		assert.Equal(t, tc.ok, ok, "raw %s", tc.raw)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 1e-9, "raw %s", tc.raw)
		}
	}
}

func TestParseOptionalInt_Truncates(t *testing.T) {
	got, ok := ParseOptionalInt(json.RawMessage(`3.9`))
	require.True(t, ok)
	assert.Equal(t, 3, got)

	got, ok = ParseOptionalInt(json.RawMessage(`-2.7`))
	require.True(t, ok)
	assert.Equal(t, -2, got)
}

func TestDateOnly(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 22:00 in New York is already the next UTC day.
	got := DateOnly(time.Date(2026, 3, 2, 22, 0, 0, 0, ny))
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), got)
}

func TestHistory_BeforeIsStrict(t *testing.T) {
	h := NewHistory([]ModelObservation{
		{Model: "m", Date: d(0)},
		{Model: "m", Date: d(1)},
		{Model: "m", Date: d(2)},
	})

	got := h.Before("m", d(2))
	require.Len(t, got, 2)
	assert.Equal(t, d(0), got[0].Date)
	assert.Equal(t, d(1), got[1].Date)

	assert.Empty(t, h.Before("m", d(0)))
	assert.Empty(t, h.Before("unknown", d(2)))
}

func TestHistory_At(t *testing.T) {
	h := NewHistory([]ModelObservation{
		{Model: "m", Date: d(0)},
		{Model: "m", Date: d(2)},
	})

	got, ok := h.At("m", d(2))
	require.True(t, ok)
	assert.Equal(t, d(2), got.Date)

	_, ok = h.At("m", d(1))
	assert.False(t, ok)
}

func TestHistory_AddKeepsOrder(t *testing.T) {
	h := NewHistory([]ModelObservation{{Model: "m", Date: d(5)}})
	h.Add(ModelObservation{Model: "m", Date: d(1)})

	got := h.Before("m", d(10))
	require.Len(t, got, 2)
	assert.True(t, got[0].Date.Before(got[1].Date))
}

func TestHistory_Dates(t *testing.T) {
	h := NewHistory([]ModelObservation{
		{Model: "a", Date: d(0)},
		{Model: "b", Date: d(0)},
		{Model: "a", Date: d(3)},
		{Model: "b", Date: d(5)},
	})

	got := h.Dates(d(0), d(5))
	require.Len(t, got, 2, "the upper bound is exclusive and duplicates collapse")
	assert.Equal(t, d(0), got[0])
	assert.Equal(t, d(3), got[1])
}
