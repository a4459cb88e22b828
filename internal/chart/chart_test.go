package chart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		input    string
		wantSize int
		wantOK   bool
	}{
		{"/chart", DefaultSampleSize, true},
		{"/CHART", DefaultSampleSize, true},
		{"  /chart  ", DefaultSampleSize, true},
		{"/chart 500", 500, true},
		{"/chart abc", DefaultSampleSize, true}, // non-integer falls back to default
		{"/chart 5", MinSampleSize, true},       // clamp low
		{"/chart 99999", MaxSampleSize, true},   // clamp high
		{"/chart -10", MinSampleSize, true},
		{"/charting stuff", 0, false}, // token must match exactly
		{"chart 100", 0, false},
		{"", 0, false},
		{"hello", 0, false},
	}

	for _, tt := range tests {
		size, ok := ParseRequest(tt.input)
		assert.Equal(t, tt.wantOK, ok, "input %q", tt.input)
		if tt.wantOK {
			assert.Equal(t, tt.wantSize, size, "input %q", tt.input)
		}
	}
}

func TestSample_DeterministicPerSize(t *testing.T) {
	first := Sample(200)
	second := Sample(200)
	assert.Equal(t, first, second)

	other := Sample(201)
	assert.NotEqual(t, first[:200], other[:200])
}

func TestSample_Size(t *testing.T) {
	assert.Len(t, Sample(50), 50)
}

func TestRender(t *testing.T) {
	out := Render(Sample(200))
	assert.Contains(t, out, "Demo distribution (n=200)")
	assert.Contains(t, out, "mean=")
	assert.Contains(t, out, "stddev=")
	assert.Contains(t, out, "█")

	// One histogram row per bin.
	require.GreaterOrEqual(t, strings.Count(out, "\n"), histogramBins)
}

func TestRender_Empty(t *testing.T) {
	assert.Equal(t, "No values to chart.", Render(nil))
}

func TestRender_ConstantValues(t *testing.T) {
	// All-equal values must not divide by zero.
	out := Render([]float64{1, 1, 1})
	assert.Contains(t, out, "stddev=0.000")
}

func TestHandle_Deterministic(t *testing.T) {
	assert.Equal(t, Handle(100), Handle(100))
}
