// Package chart implements the shared /chart demo command: sample a
// gaussian distribution and render it as a text histogram. Sampling is
// seeded with the sample size, so a given size always produces the same
// chart.
package chart

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

const (
	// DefaultSampleSize is used when /chart has no (or a malformed) argument.
	DefaultSampleSize = 200

	// MinSampleSize and MaxSampleSize clamp the requested sample size.
	MinSampleSize = 20
	MaxSampleSize = 2000

	histogramBins = 12
	barWidth      = 40
)

// ParseRequest returns the requested sample size if input is a /chart
// command, or ok=false otherwise. A bare "/chart" or a non-integer
// argument yields the default size; integers clamp to
// [MinSampleSize, MaxSampleSize].
func ParseRequest(input string) (size int, ok bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, false
	}

	parts := strings.Fields(trimmed)
	if !strings.EqualFold(parts[0], "/chart") {
		return 0, false
	}
	if len(parts) == 1 {
		return DefaultSampleSize, true
	}

	requested, err := strconv.Atoi(parts[1])
	if err != nil {
		return DefaultSampleSize, true
	}
	return max(MinSampleSize, min(MaxSampleSize, requested)), true
}

// Sample draws sampleSize standard-gaussian values from a generator
// seeded with the sample size itself. Deterministic per size.
func Sample(sampleSize int) []float64 {
	rng := rand.New(rand.NewSource(int64(sampleSize)))
	values := make([]float64, sampleSize)
	for i := range values {
		values[i] = rng.NormFloat64()
	}
	return values
}

// Render draws a unicode-bar histogram of values with summary statistics.
func Render(values []float64) string {
	if len(values) == 0 {
		return "No values to chart."
	}

	lo, hi := values[0], values[0]
	var sum float64
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	stddev := math.Sqrt(variance / float64(len(values)))

	bins := make([]int, histogramBins)
	span := hi - lo
	if span == 0 {
		span = 1
	}
	for _, v := range values {
		bin := int((v - lo) / span * float64(histogramBins))
		if bin == histogramBins {
			bin--
		}
		bins[bin]++
	}

	peak := 0
	for _, count := range bins {
		if count > peak {
			peak = count
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Demo distribution (n=%d)\n\n", len(values))
	for i, count := range bins {
		binLo := lo + span*float64(i)/histogramBins
		binHi := lo + span*float64(i+1)/histogramBins
		bar := strings.Repeat("█", count*barWidth/peak)
		fmt.Fprintf(&b, "[%6.2f, %6.2f) %-*s %d\n", binLo, binHi, barWidth, bar, count)
	}
	fmt.Fprintf(&b, "\nmean=%.3f stddev=%.3f min=%.3f max=%.3f", mean, stddev, lo, hi)
	return b.String()
}

// Handle runs the full /chart flow for an already-parsed sample size.
func Handle(sampleSize int) string {
	return Render(Sample(sampleSize))
}
