// Package stats holds the statistical primitives used to score accounts.
//
// Every function is pure and returns a documented fallback (usually 0)
// for empty or degenerate input instead of an error.
package stats

import (
	"math"
	"sort"
	"time"
)

// HoursPerDay is the number of buckets in the hour-of-day histogram.
const HoursPerDay = 24

// Default trapezoid bounds for FuzzyLow and FuzzyHigh.
const (
	FuzzyLowA  = 0.0
	FuzzyLowB  = 0.5
	FuzzyHighA = 0.5
	FuzzyHighB = 1.0
)

// Entropy calculates the Shannon entropy (base 2) of the rune distribution of text.
// Formula: H = -sum (c_r/n) * log2(c_r/n)
func Entropy(text string) float64 {
	if text == "" {
		return 0
	}

	counts := make(map[rune]int)
	for _, r := range text {
		counts[r]++
	}

	histogram := make([]int, 0, len(counts))
	for _, c := range counts {
		histogram = append(histogram, c)
	}
	// Fixed summation order keeps results bit-for-bit reproducible.
	sort.Ints(histogram)

	return shannonEntropy(histogram)
}

// TemporalEntropy calculates the Shannon entropy of the UTC hour-of-day
// histogram of timestamps.
func TemporalEntropy(timestamps []time.Time) float64 {
	if len(timestamps) == 0 {
		return 0
	}

	histogram := make([]int, HoursPerDay)
	for _, ts := range timestamps {
		histogram[ts.UTC().Hour()]++
	}

	return shannonEntropy(histogram)
}

// Burstiness returns (sigma - mu) / (sigma + mu) over the inter-event
// intervals, in hours, of the sorted timestamps. sigma is the population
// standard deviation. The result lies in [-1, 1]; fewer than two timestamps
// or a zero denominator yield 0.
func Burstiness(timestamps []time.Time) float64 {
	if len(timestamps) < 2 {
		return 0
	}

	sorted := make([]time.Time, len(timestamps))
	copy(sorted, timestamps)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Before(sorted[j])
	})

	intervals := make([]float64, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals[i-1] = sorted[i].Sub(sorted[i-1]).Hours()
	}

	mean, std := meanStd(intervals)
	if std+mean == 0 {
		return 0
	}
	return (std - mean) / (std + mean)
}

// TransformBurstiness maps v in [-1, 1] onto [0, 1], reversing direction:
// 1 - (v+1)/2. It normalizes raw signals onto a "higher = more suspicious" scale.
func TransformBurstiness(v float64) float64 {
	return 1 - ((v + 1) / 2)
}

// FuzzyLow is a trapezoidal membership that is 1 at or below a and 0 at or above b.
func FuzzyLow(v, a, b float64) float64 {
	switch {
	case v <= a:
		return 1
	case v >= b:
		return 0
	}
	return (b - v) / (b - a)
}

// FuzzyHigh is a trapezoidal membership that is 0 at or below a and 1 at or above b.
func FuzzyHigh(v, a, b float64) float64 {
	switch {
	case v <= a:
		return 0
	case v >= b:
		return 1
	}
	return (v - a) / (b - a)
}

// shannonEntropy calculates Shannon entropy from a histogram.
// Formula: H = -sum (c_j/n) * log2(c_j/n) for non-zero bins
func shannonEntropy(histogram []int) float64 {
	n := 0
	for _, count := range histogram {
		n += count
	}
	if n == 0 {
		return 0
	}

	entropy := 0.0
	nFloat := float64(n)
	for _, count := range histogram {
		if count > 0 {
			p := float64(count) / nFloat
			entropy -= p * math.Log2(p)
		}
	}

	// -0 shows up for single-symbol inputs.
	if entropy == 0 {
		return 0
	}
	return entropy
}

// meanStd returns the mean and population standard deviation of values.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}

	n := float64(len(values))
	for _, v := range values {
		mean += v
	}
	mean /= n

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= n

	return mean, math.Sqrt(variance)
}
