package main

import (
	"math"
	"sort"

	"bitrate-history/bitrate"
)

// BitrateSummary holds the distribution of per-bucket bitrate over the current
// series and keyframe interval statistics over the raw sequence
type BitrateSummary struct {
	Buckets       int     // buckets with a non-zero duration
	AvgBitrate    float64 // mean of per-bucket bitrate, bits per second
	P50Bitrate    float64
	P90Bitrate    float64
	P99Bitrate    float64
	P999Bitrate   float64
	MinBitrate    float64
	MaxBitrate    float64
	StdDevBitrate float64

	AvgSize    float64 // mean bucket size in bytes
	StdDevSize float64

	Keyframes int
	GOPs      int // complete keyframe-to-keyframe intervals
	MinGOP    bitrate.RationalTime
	AvgGOP    bitrate.RationalTime
	MaxGOP    bitrate.RationalTime
}

// BuildSummary computes the distribution summary for the analyzer's current mode
func BuildSummary(a *bitrate.Analyzer) BitrateSummary {
	series := a.Series()
	timescale := series.Timescale()

	var summary BitrateSummary
	rates := make([]float64, 0, series.Len())
	sizes := make([]float64, 0, series.Len())
	for _, s := range series.All() {
		sizes = append(sizes, float64(s.Size))
		if s.Duration == 0 {
			continue
		}
		rates = append(rates, float64(s.Bitrate(timescale)))
	}

	summary.Buckets = len(rates)
	if len(rates) > 0 {
		summary.AvgBitrate, summary.StdDevBitrate = meanStdDev(rates)
		sort.Float64s(rates)
		summary.MinBitrate = rates[0]
		summary.MaxBitrate = rates[len(rates)-1]
		summary.P50Bitrate = percentileFloat64(rates, 0.50)
		summary.P90Bitrate = percentileFloat64(rates, 0.90)
		summary.P99Bitrate = percentileFloat64(rates, 0.99)
		summary.P999Bitrate = percentileFloat64(rates, 0.999)
	}
	if len(sizes) > 0 {
		summary.AvgSize, summary.StdDevSize = meanStdDev(sizes)
	}

	summary.keyframeStats(a.Raw())
	return summary
}

// keyframeStats measures the intervals between consecutive sync samples.
// The run after the last keyframe is incomplete and not counted.
func (s *BitrateSummary) keyframeStats(raw *bitrate.Sequence) {
	var (
		total, minTicks, maxTicks uint64
		elapsed                   uint64
		seen                      bool
	)
	for _, sample := range raw.All() {
		if sample.Sync {
			s.Keyframes++
			if seen {
				s.GOPs++
				total += elapsed
				if s.GOPs == 1 || elapsed < minTicks {
					minTicks = elapsed
				}
				maxTicks = max(maxTicks, elapsed)
			}
			seen = true
			elapsed = 0
		}
		elapsed += sample.Duration
	}

	if s.GOPs == 0 {
		return
	}
	s.MinGOP = raw.TimeOf(minTicks)
	s.MaxGOP = raw.TimeOf(maxTicks)
	s.AvgGOP = raw.TimeOf(total / uint64(s.GOPs))
}

func meanStdDev(values []float64) (mean, stddev float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}
	return mean, math.Sqrt(sumSquaredDiff / float64(len(values)))
}

// percentileFloat64 calculates the p-th percentile from sorted values
func percentileFloat64(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	idx := p * float64(len(sorted)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
