package main

import (
	"math"
	"testing"

	"bitrate-history/bitrate"
)

// frameSizes are ten 100ms frames at timescale 1000 with keyframes at 0 and 4
var (
	frameSizes = []uint64{10, 20, 10, 40, 10, 10, 70, 10, 10, 10}
	frameSync  = []bool{true, false, false, false, true, false, false, false, false, false}
)

func frameSamples() []bitrate.Sample {
	samples := make([]bitrate.Sample, len(frameSizes))
	for i := range samples {
		samples[i] = bitrate.Sample{
			Duration:  100,
			Timestamp: uint64(i) * 100,
			Size:      frameSizes[i],
			Sync:      frameSync[i],
		}
	}
	return samples
}

func loadAnalyzer(t *testing.T, samples []bitrate.Sample, mode bitrate.Mode) *bitrate.Analyzer {
	t.Helper()
	a, err := bitrate.Load(samples, 1000)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if err := a.SwitchMode(mode); err != nil {
		t.Fatalf("SwitchMode error: %v", err)
	}
	return a
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestBuildSummaryFrameMode(t *testing.T) {
	t.Parallel()

	summary := BuildSummary(loadAnalyzer(t, frameSamples(), bitrate.Frame()))

	// per-frame bitrate is size*8 / 0.1s
	if summary.Buckets != 10 {
		t.Errorf("buckets = %d, want 10", summary.Buckets)
	}
	if !approxEqual(summary.AvgBitrate, 1600) {
		t.Errorf("avg = %v, want 1600", summary.AvgBitrate)
	}
	if summary.MinBitrate != 800 || summary.MaxBitrate != 5600 {
		t.Errorf("min/max = %v/%v, want 800/5600", summary.MinBitrate, summary.MaxBitrate)
	}
	if !approxEqual(summary.P50Bitrate, 800) {
		t.Errorf("p50 = %v, want 800", summary.P50Bitrate)
	}
	if !approxEqual(summary.P90Bitrate, 3440) {
		t.Errorf("p90 = %v, want 3440", summary.P90Bitrate)
	}
	if summary.StdDevBitrate <= 0 {
		t.Errorf("stddev = %v, want > 0", summary.StdDevBitrate)
	}
	if !approxEqual(summary.AvgSize, 20) {
		t.Errorf("avg size = %v, want 20", summary.AvgSize)
	}

	if summary.Keyframes != 2 || summary.GOPs != 1 {
		t.Errorf("keyframes/gops = %d/%d, want 2/1", summary.Keyframes, summary.GOPs)
	}
	want := bitrate.RationalTime{Ticks: 400, Timescale: 1000}
	if summary.MinGOP != want || summary.AvgGOP != want || summary.MaxGOP != want {
		t.Errorf("gop min/avg/max = %s/%s/%s, want 400/1000", summary.MinGOP, summary.AvgGOP, summary.MaxGOP)
	}
}

func TestBuildSummarySingleWindow(t *testing.T) {
	t.Parallel()

	summary := BuildSummary(loadAnalyzer(t, frameSamples(), bitrate.TimeAverage(bitrate.Seconds(1))))

	if summary.Buckets != 1 {
		t.Fatalf("buckets = %d, want 1", summary.Buckets)
	}
	if summary.AvgBitrate != 1600 || summary.P99Bitrate != 1600 || summary.StdDevBitrate != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestBuildSummaryKeyframeIntervals(t *testing.T) {
	t.Parallel()

	// keyframes at 0, 3 and 8; the run after the last keyframe is not a full GOP
	samples := make([]bitrate.Sample, 10)
	for i := range samples {
		samples[i] = bitrate.Sample{Duration: 40, Timestamp: uint64(i) * 40, Size: 100}
	}
	samples[0].Sync = true
	samples[3].Sync = true
	samples[8].Sync = true

	summary := BuildSummary(loadAnalyzer(t, samples, bitrate.GOP()))

	if summary.Keyframes != 3 || summary.GOPs != 2 {
		t.Fatalf("keyframes/gops = %d/%d, want 3/2", summary.Keyframes, summary.GOPs)
	}
	if summary.MinGOP.Ticks != 120 || summary.MaxGOP.Ticks != 200 || summary.AvgGOP.Ticks != 160 {
		t.Errorf("gop min/avg/max = %d/%d/%d, want 120/160/200", summary.MinGOP.Ticks, summary.AvgGOP.Ticks, summary.MaxGOP.Ticks)
	}
}

func TestBuildSummaryNoKeyframes(t *testing.T) {
	t.Parallel()

	samples := frameSamples()
	for i := range samples {
		samples[i].Sync = false
	}
	summary := BuildSummary(loadAnalyzer(t, samples, bitrate.Frame()))

	if summary.Keyframes != 0 || summary.GOPs != 0 || summary.AvgGOP.Ticks != 0 {
		t.Errorf("summary = %+v, want no keyframe stats", summary)
	}
}

func TestBuildSummarySkipsZeroDuration(t *testing.T) {
	t.Parallel()

	samples := []bitrate.Sample{
		{Duration: 0, Timestamp: 0, Size: 500, Sync: true},
		{Duration: 1000, Timestamp: 0, Size: 100},
	}
	summary := BuildSummary(loadAnalyzer(t, samples, bitrate.Frame()))

	if summary.Buckets != 1 || summary.MaxBitrate != 800 {
		t.Errorf("summary = %+v, want one 800 bps bucket", summary)
	}
	if !approxEqual(summary.AvgSize, 300) {
		t.Errorf("avg size = %v, want 300", summary.AvgSize)
	}
}

func TestPercentileFloat64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty", nil, 0.5, 0},
		{"single", []float64{7}, 0.99, 7},
		{"median of two", []float64{1, 3}, 0.5, 2},
		{"upper bound", []float64{1, 2, 3}, 1, 3},
		{"interpolated", []float64{0, 10, 20, 30, 40}, 0.9, 36},
	}

	for _, tt := range tests {
		if got := percentileFloat64(tt.sorted, tt.p); !approxEqual(got, tt.want) {
			t.Errorf("%s: percentileFloat64 = %v, want %v", tt.name, got, tt.want)
		}
	}
}
