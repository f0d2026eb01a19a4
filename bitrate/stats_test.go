package bitrate

import (
	"errors"
	"testing"
)

func TestComputeStatsTimeWindow(t *testing.T) {
	t.Parallel()

	raw := fixtureSequence(t)
	series, err := Aggregate(raw, TimeAverage(RationalTime{300, 1000}))
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	stats, err := ComputeStats(series, raw.Totals())
	if err != nil {
		t.Fatalf("ComputeStats error: %v", err)
	}

	if stats.NumOfFrames != 10 {
		t.Errorf("NumOfFrames = %d, want the raw count 10", stats.NumOfFrames)
	}
	if stats.AvgBitrateBps != 1600 {
		t.Errorf("AvgBitrateBps = %d, want 1600", stats.AvgBitrateBps)
	}
	if stats.TotalDuration != (RationalTime{1000, 1000}) || stats.TotalSize != 200 {
		t.Errorf("totals = %s/%d, want 1000/1000 and 200", stats.TotalDuration, stats.TotalSize)
	}
	if stats.MaxSizeBytes != 90 || stats.MaxSizeIndex != 2 {
		t.Errorf("max = %d at %d, want 90 at 2", stats.MaxSizeBytes, stats.MaxSizeIndex)
	}
	if stats.MinSizeBytes != 10 || stats.MinSizeIndex != 3 {
		t.Errorf("min = %d at %d, want 10 at 3", stats.MinSizeBytes, stats.MinSizeIndex)
	}
	// 90 bytes over 0.3s, and 10 bytes over the trailing 0.1s
	if stats.PeakBitrateBps != 2400 {
		t.Errorf("PeakBitrateBps = %d, want 2400", stats.PeakBitrateBps)
	}
	if stats.MinBitrateBps != 800 {
		t.Errorf("MinBitrateBps = %d, want 800", stats.MinBitrateBps)
	}
}

func TestComputeStatsTiesAndZeroDurations(t *testing.T) {
	t.Parallel()

	series, err := NewSequence([]Sample{
		{Duration: 100, Size: 5},
		{Duration: 100, Size: 9},
		{Duration: 0, Size: 9},
		{Duration: 100, Size: 5},
	}, 1000)
	if err != nil {
		t.Fatalf("NewSequence error: %v", err)
	}

	stats, err := ComputeStats(series, series.Totals())
	if err != nil {
		t.Fatalf("ComputeStats error: %v", err)
	}
	if stats.MaxSizeIndex != 1 {
		t.Errorf("MaxSizeIndex = %d, want first occurrence 1", stats.MaxSizeIndex)
	}
	if stats.MinSizeIndex != 0 {
		t.Errorf("MinSizeIndex = %d, want first occurrence 0", stats.MinSizeIndex)
	}
	if stats.PeakBitrateBps != 720 || stats.MinBitrateBps != 400 {
		t.Errorf("bitrates = %d/%d, want 720/400", stats.PeakBitrateBps, stats.MinBitrateBps)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	t.Parallel()

	if _, err := ComputeStats(nil, Totals{}); !errors.Is(err, ErrEmptySequence) {
		t.Errorf("expected ErrEmptySequence, got %v", err)
	}
}
