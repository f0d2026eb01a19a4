package bitrate

// Stats summarizes a loaded stream. The totals come from the raw sequence and
// never change; the size and bitrate extremes follow the current series.
type Stats struct {
	TotalDuration  RationalTime
	TotalSize      uint64
	NumOfFrames    uint64
	AvgBitrateBps  uint64
	MaxSizeBytes   uint64
	MinSizeBytes   uint64
	MaxSizeIndex   int
	MinSizeIndex   int
	PeakBitrateBps uint64
	MinBitrateBps  uint64
}

// ComputeStats derives Stats from the current series and the raw totals.
// Ties on size resolve to the first occurrence in sequence order.
func ComputeStats(series *Sequence, totals Totals) (Stats, error) {
	if series.Len() == 0 {
		return Stats{}, ErrEmptySequence
	}

	stats := Stats{
		TotalDuration: totals.Duration,
		TotalSize:     totals.Size,
		NumOfFrames:   totals.Frames,
		AvgBitrateBps: totals.AvgBitrate,
		MaxSizeBytes:  series.samples[0].Size,
		MinSizeBytes:  series.samples[0].Size,
	}

	haveRate := false
	for i, s := range series.samples {
		if s.Size > stats.MaxSizeBytes {
			stats.MaxSizeBytes = s.Size
			stats.MaxSizeIndex = i
		}
		if s.Size < stats.MinSizeBytes {
			stats.MinSizeBytes = s.Size
			stats.MinSizeIndex = i
		}

		// zero-length samples have no meaningful rate
		if s.Duration == 0 {
			continue
		}
		rate := bitsPerSecond(s.Size, s.Duration, series.timescale)
		if !haveRate {
			stats.PeakBitrateBps = rate
			stats.MinBitrateBps = rate
			haveRate = true
			continue
		}
		stats.PeakBitrateBps = max(stats.PeakBitrateBps, rate)
		stats.MinBitrateBps = min(stats.MinBitrateBps, rate)
	}

	return stats, nil
}

// Bitrate returns the sample's bitrate in bits per second for the given timescale
func (s Sample) Bitrate(timescale uint32) uint64 {
	return bitsPerSecond(s.Size, s.Duration, timescale)
}
