// Package bitrate turns per-frame size records of an encoded stream into
// bitrate-over-time series.
//
// Raw samples are grouped by time window, by group of pictures or kept per
// frame (Aggregate), summarized (ComputeStats) and reduced to a fixed number
// of peak-preserving buckets for drawing (Resample). Analyzer ties these
// together and memoizes the last resample until the mode changes.
//
// All time arithmetic is done on integer ticks; RationalTime converts between
// timescales with round-half-away-from-zero.
//
//	a, err := bitrate.Load(samples, 90000)
//	if err != nil {
//	    return err
//	}
//	bars, err := a.Resample(width)
package bitrate
