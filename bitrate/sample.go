package bitrate

import (
	"fmt"
	"iter"
	"math"
	"slices"
)

// Sample is one encoded frame, or a synthetic aggregate of consecutive frames.
// Duration and Timestamp are ticks in the owning sequence's timescale.
type Sample struct {
	Duration  uint64
	Timestamp uint64
	Size      uint64 // bytes
	Sync      bool   // starts a new group of pictures
}

// Sequence is an immutable ordered list of samples sharing one timescale
type Sequence struct {
	samples   []Sample
	timescale uint32
}

// Totals holds whole-sequence figures computed once from the raw samples
type Totals struct {
	Duration   RationalTime
	Size       uint64
	Frames     uint64
	AvgBitrate uint64 // bits per second
}

// NewSequence copies samples into an immutable Sequence.
// Timestamps and the summed duration must fit in an int64 tick count so every
// point of the sequence is representable as a RationalTime; larger values
// return ErrOverflow.
func NewSequence(samples []Sample, timescale uint32) (*Sequence, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySequence
	}
	if timescale == 0 {
		return nil, ErrInvalidTimescale
	}
	var total uint64
	for i, s := range samples {
		if s.Timestamp > math.MaxInt64 || s.Duration > math.MaxInt64-total {
			return nil, fmt.Errorf("%w: sample %d exceeds %d ticks", ErrOverflow, i, int64(math.MaxInt64))
		}
		total += s.Duration
	}
	return newSequence(slices.Clone(samples), timescale), nil
}

// newSequence takes ownership of samples without copying
func newSequence(samples []Sample, timescale uint32) *Sequence {
	return &Sequence{samples: samples, timescale: timescale}
}

// Len returns the number of samples
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.samples)
}

// At returns the i-th sample
func (s *Sequence) At(i int) Sample {
	return s.samples[i]
}

// Samples returns a copy of the samples
func (s *Sequence) Samples() []Sample {
	return slices.Clone(s.samples)
}

// All iterates over the samples in order
func (s *Sequence) All() iter.Seq2[int, Sample] {
	return func(yield func(int, Sample) bool) {
		for i, sample := range s.samples {
			if !yield(i, sample) {
				return
			}
		}
	}
}

// Timescale returns the ticks per second shared by every sample
func (s *Sequence) Timescale() uint32 {
	return s.timescale
}

// TimeOf expresses a tick count of this sequence as a RationalTime.
// ticks must not exceed math.MaxInt64, which NewSequence guarantees for every
// timestamp and for the total duration.
func (s *Sequence) TimeOf(ticks uint64) RationalTime {
	return RationalTime{Ticks: int64(ticks), Timescale: s.timescale}
}

// Totals sums durations and sizes and derives the average bitrate
func (s *Sequence) Totals() Totals {
	var duration, size uint64
	for _, sample := range s.samples {
		duration += sample.Duration
		size += sample.Size
	}
	return Totals{
		Duration:   s.TimeOf(duration),
		Size:       size,
		Frames:     uint64(len(s.samples)),
		AvgBitrate: bitsPerSecond(size, duration, s.timescale),
	}
}

// combine reduces a run to one synthetic sample: durations and sizes are summed,
// the timestamp is the earliest in the run and the result is never a sync point.
func combine(run []Sample) (Sample, error) {
	if len(run) == 0 {
		return Sample{}, ErrInvalidState
	}
	out := Sample{Timestamp: run[0].Timestamp}
	for _, s := range run {
		out.Duration += s.Duration
		out.Size += s.Size
		out.Timestamp = min(out.Timestamp, s.Timestamp)
	}
	return out, nil
}
