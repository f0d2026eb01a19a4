package bitrate

import (
	"math"

	"github.com/rs/zerolog"
)

// Selection describes the sample under the cursor
type Selection struct {
	Position float64 // requested fraction in [0,1]
	Index    int
	Sample   Sample
	Start    RationalTime
	Bitrate  uint64 // bits per second
}

// SelectionFunc is notified synchronously whenever the selection changes
type SelectionFunc func(Selection)

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger used for debug events
func WithLogger(l zerolog.Logger) Option {
	return func(a *Analyzer) {
		a.log = l
	}
}

// WithMetrics records aggregation and cache activity in m
func WithMetrics(m *Metrics) Option {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// Analyzer owns the raw samples, the current aggregated series, its stats and
// the resample cache. It holds no locks: callers serialize access, and may hand
// a whole Analyzer to another goroutine but must not share it.
type Analyzer struct {
	raw    *Sequence
	totals Totals

	mode   Mode
	series *Sequence
	stats  Stats
	cache  *resampleCache

	cursor    float64
	hasCursor bool
	observers []SelectionFunc

	log     zerolog.Logger
	metrics *Metrics
}

// DefaultMode is the mode applied on load: one-second time windows
func DefaultMode() Mode {
	return TimeAverage(Seconds(1))
}

// Load builds the raw sequence, computes the raw totals once and aggregates
// with DefaultMode.
func Load(samples []Sample, timescale uint32, opts ...Option) (*Analyzer, error) {
	raw, err := NewSequence(samples, timescale)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		raw:    raw,
		totals: raw.Totals(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.log.Debug().
		Int("samples", raw.Len()).
		Uint32("timescale", timescale).
		Uint64("bytes", a.totals.Size).
		Uint64("avg_bps", a.totals.AvgBitrate).
		Msg("Loaded samples")

	if err := a.SwitchMode(DefaultMode()); err != nil {
		return nil, err
	}
	return a, nil
}

// SwitchMode re-aggregates the raw samples, replaces the current series,
// recomputes the per-mode stats and drops the resample cache. On error the
// previous state is kept.
func (a *Analyzer) SwitchMode(mode Mode) error {
	series, err := Aggregate(a.raw, mode)
	if err != nil {
		return err
	}
	stats, err := ComputeStats(series, a.totals)
	if err != nil {
		return err
	}

	a.mode = mode
	a.series = series
	a.stats = stats
	a.InvalidateCache()
	a.metrics.aggregated(mode.Kind)

	a.log.Debug().
		Stringer("mode", mode).
		Int("input", a.raw.Len()).
		Int("output", series.Len()).
		Msg("Aggregated samples")

	if a.hasCursor {
		a.notify(a.selectionAt(a.cursor))
	}
	return nil
}

// InvalidateCache discards any memoized resample result
func (a *Analyzer) InvalidateCache() {
	if a.cache != nil {
		a.metrics.invalidated()
		a.log.Debug().Int("resolution", a.cache.resolution).Msg("Resample cache invalidated")
	}
	a.cache = nil
}

// Resample returns the current series reduced to blocks of len/resolution samples.
// Repeated calls with the same resolution return the identical *Sequence until
// the mode changes.
func (a *Analyzer) Resample(resolution int) (*Sequence, error) {
	if resolution <= 0 {
		return nil, ErrInvalidResolution
	}
	if cached, ok := a.cache.lookup(a.series, resolution); ok {
		a.metrics.cacheHit()
		return cached, nil
	}

	out, err := Resample(a.series, resolution)
	if err != nil {
		return nil, err
	}
	if out == a.series {
		return out, nil
	}

	a.cache = &resampleCache{resolution: resolution, source: a.series, result: out}
	a.metrics.computed()
	a.log.Debug().
		Int("resolution", resolution).
		Int("input", a.series.Len()).
		Int("output", out.Len()).
		Msg("Resampled series")
	return out, nil
}

// Mode returns the current aggregation mode
func (a *Analyzer) Mode() Mode {
	return a.mode
}

// Series returns the current aggregated series
func (a *Analyzer) Series() *Sequence {
	return a.series
}

// Raw returns the loaded, unaggregated samples
func (a *Analyzer) Raw() *Sequence {
	return a.raw
}

// Totals returns the raw totals computed at load time
func (a *Analyzer) Totals() Totals {
	return a.totals
}

// Stats returns the stats for the current mode
func (a *Analyzer) Stats() Stats {
	return a.stats
}

// SampleAt maps a fractional position over the current series to a sample:
// index = floor(p * len), clamped to the valid range. NaN maps to 0.
func (a *Analyzer) SampleAt(p float64) (int, Sample) {
	n := a.series.Len()
	idx := 0
	if !math.IsNaN(p) {
		f := math.Floor(p * float64(n))
		switch {
		case f >= float64(n):
			idx = n - 1
		case f > 0:
			idx = int(f)
		}
	}
	return idx, a.series.At(idx)
}

// OnSelectionChange registers fn to be called after every cursor update
func (a *Analyzer) OnSelectionChange(fn SelectionFunc) {
	a.observers = append(a.observers, fn)
}

// SetCursor moves the cursor to p, notifies observers and returns the selection
func (a *Analyzer) SetCursor(p float64) Selection {
	a.cursor = p
	a.hasCursor = true
	sel := a.selectionAt(p)
	a.notify(sel)
	return sel
}

// Cursor returns the last cursor position and whether one was set
func (a *Analyzer) Cursor() (float64, bool) {
	return a.cursor, a.hasCursor
}

func (a *Analyzer) selectionAt(p float64) Selection {
	idx, sample := a.SampleAt(p)
	return Selection{
		Position: p,
		Index:    idx,
		Sample:   sample,
		Start:    a.series.TimeOf(sample.Timestamp),
		Bitrate:  sample.Bitrate(a.series.timescale),
	}
}

func (a *Analyzer) notify(sel Selection) {
	for _, fn := range a.observers {
		fn(sel)
	}
}
