package bitrate

import (
	"fmt"
	"strings"
	"time"
)

// ModeKind selects how raw samples are grouped
type ModeKind int

const (
	// KindTimeAverage groups consecutive samples into fixed-length time windows
	KindTimeAverage ModeKind = iota
	// KindGOP groups samples from one sync sample up to the next
	KindGOP
	// KindFrame keeps one bucket per raw sample
	KindFrame
)

func (k ModeKind) String() string {
	switch k {
	case KindTimeAverage:
		return "time"
	case KindGOP:
		return "gop"
	case KindFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// Mode is an aggregation mode; Window is only used by KindTimeAverage
type Mode struct {
	Kind   ModeKind
	Window RationalTime
}

// TimeAverage returns a time-window mode with the given window length
func TimeAverage(window RationalTime) Mode {
	return Mode{Kind: KindTimeAverage, Window: window}
}

// GOP returns the group-of-pictures mode
func GOP() Mode {
	return Mode{Kind: KindGOP}
}

// Frame returns the per-frame identity mode
func Frame() Mode {
	return Mode{Kind: KindFrame}
}

func (m Mode) String() string {
	if m.Kind == KindTimeAverage {
		return fmt.Sprintf("time(%s)", m.Window.Duration())
	}
	return m.Kind.String()
}

// ParseMode parses "time", "gop" or "frame"; window is used for "time"
func ParseMode(name string, window time.Duration) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "time", "time-average", "average":
		w, err := FromDuration(window, uint32(time.Second))
		if err != nil {
			return Mode{}, err
		}
		return TimeAverage(w), nil
	case "gop":
		return GOP(), nil
	case "frame":
		return Frame(), nil
	default:
		return Mode{}, fmt.Errorf("%w: %q (use time, gop or frame)", ErrInvalidMode, name)
	}
}

// Aggregate produces the series for mode from the raw sequence.
// Every mode is lossless: total duration and total size are preserved.
// Frame mode returns raw itself.
func Aggregate(raw *Sequence, mode Mode) (*Sequence, error) {
	if raw.Len() == 0 {
		return nil, ErrEmptySequence
	}

	var (
		out []Sample
		err error
	)
	switch mode.Kind {
	case KindTimeAverage:
		out, err = groupByTime(raw, mode.Window)
	case KindGOP:
		out, err = groupByGOP(raw)
	case KindFrame:
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrInvalidMode, mode.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("aggregating by %s: %w", mode, err)
	}
	return newSequence(out, raw.timescale), nil
}

// groupByTime closes a run as soon as its cumulative duration exceeds the window,
// leaving the sample that crossed the limit to open the next run.
func groupByTime(raw *Sequence, window RationalTime) ([]Sample, error) {
	w, err := window.ConvertScale(raw.timescale)
	if err != nil {
		return nil, err
	}
	if w.Ticks <= 0 {
		return nil, fmt.Errorf("%w: window %s is not positive", ErrInvalidMode, window)
	}
	limit := uint64(w.Ticks)

	samples := raw.samples
	var out []Sample
	var runDuration uint64
	start := 0
	for i, s := range samples {
		runDuration += s.Duration
		if runDuration > limit && i > start {
			c, err := combine(samples[start:i])
			if err != nil {
				return nil, err
			}
			out = append(out, c)
			start = i
			runDuration = s.Duration
		}
	}
	return appendFinalRun(out, samples[start:])
}

// groupByGOP starts a new run at every sync sample after index 0
func groupByGOP(raw *Sequence) ([]Sample, error) {
	samples := raw.samples
	var out []Sample
	start := 0
	for i := 1; i < len(samples); i++ {
		if !samples[i].Sync {
			continue
		}
		c, err := combine(samples[start:i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		start = i
	}
	return appendFinalRun(out, samples[start:])
}

func appendFinalRun(out, run []Sample) ([]Sample, error) {
	c, err := combine(run)
	if err != nil {
		return nil, err
	}
	return append(out, c), nil
}
