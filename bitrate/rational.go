package bitrate

import (
	"fmt"
	"math"
	"math/bits"
	"time"
)

// RationalTime is an exact time value expressed as Ticks / Timescale seconds
type RationalTime struct {
	Ticks     int64
	Timescale uint32
}

// NewRationalTime returns a RationalTime, rejecting a zero timescale
func NewRationalTime(ticks int64, timescale uint32) (RationalTime, error) {
	if timescale == 0 {
		return RationalTime{}, ErrInvalidTimescale
	}
	return RationalTime{Ticks: ticks, Timescale: timescale}, nil
}

// Seconds returns n whole seconds at timescale 1
func Seconds(n int64) RationalTime {
	return RationalTime{Ticks: n, Timescale: 1}
}

// FromDuration converts d to the given timescale, rounding half away from zero
func FromDuration(d time.Duration, timescale uint32) (RationalTime, error) {
	ns := RationalTime{Ticks: int64(d), Timescale: uint32(time.Second)}
	return ns.ConvertScale(timescale)
}

// IsValid reports whether the timescale is usable
func (t RationalTime) IsValid() bool {
	return t.Timescale > 0
}

// ConvertScale re-expresses t in another timescale, rounding half away from zero
func (t RationalTime) ConvertScale(timescale uint32) (RationalTime, error) {
	if t.Timescale == 0 || timescale == 0 {
		return RationalTime{}, ErrInvalidTimescale
	}
	if t.Timescale == timescale {
		return t, nil
	}
	ticks, err := mulDivRound(t.Ticks, uint64(timescale), uint64(t.Timescale))
	if err != nil {
		return RationalTime{}, fmt.Errorf("converting %s to timescale %d: %w", t, timescale, err)
	}
	return RationalTime{Ticks: ticks, Timescale: timescale}, nil
}

// Add returns t + o in t's timescale; o is rescaled first when the scales differ
func (t RationalTime) Add(o RationalTime) (RationalTime, error) {
	o, err := o.ConvertScale(t.Timescale)
	if err != nil {
		return RationalTime{}, err
	}
	sum := t.Ticks + o.Ticks
	// signed overflow: both operands share a sign the result lacks
	if (t.Ticks >= 0) == (o.Ticks >= 0) && (sum >= 0) != (t.Ticks >= 0) {
		return RationalTime{}, ErrOverflow
	}
	return RationalTime{Ticks: sum, Timescale: t.Timescale}, nil
}

// Compare returns -1, 0 or +1 comparing the exact values of t and o
func (t RationalTime) Compare(o RationalTime) int {
	// t.Ticks/t.Timescale vs o.Ticks/o.Timescale, cross-multiplied in 128 bits
	ls, lhi, llo := mulSigned(t.Ticks, uint64(o.Timescale))
	rs, rhi, rlo := mulSigned(o.Ticks, uint64(t.Timescale))
	if ls != rs {
		if ls < rs {
			return -1
		}
		return 1
	}
	c := compare128(lhi, llo, rhi, rlo)
	if ls < 0 {
		return -c
	}
	return c
}

// Seconds returns the value as floating-point seconds, for display only
func (t RationalTime) Seconds() float64 {
	if t.Timescale == 0 {
		return 0
	}
	return float64(t.Ticks) / float64(t.Timescale)
}

// Duration converts to a time.Duration, saturating on overflow
func (t RationalTime) Duration() time.Duration {
	ns, err := t.ConvertScale(uint32(time.Second))
	if err != nil {
		if t.Ticks < 0 {
			return time.Duration(math.MinInt64)
		}
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns.Ticks)
}

func (t RationalTime) String() string {
	return fmt.Sprintf("%d/%d", t.Ticks, t.Timescale)
}

// mulDivRound computes a*num/den rounded half away from zero using 128-bit intermediates
func mulDivRound(a int64, num, den uint64) (int64, error) {
	neg := a < 0
	mag := uint64(a)
	if neg {
		mag = -mag
	}

	hi, lo := bits.Mul64(mag, num)
	if hi >= den {
		return 0, ErrOverflow
	}
	q, r := bits.Div64(hi, lo, den)
	if r >= den-r {
		if q == math.MaxUint64 {
			return 0, ErrOverflow
		}
		q++
	}

	if neg {
		if q > 1<<63 {
			return 0, ErrOverflow
		}
		return -int64(q), nil
	}
	if q > math.MaxInt64 {
		return 0, ErrOverflow
	}
	return int64(q), nil
}

// mulSigned returns the sign and 128-bit magnitude of a*b
func mulSigned(a int64, b uint64) (sign int, hi, lo uint64) {
	if a == 0 || b == 0 {
		return 0, 0, 0
	}
	mag := uint64(a)
	sign = 1
	if a < 0 {
		mag = -mag
		sign = -1
	}
	hi, lo = bits.Mul64(mag, b)
	return sign, hi, lo
}

func compare128(ahi, alo, bhi, blo uint64) int {
	switch {
	case ahi < bhi:
		return -1
	case ahi > bhi:
		return 1
	case alo < blo:
		return -1
	case alo > blo:
		return 1
	}
	return 0
}

// bitsPerSecond returns size*8 bytes over ticks/timescale seconds, floored, saturating on overflow
func bitsPerSecond(size, ticks uint64, timescale uint32) uint64 {
	if ticks == 0 {
		return 0
	}
	hi, lo := bits.Mul64(size, 8*uint64(timescale))
	if hi >= ticks {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, ticks)
	return q
}
