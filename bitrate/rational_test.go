package bitrate

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestConvertScale(t *testing.T) {
	tests := []struct {
		name  string
		in    RationalTime
		scale uint32
		want  int64
	}{
		{"same scale", RationalTime{42, 1000}, 1000, 42},
		{"seconds to ms", Seconds(1), 1000, 1000},
		{"ms to 90k", RationalTime{3, 1000}, 90000, 270},
		{"round down", RationalTime{4, 10}, 1, 0},
		{"half away from zero", RationalTime{5, 10}, 1, 1},
		{"negative half away from zero", RationalTime{-5, 10}, 1, -1},
		{"two thirds", RationalTime{2, 3}, 1, 1},
		{"one third", RationalTime{1, 3}, 1, 0},
		{"tenths to ms", RationalTime{3, 10}, 1000, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.in.ConvertScale(tt.scale)
			if err != nil {
				t.Fatalf("ConvertScale(%d) error: %v", tt.scale, err)
			}
			if got.Ticks != tt.want || got.Timescale != tt.scale {
				t.Errorf("%s.ConvertScale(%d) = %s, want %d/%d", tt.in, tt.scale, got, tt.want, tt.scale)
			}
		})
	}
}

func TestConvertScaleErrors(t *testing.T) {
	t.Parallel()

	if _, err := (RationalTime{Ticks: 1}).ConvertScale(1000); !errors.Is(err, ErrInvalidTimescale) {
		t.Errorf("expected ErrInvalidTimescale for zero source scale, got %v", err)
	}
	if _, err := Seconds(1).ConvertScale(0); !errors.Is(err, ErrInvalidTimescale) {
		t.Errorf("expected ErrInvalidTimescale for zero target scale, got %v", err)
	}
	if _, err := Seconds(math.MaxInt64).ConvertScale(90000); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
	if _, err := NewRationalTime(1, 0); !errors.Is(err, ErrInvalidTimescale) {
		t.Errorf("NewRationalTime with zero scale: expected ErrInvalidTimescale, got %v", err)
	}
}

func TestRationalAdd(t *testing.T) {
	t.Parallel()

	got, err := RationalTime{1, 1000}.Add(RationalTime{1, 1000})
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if got != (RationalTime{2, 1000}) {
		t.Errorf("1/1000 + 1/1000 = %s, want 2/1000", got)
	}

	// the right operand is rescaled into the left one's timescale first
	got, err = Seconds(1).Add(RationalTime{500, 1000})
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if got != Seconds(2) {
		t.Errorf("1/1 + 500/1000 = %s, want 2/1", got)
	}

	if _, err := (RationalTime{math.MaxInt64, 1}).Add(Seconds(1)); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestRationalCompare(t *testing.T) {
	tests := []struct {
		a, b RationalTime
		want int
	}{
		{RationalTime{1, 2}, RationalTime{2, 4}, 0},
		{RationalTime{1, 3}, RationalTime{1, 2}, -1},
		{RationalTime{1, 2}, RationalTime{1, 3}, 1},
		{RationalTime{-1, 2}, RationalTime{1, 3}, -1},
		{RationalTime{-1, 2}, RationalTime{-1, 3}, -1},
		{RationalTime{0, 7}, RationalTime{0, 90000}, 0},
		{RationalTime{0, 1}, RationalTime{-1, 90000}, 1},
		{RationalTime{math.MaxInt64, 1}, RationalTime{math.MaxInt64, 2}, 1},
	}

	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%s.Compare(%s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFromDurationAndBack(t *testing.T) {
	t.Parallel()

	rt, err := FromDuration(1500*time.Millisecond, 1000)
	if err != nil {
		t.Fatalf("FromDuration error: %v", err)
	}
	if rt != (RationalTime{1500, 1000}) {
		t.Errorf("FromDuration(1.5s, 1000) = %s, want 1500/1000", rt)
	}

	if d := (RationalTime{90000, 90000}).Duration(); d != time.Second {
		t.Errorf("Duration() = %v, want 1s", d)
	}
	if s := (RationalTime{1, 4}).Seconds(); s != 0.25 {
		t.Errorf("Seconds() = %v, want 0.25", s)
	}
	if d := Seconds(math.MaxInt64).Duration(); d != time.Duration(math.MaxInt64) {
		t.Errorf("expected saturated duration, got %v", d)
	}
}

func TestBitsPerSecond(t *testing.T) {
	tests := []struct {
		name      string
		size      uint64
		ticks     uint64
		timescale uint32
		want      uint64
	}{
		{"one second", 1000, 1000, 1000, 8000},
		{"third of a second", 90, 300, 1000, 2400},
		{"floored", 40, 300, 1000, 1066},
		{"zero duration", 1000, 0, 1000, 0},
		{"saturates", math.MaxUint64, 1, 90000, math.MaxUint64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := bitsPerSecond(tt.size, tt.ticks, tt.timescale); got != tt.want {
				t.Errorf("bitsPerSecond(%d, %d, %d) = %d, want %d", tt.size, tt.ticks, tt.timescale, got, tt.want)
			}
		})
	}
}
