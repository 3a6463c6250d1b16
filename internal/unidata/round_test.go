package unidata

import (
	"errors"
	"math"
	"testing"
)

func TestRoundHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		name      string
		input     float64
		precision int
		want      float64
	}{
		{"half up", 12.345, 2, 12.35},
		{"binary just below half", 1.005, 2, 1.01},
		{"negative half", -1.005, 2, -1.01},
		{"below half", 12.344, 2, 12.34},
		{"already rounded", 12.35, 2, 12.35},
		{"whole number", 2, 2, 2},
		{"carry into integer part", 0.995, 2, 1},
		{"precision zero half", 2.5, 0, 3},
		{"precision zero negative half", -2.5, 0, -3},
		{"precision zero below half", 2.49, 0, 2},
		{"tiny value", 1e-9, 2, 0},
		{"tiny negative value", -0.004, 2, 0},
		{"large value", 123456789.125, 2, 123456789.13},
		{"more precision than digits", 1.5, 4, 1.5},
		{"zero", 0, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RoundHalfAwayFromZero(tt.input, tt.precision)
			if err != nil {
				t.Fatalf("RoundHalfAwayFromZero(%v, %d) error = %v", tt.input, tt.precision, err)
			}
			if got != tt.want {
				t.Errorf("RoundHalfAwayFromZero(%v, %d) = %v, want %v", tt.input, tt.precision, got, tt.want)
			}
		})
	}
}

func TestRoundHalfAwayFromZero_NonFinite(t *testing.T) {
	for _, v := range []float64{math.Inf(1), math.Inf(-1)} {
		got, err := RoundHalfAwayFromZero(v, 2)
		if err != nil || got != v {
			t.Errorf("RoundHalfAwayFromZero(%v) = %v, %v; want unchanged", v, got, err)
		}
	}

	got, err := RoundHalfAwayFromZero(math.NaN(), 2)
	if err != nil || !math.IsNaN(got) {
		t.Errorf("RoundHalfAwayFromZero(NaN) = %v, %v; want NaN", got, err)
	}
}

func TestRoundHalfAwayFromZero_PrecisionRange(t *testing.T) {
	tests := []struct {
		name      string
		precision int
	}{
		{"negative", -1},
		{"above max", MaxPrecision + 1},
		{"wraps to small int32", 1<<32 + 3},
		{"wraps to large int32", 1<<31 + 100000005},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RoundHalfAwayFromZero(1.23456, tt.precision); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("RoundHalfAwayFromZero(precision %d) error = %v, want ErrInvalidArgument", tt.precision, err)
			}
		})
	}
}

func TestRoundHalfAwayFromZero_MaxPrecision(t *testing.T) {
	for _, v := range []float64{1.23456, -0.1, math.MaxFloat64, 1e-300} {
		got, err := RoundHalfAwayFromZero(v, MaxPrecision)
		if err != nil {
			t.Fatalf("RoundHalfAwayFromZero(%v, MaxPrecision) error = %v", v, err)
		}
		if got != v {
			t.Errorf("RoundHalfAwayFromZero(%v, MaxPrecision) = %v, want unchanged", v, got)
		}
	}
}
