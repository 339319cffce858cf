package buffer

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewCopiesInput(t *testing.T) {
	in := []float64{1, 2, 3}
	b := New(in, 8000)
	in[0] = 42
	if b.At(0) != 1 {
		t.Fatalf("At(0) = %v, want 1 (New must copy)", b.At(0))
	}
}

func TestSamplesReturnsCopy(t *testing.T) {
	b := New([]float64{1, 2, 3}, 8000)
	s := b.Samples()
	s[1] = 99
	if b.At(1) != 2 {
		t.Fatalf("At(1) = %v, want 2 (Samples must copy)", b.At(1))
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		n, rate int
		want    time.Duration
	}{
		{44100, 44100, time.Second},
		{88200, 44100, 2 * time.Second},
		{4000, 8000, 500 * time.Millisecond},
		{10, 0, 0},
	}
	for _, tc := range tests {
		b := Wrap(make([]float64, tc.n), tc.rate)
		if got := b.Duration(); got != tc.want {
			t.Fatalf("Duration(%d@%d) = %v, want %v", tc.n, tc.rate, got, tc.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		buf  Buffer
		want error
	}{
		{"ok", New([]float64{0, 0.5}, 44100), nil},
		{"empty", New(nil, 44100), ErrEmpty},
		{"zero rate", New([]float64{1}, 0), ErrSampleRate},
		{"negative rate", New([]float64{1}, -1), ErrSampleRate},
		{"nan", New([]float64{0, math.NaN()}, 44100), ErrNonFinite},
		{"inf", New([]float64{math.Inf(-1)}, 44100), ErrNonFinite},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.buf.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMapLeavesSourceUntouched(t *testing.T) {
	b := New([]float64{1, -2, 3}, 16000)
	out := b.Map(func(s []float64) []float64 {
		for i := range s {
			s[i] *= 2
		}
		return s
	})
	if !b.Equal(New([]float64{1, -2, 3}, 16000)) {
		t.Fatal("Map mutated its receiver")
	}
	if !out.Equal(New([]float64{2, -4, 6}, 16000)) {
		t.Fatalf("Map result = %v", out.Samples())
	}
	if out.Peak() != 6 {
		t.Fatalf("Peak() = %v, want 6", out.Peak())
	}
}
