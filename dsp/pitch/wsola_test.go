package pitch

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-keytune/internal/testutil"
)

func TestNewWSOLA(t *testing.T) {
	w, err := NewWSOLA(48000)
	if err != nil {
		t.Fatalf("NewWSOLA() error = %v", err)
	}
	if w.SampleRate() != 48000 {
		t.Fatalf("SampleRate() = %f", w.SampleRate())
	}
	if w.Sequence() != defaultSequenceMs || w.Overlap() != defaultOverlapMs || w.Search() != defaultSearchMs {
		t.Fatalf("defaults = %f/%f/%f", w.Sequence(), w.Overlap(), w.Search())
	}
	for _, sr := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := NewWSOLA(sr); err == nil {
			t.Fatalf("expected error for sample rate %v", sr)
		}
	}
}

func TestWSOLASettersValidate(t *testing.T) {
	w, err := NewWSOLA(44100)
	if err != nil {
		t.Fatalf("NewWSOLA() error = %v", err)
	}
	if err := w.SetSequence(10); err == nil {
		t.Fatal("expected error for short sequence")
	}
	if err := w.SetSearch(math.NaN()); err == nil {
		t.Fatal("expected error for NaN search")
	}
	if err := w.SetSearch(15); err != nil {
		t.Fatalf("SetSearch() error = %v", err)
	}

	// Overlap above the sequence must fail and leave the old value.
	if err := w.SetSequence(30); err != nil {
		t.Fatalf("SetSequence() error = %v", err)
	}
	if err := w.SetOverlap(40); err == nil {
		t.Fatal("expected error for overlap >= sequence")
	}
	if w.Overlap() != defaultOverlapMs {
		t.Fatalf("Overlap() = %f after failed update, want %f", w.Overlap(), defaultOverlapMs)
	}
}

func TestWSOLAShortBufferFinite(t *testing.T) {
	w, err := NewWSOLA(44100)
	if err != nil {
		t.Fatalf("NewWSOLA() error = %v", err)
	}
	for _, n := range []int{1, 2, 17, 300} {
		out, err := w.Shift(testutil.DeterministicNoise(int64(n), 0.5, n), 4)
		if err != nil {
			t.Fatalf("Shift(n=%d) error = %v", n, err)
		}
		if len(out) != n {
			t.Fatalf("len = %d, want %d", len(out), n)
		}
		testutil.RequireFinite(t, out)
	}
}

func TestWSOLADeterministic(t *testing.T) {
	w, err := NewWSOLA(44100)
	if err != nil {
		t.Fatalf("NewWSOLA() error = %v", err)
	}
	in := testutil.DeterministicSine(300, 44100, 0.5, 8000)
	a, _ := w.Shift(in, 2)
	b, _ := w.Shift(in, 2)
	testutil.RequireSliceNearlyEqual(t, a, b, 0)
}

func TestHermiteResampleEndpoints(t *testing.T) {
	in := []float64{0, 1, 2, 3, 4}
	out := resampleHermite(in, 9)
	if out[0] != 0 || math.Abs(out[8]-4) > 1e-12 {
		t.Fatalf("endpoints = %v, %v", out[0], out[8])
	}
	// Away from the clamped edges a linear ramp is reproduced exactly.
	for i := 2; i <= 6; i++ {
		if want := float64(i) * 0.5; math.Abs(out[i]-want) > 1e-12 {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
	if got := resampleHermite([]float64{3}, 3); got[2] != 3 {
		t.Fatalf("single-sample resample = %v", got)
	}
}
