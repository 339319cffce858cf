package testutil

import (
	"math"
	"testing"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// any element pair exceeds eps (absolute tolerance).
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		diff := math.Abs(got[i] - want[i])
		if diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// DominantFrequency returns the frequency of the strongest FFT bin of the
// largest power-of-two prefix of signal, refined by parabolic interpolation
// of the log-magnitude around the peak.
func DominantFrequency(t *testing.T, signal []float64, sampleRate float64) float64 {
	t.Helper()

	n := 1
	for n*2 <= len(signal) {
		n *= 2
	}
	if n < 4 {
		t.Fatalf("signal too short for spectral peak search: %d", len(signal))
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		t.Fatalf("failed to create FFT plan: %v", err)
	}

	in := make([]complex128, n)
	for i := range n {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
		in[i] = complex(signal[i]*w, 0)
	}
	out := make([]complex128, n)
	if err := plan.Forward(out, in); err != nil {
		t.Fatalf("forward FFT failed: %v", err)
	}

	mag := make([]float64, n/2+1)
	maxBin := 1
	for k := 1; k <= n/2; k++ {
		mag[k] = math.Hypot(real(out[k]), imag(out[k]))
		if mag[k] > mag[maxBin] {
			maxBin = k
		}
	}

	bin := float64(maxBin)
	if maxBin > 1 && maxBin < n/2 && mag[maxBin-1] > 0 && mag[maxBin+1] > 0 {
		a := math.Log(mag[maxBin-1])
		b := math.Log(mag[maxBin])
		c := math.Log(mag[maxBin+1])
		if den := a - 2*b + c; den != 0 {
			bin += 0.5 * (a - c) / den
		}
	}

	return sampleRate * bin / float64(n)
}
