package spectrum

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-keytune/internal/testutil"
)

func TestNewSTFTValidation(t *testing.T) {
	tests := []struct {
		name      string
		frame     int
		hop       int
		opts      []STFTOption
		wantError bool
	}{
		{"ok", 1024, 256, nil, false},
		{"ok zero pad", 1024, 256, []STFTOption{WithZeroPad(2)}, false},
		{"non power of two", 1000, 256, nil, true},
		{"zero hop", 1024, 0, nil, true},
		{"hop too big", 1024, 2048, nil, true},
		{"bad pad", 1024, 256, []STFTOption{WithZeroPad(3)}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSTFT(tc.frame, tc.hop, tc.opts...)
			if (err != nil) != tc.wantError {
				t.Fatalf("NewSTFT() error = %v, wantError %v", err, tc.wantError)
			}
		})
	}
}

func TestSTFTFrameCount(t *testing.T) {
	s, err := NewSTFT(512, 128)
	if err != nil {
		t.Fatalf("NewSTFT() error = %v", err)
	}
	if got := s.Frames(0); got != 0 {
		t.Fatalf("Frames(0) = %d", got)
	}
	if got := s.Frames(1000); got != 8 {
		t.Fatalf("Frames(1000) = %d, want 8", got)
	}
	spec, err := s.Spectrogram(make([]float64, 1000))
	if err != nil {
		t.Fatalf("Spectrogram() error = %v", err)
	}
	if len(spec) != 8 || len(spec[0]) != s.Bins() {
		t.Fatalf("spectrogram shape = %dx%d", len(spec), len(spec[0]))
	}
}

func TestSTFTPeakAtToneBin(t *testing.T) {
	const sampleRate = 44100.0
	tests := []struct {
		freq float64
		pad  int
	}{
		{440, 1},
		{1000, 2},
		{2500, 1},
	}
	for _, tc := range tests {
		s, err := NewSTFT(4096, 1024, WithZeroPad(tc.pad), WithScale(ScalePower))
		if err != nil {
			t.Fatalf("NewSTFT() error = %v", err)
		}
		sig := testutil.DeterministicSine(tc.freq, sampleRate, 0.5, 44100)
		spec, err := s.Spectrogram(sig)
		if err != nil {
			t.Fatalf("Spectrogram() error = %v", err)
		}
		row := spec[len(spec)/2]
		peak := 0
		for k := range row {
			if row[k] > row[peak] {
				peak = k
			}
		}
		if got := s.BinHz(peak, sampleRate); math.Abs(got-tc.freq) > sampleRate/float64(s.FFTSize()) {
			t.Fatalf("peak at %.2f Hz, want %.2f Hz", got, tc.freq)
		}
	}
}

func TestSTFTEachStopsOnError(t *testing.T) {
	s, err := NewSTFT(256, 64)
	if err != nil {
		t.Fatalf("NewSTFT() error = %v", err)
	}
	stop := errors.New("stop")
	calls := 0
	err = s.Each(make([]float64, 2048), func(frame int, _ []float64) error {
		calls++
		if frame == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || calls != 3 {
		t.Fatalf("Each() = %v after %d calls", err, calls)
	}
}
