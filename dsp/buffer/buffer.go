package buffer

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrEmpty is returned by Validate for a buffer without samples.
	ErrEmpty = errors.New("buffer: no samples")
	// ErrSampleRate is returned by Validate for a non-positive sample rate.
	ErrSampleRate = errors.New("buffer: sample rate must be > 0")
	// ErrNonFinite is returned by Validate when a sample is NaN or Inf.
	ErrNonFinite = errors.New("buffer: non-finite sample")
)

// Buffer is an immutable sequence of mono float64 samples with a sample
// rate in Hz. The zero value is an empty buffer with no rate.
type Buffer struct {
	samples    []float64
	sampleRate int
}

// New returns a Buffer holding a copy of samples.
func New(samples []float64, sampleRate int) Buffer {
	s := make([]float64, len(samples))
	copy(s, samples)
	return Buffer{samples: s, sampleRate: sampleRate}
}

// Wrap takes ownership of samples without copying. The caller must not
// touch samples afterwards.
func Wrap(samples []float64, sampleRate int) Buffer {
	return Buffer{samples: samples, sampleRate: sampleRate}
}

// Samples returns a copy of the buffer's samples.
func (b Buffer) Samples() []float64 {
	s := make([]float64, len(b.samples))
	copy(s, b.samples)
	return s
}

// At returns sample i.
func (b Buffer) At(i int) float64 {
	return b.samples[i]
}

// Len returns the number of samples.
func (b Buffer) Len() int {
	return len(b.samples)
}

// SampleRate returns the sample rate in Hz.
func (b Buffer) SampleRate() int {
	return b.sampleRate
}

// Duration returns the playback length at the buffer's sample rate.
func (b Buffer) Duration() time.Duration {
	if b.sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.samples)) / float64(b.sampleRate) * float64(time.Second))
}

// Peak returns the largest absolute sample value.
func (b Buffer) Peak() float64 {
	peak := 0.0
	for _, v := range b.samples {
		peak = math.Max(peak, math.Abs(v))
	}
	return peak
}

// Validate reports whether the buffer can be analysed: it must hold at
// least one finite sample and have a positive sample rate.
func (b Buffer) Validate() error {
	if b.sampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrSampleRate, b.sampleRate)
	}
	if len(b.samples) == 0 {
		return ErrEmpty
	}
	for i, v := range b.samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}
	}
	return nil
}

// Map returns a new Buffer with fn applied to a copy of the samples. fn may
// return a slice of a different length; the sample rate is kept.
func (b Buffer) Map(fn func([]float64) []float64) Buffer {
	return Buffer{samples: fn(b.Samples()), sampleRate: b.sampleRate}
}

// Equal reports whether both buffers have the same rate and samples.
func (b Buffer) Equal(o Buffer) bool {
	if b.sampleRate != o.sampleRate || len(b.samples) != len(o.samples) {
		return false
	}
	for i := range b.samples {
		if b.samples[i] != o.samples[i] {
			return false
		}
	}
	return true
}
