// Package window generates the analysis windows used by the STFT-based
// chroma, tuning and pitch-shifting stages.
package window

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
	TypeKaiser
)

func (t Type) String() string {
	switch t {
	case TypeRectangular:
		return "rectangular"
	case TypeHann:
		return "hann"
	case TypeHamming:
		return "hamming"
	case TypeBlackman:
		return "blackman"
	case TypeKaiser:
		return "kaiser"
	}
	return fmt.Sprintf("window(%d)", int(t))
}

var errMismatchedLength = errors.New("window: samples and coefficients must have same length")

// Option configures window generation.
type Option func(*settings)

type settings struct {
	beta     float64
	periodic bool
}

// WithAlpha sets the Kaiser shape parameter. Negative values are ignored.
func WithAlpha(v float64) Option {
	return func(s *settings) {
		if v >= 0 {
			s.beta = v
		}
	}
}

// WithPeriodic produces the periodic form used for FFT framing. The default
// is the symmetric form used for filter design.
func WithPeriodic() Option {
	return func(s *settings) { s.periodic = true }
}

// Generate returns length coefficients of window t, or nil for a
// non-positive length.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	s := settings{beta: 8.6}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	shape := shapeOf(t, s.beta)
	span := float64(length - 1)
	if s.periodic {
		span = float64(length)
	}

	out := make([]float64, length)
	for i := range out {
		x := 0.0
		if span > 0 {
			x = float64(i) / span
		}
		out[i] = shape(x)
	}
	return out
}

// Kaiser returns a symmetric Kaiser window unless WithPeriodic is given.
func Kaiser(size int, beta float64, opts ...Option) ([]float64, error) {
	switch {
	case size <= 0:
		return nil, fmt.Errorf("window: size must be > 0: %d", size)
	case beta < 0:
		return nil, fmt.Errorf("window: kaiser beta must be >= 0: %f", beta)
	}
	return Generate(TypeKaiser, size, append(opts, WithAlpha(beta))...), nil
}

// ApplyInto writes samples*coeffs into dst. All slices must have the same length.
func ApplyInto(dst, samples, coeffs []float64) error {
	if len(samples) != len(coeffs) || len(dst) != len(coeffs) {
		return errMismatchedLength
	}
	vecmath.MulBlock(dst, samples, coeffs)
	return nil
}

// shapeOf returns the window as a function of the normalized position x in
// [0, 1].
func shapeOf(t Type, beta float64) func(float64) float64 {
	switch t {
	case TypeHann:
		return cosineSum(0.5, 0.5)
	case TypeHamming:
		return cosineSum(0.54, 0.46)
	case TypeBlackman:
		return cosineSum(0.42, 0.5, 0.08)
	case TypeKaiser:
		if beta <= 0 {
			break
		}
		norm := BesselI0(beta)
		return func(x float64) float64 {
			r := 2*x - 1
			return BesselI0(beta*math.Sqrt(math.Max(0, 1-r*r))) / norm
		}
	}
	return func(float64) float64 { return 1 }
}

// cosineSum builds a0 - a1 cos(2 pi x) + a2 cos(4 pi x) - ...
func cosineSum(a ...float64) func(float64) float64 {
	return func(x float64) float64 {
		var sum float64
		sign := 1.0
		for k, c := range a {
			sum += sign * c * math.Cos(2*math.Pi*float64(k)*x)
			sign = -sign
		}
		return sum
	}
}

// BesselI0 returns the modified Bessel function of the first kind, order 0.
func BesselI0(x float64) float64 {
	q := x * x / 4
	sum, term := 1.0, 1.0
	for k := 1; k < 64 && term >= 1e-16*sum; k++ {
		term *= q / float64(k*k)
		sum += term
	}
	return sum
}
