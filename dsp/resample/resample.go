package resample

import (
	"errors"
	"math"
)

var (
	// ErrInvalidRatio indicates an invalid up/down ratio.
	ErrInvalidRatio = errors.New("resample: invalid ratio")
	// ErrInvalidRate indicates an invalid input/output sample rate.
	ErrInvalidRate = errors.New("resample: invalid sample rate")
)

// Quality selects the anti-aliasing filter used by a Converter.
type Quality int

const (
	// QualityFast uses short filters.
	QualityFast Quality = iota
	// QualityBalanced is the default.
	QualityBalanced
	// QualityBest uses long filters with high stopband attenuation.
	QualityBest
)

func (q Quality) String() string {
	switch q {
	case QualityFast:
		return "fast"
	case QualityBest:
		return "best"
	default:
		return "balanced"
	}
}

// Profile holds the filter design parameters of a quality mode.
type Profile struct {
	TapsPerPhase int
	CutoffScale  float64
	KaiserBeta   float64
}

// QualityProfile returns the filter parameters used for q.
func QualityProfile(q Quality) Profile {
	switch q {
	case QualityFast:
		return Profile{TapsPerPhase: 16, CutoffScale: 0.88, KaiserBeta: 5}
	case QualityBest:
		return Profile{TapsPerPhase: 64, CutoffScale: 0.96, KaiserBeta: 9}
	default:
		return Profile{TapsPerPhase: 32, CutoffScale: 0.92, KaiserBeta: 7.5}
	}
}

type options struct {
	quality Quality
	maxDen  int
}

// Option configures a Converter.
type Option func(*options)

// WithQuality selects the filter quality.
func WithQuality(q Quality) Option {
	return func(o *options) { o.quality = q }
}

// WithMaxDenominator bounds the denominator used when a floating-point rate
// ratio is approximated by a fraction.
func WithMaxDenominator(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDen = n
		}
	}
}

func collect(opts []Option) options {
	o := options{quality: QualityBalanced, maxDen: 4096}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Converter changes the sample rate of whole clips by a rational factor
// up/down. The filter delay is compensated, so sample m of the output lies at
// time m*down/up in input samples. A Converter holds no per-call state and is
// safe for concurrent use.
type Converter struct {
	up, down int
	quality  Quality
	bank     *filterBank
}

// NewRational builds a Converter for the ratio up/down, reduced to lowest
// terms.
func NewRational(up, down int, opts ...Option) (*Converter, error) {
	if up <= 0 || down <= 0 {
		return nil, ErrInvalidRatio
	}
	g := gcd(up, down)
	up, down = up/g, down/g

	o := collect(opts)
	bank, err := newFilterBank(up, down, QualityProfile(o.quality))
	if err != nil {
		return nil, err
	}
	return &Converter{up: up, down: down, quality: o.quality, bank: bank}, nil
}

// NewForRates builds a Converter from inRate to outRate. Non-integral ratios
// are approximated by a fraction whose denominator respects
// WithMaxDenominator.
func NewForRates(inRate, outRate float64, opts ...Option) (*Converter, error) {
	if !(inRate > 0) || !(outRate > 0) || math.IsInf(inRate, 0) || math.IsInf(outRate, 0) {
		return nil, ErrInvalidRate
	}
	up, down := approximateRatio(outRate/inRate, collect(opts).maxDen)
	return NewRational(up, down, opts...)
}

// Resample converts input by up/down in one call.
func Resample(input []float64, up, down int, opts ...Option) ([]float64, error) {
	c, err := NewRational(up, down, opts...)
	if err != nil {
		return nil, err
	}
	return c.Convert(input), nil
}

// ToRate converts a whole clip from inRate to outRate. Equal rates return a
// copy of input.
func ToRate(input []float64, inRate, outRate int, opts ...Option) ([]float64, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, ErrInvalidRate
	}
	if inRate == outRate {
		return append([]float64(nil), input...), nil
	}
	return Resample(input, outRate, inRate, opts...)
}

// OutputLen is the number of samples Convert produces for n input samples.
func (c *Converter) OutputLen(n int) int {
	if n <= 0 {
		return 0
	}
	return (n*c.up + c.down - 1) / c.down
}

// Convert resamples input. Samples outside the clip are treated as zero.
func (c *Converter) Convert(input []float64) []float64 {
	n := c.OutputLen(len(input))
	if n == 0 {
		return nil
	}

	out := make([]float64, n)
	for m := range out {
		// Position on the upsampled grid, shifted by the filter delay.
		pos := m*c.down + c.bank.delay
		taps := c.bank.phases[pos%c.up]
		base := pos / c.up

		var acc float64
		for k, h := range taps {
			idx := base - k
			if idx < 0 {
				break
			}
			if idx < len(input) {
				acc += h * input[idx]
			}
		}
		out[m] = acc
	}
	return out
}

// Ratio returns the reduced conversion factors.
func (c *Converter) Ratio() (up, down int) {
	return c.up, c.down
}

// Quality returns the filter quality in use.
func (c *Converter) Quality() Quality {
	return c.quality
}
