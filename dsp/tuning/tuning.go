package tuning

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-keytune/dsp/core"
	"github.com/cwbudde/algo-keytune/dsp/spectrum"
)

const (
	defaultFrameSize  = 4096
	defaultHop        = 1024
	defaultZeroPad    = 2
	defaultMinHz      = 150.0
	defaultMaxHz      = 4000.0
	defaultThreshold  = 0.1
	defaultResolution = 0.01

	magnitudeFloor = 1e-12
)

// ErrInvalidInput is returned for empty signals or non-positive rates.
var ErrInvalidInput = errors.New("tuning: invalid input")

// Peak is a refined spectral peak.
type Peak struct {
	Hz        float64
	Magnitude float64
}

// Option configures estimation.
type Option func(*config)

type config struct {
	frameSize  int
	hop        int
	zeroPad    int
	minHz      float64
	maxHz      float64
	threshold  float64
	resolution float64
}

func defaultConfig() config {
	return config{
		frameSize:  defaultFrameSize,
		hop:        defaultHop,
		zeroPad:    defaultZeroPad,
		minHz:      defaultMinHz,
		maxHz:      defaultMaxHz,
		threshold:  defaultThreshold,
		resolution: defaultResolution,
	}
}

// WithFrameSize sets the STFT frame length (power of two).
func WithFrameSize(n int) Option {
	return func(c *config) { c.frameSize = n }
}

// WithHop sets the STFT hop in samples.
func WithHop(n int) Option {
	return func(c *config) { c.hop = n }
}

// WithZeroPad sets the FFT zero-padding factor (power of two).
func WithZeroPad(factor int) Option {
	return func(c *config) { c.zeroPad = factor }
}

// WithRange limits peak picking to [minHz, maxHz].
func WithRange(minHz, maxHz float64) Option {
	return func(c *config) {
		c.minHz = minHz
		c.maxHz = maxHz
	}
}

// WithThreshold sets the per-frame peak threshold relative to the frame's
// largest bin, in (0, 1).
func WithThreshold(v float64) Option {
	return func(c *config) { c.threshold = v }
}

// WithResolution sets the histogram bin width in semitones, in (0, 1).
func WithResolution(v float64) Option {
	return func(c *config) { c.resolution = v }
}

func (c config) validate() error {
	if !core.IsFinitePositive(c.minHz) || !core.IsFinitePositive(c.maxHz) || c.minHz >= c.maxHz {
		return fmt.Errorf("tuning: frequency range must satisfy 0 < min < max: [%f, %f]", c.minHz, c.maxHz)
	}
	if !(c.threshold > 0 && c.threshold < 1) {
		return fmt.Errorf("tuning: threshold must be in (0, 1): %f", c.threshold)
	}
	if !(c.resolution > 0 && c.resolution < 1) {
		return fmt.Errorf("tuning: resolution must be in (0, 1): %f", c.resolution)
	}
	return nil
}

// Estimate returns the tuning deviation of samples in fractions of a
// semitone, in [-0.5, 0.5). Signals without usable peaks yield 0.
func Estimate(samples []float64, sampleRate int, opts ...Option) (float64, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	peaks, err := peaks(samples, sampleRate, cfg)
	if err != nil {
		return 0, err
	}
	return FromPeaks(peaks, cfg.resolution), nil
}

// EstimateCents is Estimate scaled to cents, in [-50, 50).
func EstimateCents(samples []float64, sampleRate int, opts ...Option) (float64, error) {
	t, err := Estimate(samples, sampleRate, opts...)
	if err != nil {
		return 0, err
	}
	return core.SemitonesToCents(t), nil
}

// Peaks returns every thresholded spectral peak of samples.
func Peaks(samples []float64, sampleRate int, opts ...Option) ([]Peak, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return peaks(samples, sampleRate, cfg)
}

func peaks(samples []float64, sampleRate int, cfg config) ([]Peak, error) {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d samples at %d Hz", ErrInvalidInput, len(samples), sampleRate)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	stft, err := spectrum.NewSTFT(cfg.frameSize, cfg.hop, spectrum.WithZeroPad(cfg.zeroPad))
	if err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}

	rate := float64(sampleRate)
	binHz := stft.BinHz(1, rate)
	lo := max(int(math.Ceil(cfg.minHz/binHz)), 1)
	hi := min(int(math.Floor(cfg.maxHz/binHz)), stft.Bins()-2)

	var out []Peak
	err = stft.Each(samples, func(_ int, mag []float64) error {
		if lo > hi {
			return nil
		}
		frameMax := 0.0
		for _, m := range mag {
			frameMax = math.Max(frameMax, m)
		}
		if frameMax <= magnitudeFloor {
			return nil
		}
		limit := cfg.threshold * frameMax

		for k := lo; k <= hi; k++ {
			m := mag[k]
			if m <= limit || m <= mag[k-1] || m < mag[k+1] {
				continue
			}
			shift := parabolicShift(mag[k-1], m, mag[k+1])
			out = append(out, Peak{Hz: (float64(k) + shift) * binHz, Magnitude: m})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}
	return out, nil
}

// parabolicShift returns the fractional bin offset of a peak from the
// log magnitudes of it and its neighbours.
func parabolicShift(a, b, c float64) float64 {
	if a <= magnitudeFloor || c <= magnitudeFloor {
		return 0
	}
	la, lb, lc := math.Log(a), math.Log(b), math.Log(c)
	den := la - 2*lb + lc
	if den == 0 {
		return 0
	}
	return core.Clamp(0.5*(la-lc)/den, -0.5, 0.5)
}

// FromPeaks estimates tuning from peaks: peaks below the median magnitude
// are discarded before the frequencies go to FromFrequencies.
func FromPeaks(peaks []Peak, resolution float64) float64 {
	if len(peaks) == 0 {
		return 0
	}
	mags := make([]float64, len(peaks))
	for i, p := range peaks {
		mags[i] = p.Magnitude
	}
	threshold := median(mags)

	freqs := make([]float64, 0, len(peaks))
	for _, p := range peaks {
		if p.Magnitude >= threshold {
			freqs = append(freqs, p.Hz)
		}
	}
	return FromFrequencies(freqs, resolution)
}

// FromFrequencies estimates tuning from a set of frequencies. Each
// frequency's distance from the nearest A440 semitone is histogrammed
// with the given resolution; the mean residual of the fullest bin is
// returned. Ties go to the lowest bin. Non-positive frequencies are
// ignored; no usable frequencies yield 0.
func FromFrequencies(freqs []float64, resolution float64) float64 {
	if !(resolution > 0 && resolution < 1) {
		resolution = defaultResolution
	}
	nbins := int(math.Ceil(1 / resolution))

	bins := make([][]float64, nbins)
	for _, f := range freqs {
		if !core.IsFinitePositive(f) {
			continue
		}
		r := Residual(f)
		idx := int(math.Floor((r + 0.5) / resolution))
		idx = min(max(idx, 0), nbins-1)
		bins[idx] = append(bins[idx], r)
	}

	best := -1
	for i, b := range bins {
		if len(b) == 0 {
			continue
		}
		if best < 0 || len(b) > len(bins[best]) {
			best = i
		}
	}
	if best < 0 {
		return 0
	}
	return stat.Mean(bins[best], nil)
}

// Residual returns the deviation of hz from the nearest A440 equal
// tempered semitone, in semitones in [-0.5, 0.5).
func Residual(hz float64) float64 {
	r := math.Mod(core.HzToMIDI(hz, core.ReferenceA4), 1)
	if r < 0 {
		r++
	}
	if r >= 0.5 {
		r--
	}
	return r
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return 0.5 * (s[n/2-1] + s[n/2])
}
