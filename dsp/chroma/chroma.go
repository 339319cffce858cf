package chroma

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-keytune/dsp/core"
	"github.com/cwbudde/algo-keytune/dsp/pitchclass"
	"github.com/cwbudde/algo-keytune/dsp/spectrum"
	"github.com/cwbudde/algo-keytune/dsp/window"
)

// Mode selects the per-frame normalisation.
type Mode int

const (
	// ModeCENS yields chroma energy normalised statistics.
	ModeCENS Mode = iota
	// ModeSTFT yields max-normalised STFT chroma.
	ModeSTFT
)

const (
	defaultFrameSize = 4096
	defaultHop       = 1024
	defaultMinHz     = 65.0
	defaultMaxHz     = 5000.0
	defaultSmoothing = 41

	energyFloor = 1e-12
)

var (
	quantSteps  = [...]float64{0.4, 0.2, 0.1, 0.05}
	quantWeight = 0.25
)

// ErrInvalidInput is returned for empty signals or non-positive rates.
var ErrInvalidInput = errors.New("chroma: invalid input")

func (m Mode) String() string {
	switch m {
	case ModeCENS:
		return "cens"
	case ModeSTFT:
		return "stft"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "cens" or "stft".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cens", "":
		return ModeCENS, nil
	case "stft":
		return ModeSTFT, nil
	default:
		return 0, fmt.Errorf("chroma: unknown mode %q", s)
	}
}

// Option configures extraction.
type Option func(*config)

type config struct {
	frameSize   int
	hop         int
	minHz       float64
	maxHz       float64
	tuningCents float64
	mode        Mode
	smoothing   int
}

func defaultConfig() config {
	return config{
		frameSize: defaultFrameSize,
		hop:       defaultHop,
		minHz:     defaultMinHz,
		maxHz:     defaultMaxHz,
		mode:      ModeCENS,
		smoothing: defaultSmoothing,
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

// WithRange limits the bins folded into chroma to [minHz, maxHz].
func WithRange(minHz, maxHz float64) Option {
	return func(c *config) {
		c.minHz = minHz
		c.maxHz = maxHz
	}
}

// WithTuning detunes the A4 reference by cents.
func WithTuning(cents float64) Option {
	return func(c *config) { c.tuningCents = cents }
}

// WithMode selects the normalisation.
func WithMode(m Mode) Option {
	return func(c *config) { c.mode = m }
}

// WithSmoothing sets the CENS smoothing length in frames. Values below 2
// disable smoothing.
func WithSmoothing(frames int) Option {
	return func(c *config) { c.smoothing = frames }
}

func (c config) validate(sampleRate int) error {
	if !core.IsFinitePositive(c.minHz) || !core.IsFinitePositive(c.maxHz) || c.minHz >= c.maxHz {
		return fmt.Errorf("chroma: frequency range must satisfy 0 < min < max: [%f, %f]", c.minHz, c.maxHz)
	}
	if c.minHz >= float64(sampleRate)/2 {
		return fmt.Errorf("chroma: min frequency %f Hz at or above Nyquist for %d Hz", c.minHz, sampleRate)
	}
	if !core.IsFinite(c.tuningCents) {
		return fmt.Errorf("chroma: tuning must be finite: %f", c.tuningCents)
	}
	if c.mode != ModeCENS && c.mode != ModeSTFT {
		return fmt.Errorf("chroma: unknown mode %d", int(c.mode))
	}
	return nil
}

// Extract returns one chroma vector per STFT frame of samples.
func Extract(samples []float64, sampleRate int, opts ...Option) ([]Vector, error) {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d samples at %d Hz", ErrInvalidInput, len(samples), sampleRate)
	}

	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if err := cfg.validate(sampleRate); err != nil {
		return nil, err
	}

	stft, err := spectrum.NewSTFT(cfg.frameSize, cfg.hop, spectrum.WithScale(spectrum.ScalePower))
	if err != nil {
		return nil, fmt.Errorf("chroma: %w", err)
	}

	mapping := binMapping(stft, float64(sampleRate), cfg)

	frames := make([]Vector, 0, stft.Frames(len(samples)))
	err = stft.Each(samples, func(_ int, power []float64) error {
		var v Vector
		for k, class := range mapping {
			if class >= 0 {
				v[class] += power[k]
			}
		}
		frames = append(frames, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chroma: %w", err)
	}

	switch cfg.mode {
	case ModeSTFT:
		for i := range frames {
			normalizeMax(&frames[i])
		}
	case ModeCENS:
		frames = cens(frames, cfg.smoothing)
	}

	return frames, nil
}

// Profile returns the time-averaged chroma of samples.
func Profile(samples []float64, sampleRate int, opts ...Option) (Vector, error) {
	frames, err := Extract(samples, sampleRate, opts...)
	if err != nil {
		return Vector{}, err
	}
	return Mean(frames), nil
}

// binMapping assigns every STFT bin to a pitch class, or -1 outside the
// configured range.
func binMapping(stft *spectrum.STFT, sampleRate float64, cfg config) []int {
	ref := core.TunedReference(cfg.tuningCents)
	mapping := make([]int, stft.Bins())
	for k := range mapping {
		f := stft.BinHz(k, sampleRate)
		if f < cfg.minHz || f > cfg.maxHz {
			mapping[k] = -1
			continue
		}
		midi := int(math.Round(core.HzToMIDI(f, ref)))
		mapping[k] = int(pitchclass.FromIndex(midi))
	}
	return mapping
}

func normalizeMax(v *Vector) {
	m := v.Max()
	if m <= energyFloor {
		*v = Vector{}
		return
	}
	floats.Scale(1/m, v[:])
}

// cens applies L1 normalisation, quantisation, temporal smoothing and L2
// normalisation.
func cens(frames []Vector, smoothing int) []Vector {
	for i := range frames {
		v := frames[i][:]
		if l1 := floats.Norm(v, 1); l1 > energyFloor {
			floats.Scale(1/l1, v)
		} else {
			frames[i] = Vector{}
			continue
		}
		for c, e := range v {
			q := 0.0
			for _, step := range quantSteps {
				if e > step {
					q += quantWeight
				}
			}
			v[c] = q
		}
	}

	if smoothing >= 2 {
		frames = smooth(frames, smoothing)
	}

	for i := range frames {
		v := frames[i][:]
		if l2 := floats.Norm(v, 2); l2 > energyFloor {
			floats.Scale(1/l2, v)
		} else {
			frames[i] = Vector{}
		}
	}
	return frames
}

// smooth convolves each pitch class over time with a unit-sum Hann kernel
// of the given length, keeping the frame count (centred "same" mode).
func smooth(frames []Vector, length int) []Vector {
	kernel := window.Generate(window.TypeHann, length+2)[1 : length+1]
	if s := floats.Sum(kernel); s > 0 {
		floats.Scale(1/s, kernel)
	}

	half := length / 2
	out := make([]Vector, len(frames))
	for t := range frames {
		for j, w := range kernel {
			src := t + j - half
			if src < 0 || src >= len(frames) {
				continue
			}
			floats.AddScaled(out[t][:], w, frames[src][:])
		}
	}
	return out
}
