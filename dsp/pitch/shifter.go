package pitch

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-keytune/dsp/core"
)

const (
	minRatio = 0.25
	maxRatio = 4.0

	// MaxSemitones is the largest supported shift in either direction.
	MaxSemitones = 24.0

	identityEps = 1e-9
	tiny        = 1e-12
)

// Shifter shifts the pitch of a whole buffer by a signed, possibly
// fractional, number of semitones. The input is never modified and the
// result has the input's length.
type Shifter interface {
	Shift(samples []float64, semitones float64) ([]float64, error)
	SampleRate() float64
}

var (
	_ Shifter = (*Spectral)(nil)
	_ Shifter = (*WSOLA)(nil)
)

// Engine names a Shifter implementation.
type Engine int

const (
	// EngineSpectral selects the phase-vocoder shifter.
	EngineSpectral Engine = iota
	// EngineWSOLA selects the time-domain shifter.
	EngineWSOLA
)

func (e Engine) String() string {
	switch e {
	case EngineSpectral:
		return "spectral"
	case EngineWSOLA:
		return "wsola"
	default:
		return fmt.Sprintf("Engine(%d)", int(e))
	}
}

// ParseEngine resolves "spectral" or "wsola". The empty string selects
// the spectral engine.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "spectral":
		return EngineSpectral, nil
	case "wsola":
		return EngineWSOLA, nil
	default:
		return 0, fmt.Errorf("pitch: unknown engine %q", s)
	}
}

// New returns a Shifter for engine at sampleRate.
func New(engine Engine, sampleRate float64) (Shifter, error) {
	switch engine {
	case EngineSpectral:
		return NewSpectral(sampleRate)
	case EngineWSOLA:
		return NewWSOLA(sampleRate)
	default:
		return nil, fmt.Errorf("pitch: unknown engine %d", int(engine))
	}
}

// RatioForSemitones validates semitones and converts it to a frequency
// ratio in [0.25, 4].
func RatioForSemitones(semitones float64) (float64, error) {
	if !core.IsFinite(semitones) {
		return 0, fmt.Errorf("pitch: semitones must be finite: %f", semitones)
	}
	ratio := core.SemitonesToRatio(semitones)
	if err := validateRatio(ratio); err != nil {
		return 0, fmt.Errorf("pitch: semitones out of range [%.0f, %.0f]: %f: %w",
			-MaxSemitones, MaxSemitones, semitones, err)
	}
	return ratio, nil
}

func validateRatio(ratio float64) error {
	if !core.IsFinitePositive(ratio) || ratio < minRatio-tiny || ratio > maxRatio+tiny {
		return fmt.Errorf("pitch: ratio must be in [%f, %f]: %f", minRatio, maxRatio, ratio)
	}
	return nil
}

func isIdentity(ratio float64) bool {
	return math.Abs(ratio-1) <= identityEps
}

func copyOf(in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	return out
}

func fitLength(in []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, in)
	return out
}
