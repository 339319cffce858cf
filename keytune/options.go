package keytune

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-keytune/dsp/chroma"
	"github.com/cwbudde/algo-keytune/dsp/pitch"
	"github.com/cwbudde/algo-keytune/dsp/pitchclass"
)

// Transposition selects how the distance between two keys is measured.
type Transposition int

const (
	// TranspositionLiteral uses the plain index difference, in [-11, 11].
	TranspositionLiteral Transposition = iota
	// TranspositionNearest wraps the difference into [-6, 6).
	TranspositionNearest
)

func (t Transposition) String() string {
	switch t {
	case TranspositionLiteral:
		return "literal"
	case TranspositionNearest:
		return "nearest"
	default:
		return fmt.Sprintf("Transposition(%d)", int(t))
	}
}

// ParseTransposition resolves "literal" or "nearest"; empty means literal.
func ParseTransposition(s string) (Transposition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "literal":
		return TranspositionLiteral, nil
	case "nearest":
		return TranspositionNearest, nil
	default:
		return 0, fmt.Errorf("keytune: unknown transposition %q", s)
	}
}

// Distance returns the semitone distance from one key to another.
func (t Transposition) Distance(from, to pitchclass.Class) int {
	if t == TranspositionNearest {
		return pitchclass.NearestDistance(from, to)
	}
	return pitchclass.Distance(from, to)
}

// ShifterFactory builds a pitch shifter for a sample rate.
type ShifterFactory func(sampleRate float64) (pitch.Shifter, error)

// Option configures a KeyTuner.
type Option func(*KeyTuner)

// WithTransposition selects the key distance policy.
func WithTransposition(t Transposition) Option {
	return func(k *KeyTuner) { k.transposition = t }
}

// WithEngine selects the pitch shifting engine.
func WithEngine(e pitch.Engine) Option {
	return func(k *KeyTuner) {
		k.shifter = func(sampleRate float64) (pitch.Shifter, error) {
			return pitch.New(e, sampleRate)
		}
	}
}

// WithShifter installs a custom pitch shifter factory.
func WithShifter(f ShifterFactory) Option {
	return func(k *KeyTuner) { k.shifter = f }
}

// WithChromaMode selects the chroma normalisation used for key detection.
func WithChromaMode(m chroma.Mode) Option {
	return func(k *KeyTuner) { k.chromaMode = m }
}

// WithAnalysisRate resamples clips to rate before analysis. Zero keeps the
// clip's own rate. Retuning always runs at the clip's rate.
func WithAnalysisRate(rate int) Option {
	return func(k *KeyTuner) { k.analysisRate = rate }
}
