package keytune

import (
	"fmt"

	"github.com/cwbudde/algo-keytune/dsp/buffer"
	"github.com/cwbudde/algo-keytune/dsp/chroma"
	"github.com/cwbudde/algo-keytune/dsp/core"
	"github.com/cwbudde/algo-keytune/dsp/pitch"
	"github.com/cwbudde/algo-keytune/dsp/pitchclass"
	"github.com/cwbudde/algo-keytune/dsp/resample"
	"github.com/cwbudde/algo-keytune/dsp/tuning"
)

// toAnalysisRate converts a clip to the analysis sample rate. Tests swap it
// to exercise conversion failures.
var toAnalysisRate = func(samples []float64, from, to int) ([]float64, error) {
	return resample.ToRate(samples, from, to)
}

// AnalysisResult is the outcome of Analyze.
type AnalysisResult struct {
	// Key is the pitch class with the most time-averaged chroma energy.
	Key pitchclass.Class `json:"key"`
	// TuningOffsetCents is the clip's deviation from A440 equal
	// temperament, in [-50, 50).
	TuningOffsetCents float64 `json:"tuning_offset"`
	// Chroma is the time-averaged chroma the key was taken from.
	Chroma chroma.Vector `json:"chroma"`
}

// KeyTuner analyses and retunes clips. It is safe for concurrent use.
type KeyTuner struct {
	transposition Transposition
	chromaMode    chroma.Mode
	analysisRate  int
	shifter       ShifterFactory
}

// New returns a KeyTuner with literal transposition, CENS chroma and the
// spectral pitch shifter.
func New(opts ...Option) (*KeyTuner, error) {
	k := &KeyTuner{
		transposition: TranspositionLiteral,
		chromaMode:    chroma.ModeCENS,
	}
	WithEngine(pitch.EngineSpectral)(k)
	for _, o := range opts {
		o(k)
	}

	if k.transposition != TranspositionLiteral && k.transposition != TranspositionNearest {
		return nil, fmt.Errorf("keytune: unknown transposition %d", int(k.transposition))
	}
	if k.analysisRate < 0 {
		return nil, fmt.Errorf("keytune: analysis rate must be >= 0: %d", k.analysisRate)
	}
	if k.shifter == nil {
		return nil, fmt.Errorf("keytune: nil shifter factory")
	}
	return k, nil
}

// Transposition returns the configured key distance policy.
func (k *KeyTuner) Transposition() Transposition { return k.transposition }

// Analyze estimates the key and tuning offset of buf.
func (k *KeyTuner) Analyze(buf buffer.Buffer) (AnalysisResult, error) {
	if err := buf.Validate(); err != nil {
		return AnalysisResult{}, NewError(KindInvalidAudio, "cannot analyze clip", err)
	}

	samples := buf.Samples()
	rate := buf.SampleRate()
	if k.analysisRate > 0 && k.analysisRate != rate {
		var err error
		samples, err = toAnalysisRate(samples, rate, k.analysisRate)
		if err != nil {
			return AnalysisResult{}, NewError(KindInvalidAudio, "resampling for analysis failed", err)
		}
		rate = k.analysisRate
	}

	cents, err := tuning.EstimateCents(samples, rate)
	if err != nil {
		return AnalysisResult{}, NewError(KindInvalidAudio, "tuning estimation failed", err)
	}

	profile, err := chroma.Profile(samples, rate, chroma.WithTuning(cents), chroma.WithMode(k.chromaMode))
	if err != nil {
		return AnalysisResult{}, NewError(KindInvalidAudio, "chroma extraction failed", err)
	}

	return AnalysisResult{
		Key:               profile.Argmax(),
		TuningOffsetCents: cents,
		Chroma:            profile,
	}, nil
}

// ShiftFor returns the semitone shift that moves an analysed clip onto the
// equal-tempered grid in desiredKey.
func (k *KeyTuner) ShiftFor(result *AnalysisResult, desiredKey string) (float64, error) {
	if result == nil {
		return 0, ErrNotAnalyzed
	}
	desired, err := pitchclass.Parse(desiredKey)
	if err != nil {
		return 0, NewError(KindUnknownKey, fmt.Sprintf("unknown key %q", desiredKey), err)
	}
	if !result.Key.Valid() {
		return 0, NewError(KindNotAnalyzed, fmt.Sprintf("analysis holds invalid key %d", int(result.Key)), nil)
	}
	if !core.IsFinite(result.TuningOffsetCents) {
		return 0, NewError(KindNotAnalyzed, "analysis holds non-finite tuning offset", nil)
	}

	correction := -core.CentsToSemitones(result.TuningOffsetCents)
	return correction + float64(k.transposition.Distance(result.Key, desired)), nil
}

// Retune shifts buf from its analysed key and tuning to desiredKey. It
// returns the new buffer and the applied shift in semitones.
func (k *KeyTuner) Retune(buf buffer.Buffer, result *AnalysisResult, desiredKey string) (buffer.Buffer, float64, error) {
	shift, err := k.ShiftFor(result, desiredKey)
	if err != nil {
		return buffer.Buffer{}, 0, err
	}
	if err := buf.Validate(); err != nil {
		return buffer.Buffer{}, 0, NewError(KindInvalidAudio, "cannot retune clip", err)
	}

	shifter, err := k.shifter(float64(buf.SampleRate()))
	if err != nil {
		return buffer.Buffer{}, 0, fmt.Errorf("keytune: pitch shifter: %w", err)
	}
	out, err := shifter.Shift(buf.Samples(), shift)
	if err != nil {
		return buffer.Buffer{}, 0, fmt.Errorf("keytune: pitch shift by %.3f semitones: %w", shift, err)
	}
	if len(out) != buf.Len() {
		return buffer.Buffer{}, 0, fmt.Errorf("keytune: pitch shifter returned %d samples, want %d", len(out), buf.Len())
	}

	return buffer.Wrap(out, buf.SampleRate()), shift, nil
}
