package pitch

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-keytune/dsp/core"
)

// Music-tuned defaults: a long sequence window keeps several beat cycles
// inside the similarity search, as in SoundTouch's music preset.
const (
	defaultSequenceMs = 82.0
	defaultOverlapMs  = 10.0
	defaultSearchMs   = 28.0

	minSequenceMs = 20.0
	maxSequenceMs = 120.0
	minOverlapMs  = 4.0
	maxOverlapMs  = 60.0
	minSearchMs   = 2.0
	maxSearchMs   = 40.0
)

// WSOLA shifts pitch in the time domain: the buffer is time-stretched by
// the pitch ratio with waveform-similarity overlap-add, then resampled
// back to its original length with cubic Hermite interpolation.
//
// WSOLA holds no signal state between calls but is not safe for
// concurrent configuration changes.
type WSOLA struct {
	sampleRate float64

	sequenceMs float64
	overlapMs  float64
	searchMs   float64

	sequenceLen int
	overlapLen  int
	searchLen   int
	stepOut     int

	fadeIn  []float64
	fadeOut []float64
}

// NewWSOLA constructs a time-domain shifter with music-tuned defaults.
func NewWSOLA(sampleRate float64) (*WSOLA, error) {
	if !core.IsFinitePositive(sampleRate) {
		return nil, fmt.Errorf("pitch: wsola sample rate must be positive and finite: %f", sampleRate)
	}
	w := &WSOLA{
		sampleRate: sampleRate,
		sequenceMs: defaultSequenceMs,
		overlapMs:  defaultOverlapMs,
		searchMs:   defaultSearchMs,
	}
	if err := w.rebuild(); err != nil {
		return nil, err
	}
	return w, nil
}

// SampleRate returns the sample rate in Hz.
func (w *WSOLA) SampleRate() float64 { return w.sampleRate }

// Sequence returns the sequence length in milliseconds.
func (w *WSOLA) Sequence() float64 { return w.sequenceMs }

// Overlap returns the overlap length in milliseconds.
func (w *WSOLA) Overlap() float64 { return w.overlapMs }

// Search returns the seek window radius in milliseconds.
func (w *WSOLA) Search() float64 { return w.searchMs }

// SetSequence updates the sequence length in milliseconds.
func (w *WSOLA) SetSequence(ms float64) error {
	if !inRange(ms, minSequenceMs, maxSequenceMs) {
		return fmt.Errorf("pitch: wsola sequence must be in [%f, %f] ms: %f", minSequenceMs, maxSequenceMs, ms)
	}
	return w.update(&w.sequenceMs, ms)
}

// SetOverlap updates the overlap length in milliseconds.
func (w *WSOLA) SetOverlap(ms float64) error {
	if !inRange(ms, minOverlapMs, maxOverlapMs) {
		return fmt.Errorf("pitch: wsola overlap must be in [%f, %f] ms: %f", minOverlapMs, maxOverlapMs, ms)
	}
	return w.update(&w.overlapMs, ms)
}

// SetSearch updates the seek window radius in milliseconds.
func (w *WSOLA) SetSearch(ms float64) error {
	if !inRange(ms, minSearchMs, maxSearchMs) {
		return fmt.Errorf("pitch: wsola search must be in [%f, %f] ms: %f", minSearchMs, maxSearchMs, ms)
	}
	return w.update(&w.searchMs, ms)
}

// update sets *field and rebuilds, restoring the old value on failure.
func (w *WSOLA) update(field *float64, v float64) error {
	old := *field
	*field = v
	if err := w.rebuild(); err != nil {
		*field = old
		_ = w.rebuild()
		return err
	}
	return nil
}

// Shift returns samples shifted by semitones.
func (w *WSOLA) Shift(samples []float64, semitones float64) ([]float64, error) {
	ratio, err := RatioForSemitones(semitones)
	if err != nil {
		return nil, err
	}
	return w.ShiftRatio(samples, ratio)
}

// ShiftRatio returns samples shifted by a frequency ratio in [0.25, 4].
func (w *WSOLA) ShiftRatio(samples []float64, ratio float64) ([]float64, error) {
	if err := validateRatio(ratio); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return []float64{}, nil
	}
	if isIdentity(ratio) {
		return copyOf(samples), nil
	}
	stretched := w.timeStretch(samples, ratio)
	return resampleHermite(stretched, len(samples)), nil
}

func (w *WSOLA) rebuild() error {
	if w.overlapMs >= w.sequenceMs {
		return fmt.Errorf("pitch: wsola overlap must be smaller than sequence: overlap=%f sequence=%f",
			w.overlapMs, w.sequenceMs)
	}

	w.sequenceLen = max(int(math.Round(w.sequenceMs*0.001*w.sampleRate)), 32)
	w.overlapLen = max(int(math.Round(w.overlapMs*0.001*w.sampleRate)), 8)
	if w.overlapLen >= w.sequenceLen {
		return fmt.Errorf("pitch: wsola overlap too large for sequence: overlap=%d sequence=%d",
			w.overlapLen, w.sequenceLen)
	}
	w.stepOut = w.sequenceLen - w.overlapLen
	if w.stepOut < 4 {
		return fmt.Errorf("pitch: wsola output hop too small: %d", w.stepOut)
	}
	w.searchLen = max(int(math.Round(w.searchMs*0.001*w.sampleRate)), 1)

	w.fadeIn = make([]float64, w.overlapLen)
	w.fadeOut = make([]float64, w.overlapLen)
	for i := range w.overlapLen {
		t := float64(i) / float64(w.overlapLen-1)
		in := 0.5 - 0.5*math.Cos(math.Pi*t)
		w.fadeIn[i] = in
		w.fadeOut[i] = 1 - in
	}
	return nil
}

// timeStretch lengthens input by ratio while keeping its pitch.
func (w *WSOLA) timeStretch(input []float64, ratio float64) []float64 {
	targetLen := max(int(math.Round(float64(len(input))*ratio)), 1)
	nominalInStep := math.Max(float64(w.stepOut)/ratio, 1)

	nFrames := targetLen/w.stepOut + 4
	out := make([]float64, nFrames*w.stepOut+w.sequenceLen+1)

	for i := range w.sequenceLen {
		out[i] = sampleZero(input, i)
	}
	outLen := w.sequenceLen
	prevStart := 0
	nextNominal := nominalInStep
	ref := make([]float64, w.overlapLen)

	for outLen < targetLen+w.sequenceLen {
		// The natural continuation of the previous segment is the
		// reference the next segment should resemble.
		refStart := prevStart + w.stepOut
		for i := range ref {
			ref[i] = sampleZero(input, refStart+i)
		}

		candStart := w.bestOverlap(ref, input, int(math.Round(nextNominal)))

		outStart := outLen - w.overlapLen
		for i := range w.overlapLen {
			out[outStart+i] = out[outStart+i]*w.fadeOut[i] + sampleZero(input, candStart+i)*w.fadeIn[i]
		}
		for i := w.overlapLen; i < w.sequenceLen; i++ {
			out[outStart+i] = sampleZero(input, candStart+i)
		}

		outLen = outStart + w.sequenceLen
		prevStart = candStart
		nextNominal += nominalInStep

		if prevStart > len(input)+w.sequenceLen && outLen >= targetLen {
			break
		}
	}

	if targetLen <= len(out) {
		return out[:targetLen]
	}
	return fitLength(out, targetLen)
}

// bestOverlap searches around predicted for the input offset whose
// overlap region best correlates with ref.
func (w *WSOLA) bestOverlap(ref, input []float64, predicted int) int {
	best := predicted
	bestScore := math.Inf(-1)

	refEnergy := tiny
	for _, v := range ref {
		refEnergy += v * v
	}

	for cand := predicted - w.searchLen; cand <= predicted+w.searchLen; cand++ {
		dot := 0.0
		candEnergy := tiny
		for i, rv := range ref {
			cv := sampleZero(input, cand+i)
			dot += rv * cv
			candEnergy += cv * cv
		}
		if score := dot / math.Sqrt(refEnergy*candEnergy); score > bestScore {
			bestScore = score
			best = cand
		}
	}
	return best
}

func inRange(v, lo, hi float64) bool {
	return core.IsFinite(v) && v >= lo && v <= hi
}
