package core

import "math"

const (
	// ReferenceA4 is the standard concert pitch in Hz.
	ReferenceA4 = 440.0
	// MIDIA4 is the MIDI note number of ReferenceA4.
	MIDIA4 = 69.0

	// CentsPerSemitone is the size of one equal-tempered semitone in cents.
	CentsPerSemitone = 100.0
	// SemitonesPerOctave is the number of equal-tempered steps per octave.
	SemitonesPerOctave = 12.0
)

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// IsFinitePositive reports whether v is finite and strictly positive.
func IsFinitePositive(v float64) bool {
	return v > 0 && IsFinite(v)
}

// SemitonesToRatio converts an equal-tempered interval to a frequency ratio.
func SemitonesToRatio(semitones float64) float64 {
	return math.Pow(2, semitones/SemitonesPerOctave)
}

// CentsToSemitones converts cents to (fractional) semitones.
func CentsToSemitones(cents float64) float64 {
	return cents / CentsPerSemitone
}

// SemitonesToCents converts (fractional) semitones to cents.
func SemitonesToCents(semitones float64) float64 {
	return semitones * CentsPerSemitone
}

// HzToMIDI converts a frequency to a fractional MIDI note number relative to
// the tuning reference refA4. A non-positive refA4 selects ReferenceA4.
// Returns NaN for non-positive frequencies.
func HzToMIDI(hz, refA4 float64) float64 {
	if hz <= 0 {
		return math.NaN()
	}

	if refA4 <= 0 {
		refA4 = ReferenceA4
	}

	return MIDIA4 + SemitonesPerOctave*math.Log2(hz/refA4)
}

// TunedReference returns the A4 frequency of a grid offset by cents from
// standard pitch.
func TunedReference(cents float64) float64 {
	return ReferenceA4 * SemitonesToRatio(CentsToSemitones(cents))
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}

	if linear == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(linear)
}
