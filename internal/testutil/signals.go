// Package testutil holds deterministic test signals and tolerance helpers
// shared by the DSP and service tests.
package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// Tones sums equal-amplitude sines at the given frequencies. The total peak
// amplitude does not exceed amplitude.
func Tones(freqsHz []float64, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	if len(freqsHz) == 0 {
		return out
	}
	gain := amplitude / float64(len(freqsHz))
	for _, f := range freqsHz {
		step := 2 * math.Pi * f / sampleRate
		for i := range out {
			out[i] += gain * math.Sin(step*float64(i))
		}
	}
	return out
}

// MIDIHz returns the equal-tempered frequency of a MIDI note at A4=440 Hz,
// detuned by cents.
func MIDIHz(note int, cents float64) float64 {
	return 440 * math.Pow(2, (float64(note-69)+cents/100)/12)
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}
