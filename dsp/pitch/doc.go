// Package pitch provides offline pitch shifters for mono sample buffers.
//
// Included engines:
//   - Spectral: phase-vocoder shifter. Small shifts move STFT bins
//     directly; larger shifts time-stretch with identity phase locking and
//     resample back to the input length.
//   - WSOLA: time-domain waveform-similarity overlap-add stretch followed
//     by cubic Hermite resampling.
//
// Both satisfy Shifter, which takes the shift in (fractional) semitones
// and always returns a new slice of the input's length.
package pitch
