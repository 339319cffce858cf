// Package chroma extracts 12-bin pitch-class energy profiles (chromagrams)
// from mono audio.
//
// Frames come from a Hann-windowed STFT. Every bin between the lower and
// upper frequency limits is assigned to the pitch class of its nearest
// equal-tempered note, relative to a reference A4 that may be detuned by a
// tuning offset in cents. Two frame normalisations are available:
//
//   - ModeSTFT: each frame is scaled so its largest class is 1.
//   - ModeCENS: chroma energy normalised statistics. Frames are L1
//     normalised, quantised to coarse energy levels, smoothed over time
//     and L2 normalised. This is robust to dynamics and timbre and is the
//     default.
package chroma
