// Package tuning estimates how far a recording's pitch grid sits from
// standard equal temperament (A4 = 440 Hz).
//
// Spectral peaks are picked frame by frame from a zero-padded STFT and
// refined by parabolic interpolation of the log magnitude. The weaker half
// of the peaks is discarded and the remaining frequencies are folded onto
// a one-semitone interval around the 440 Hz grid. The estimate is the
// centre of mass of the most populated histogram bin of those residuals.
package tuning
