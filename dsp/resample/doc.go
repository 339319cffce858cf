// Package resample converts whole clips between sample rates with a
// Kaiser-windowed polyphase FIR. The filter delay is removed, so converted
// clips stay time-aligned with their source.
//
// It backs two callers: optional down-sampling before key and tuning
// analysis, and duration correction after the spectral pitch shifter's
// time stretch.
//
//	quality          taps/phase   cutoff   kaiser beta
//	QualityFast      16           0.88     5.0
//	QualityBalanced  32           0.92     7.5
//	QualityBest      64           0.96     9.0
package resample
