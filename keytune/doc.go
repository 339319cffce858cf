// Package keytune estimates the key and tuning of a mono audio clip and
// retunes it to another key.
//
// Analyze reports the dominant pitch class of the clip's time-averaged
// chroma and the clip's deviation from A440 equal temperament in cents.
// Retune shifts the clip by
//
//	-(tuningOffsetCents / 100) + distance(detectedKey, desiredKey)
//
// semitones, which snaps it onto the equal-tempered grid and transposes it
// in one pitch-shift pass. The key distance is the literal index
// difference by default (B to C is -11); TranspositionNearest wraps it to
// the closest octave instead.
//
// All operations are pure: input buffers are never modified and either a
// complete result or an error is returned.
package keytune
