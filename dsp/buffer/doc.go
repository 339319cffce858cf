// Package buffer provides the immutable mono audio buffer passed between
// the analysis and retuning stages, and a pool of scratch frames for
// allocation-friendly block processing.
//
// A Buffer owns its samples: New copies its input and Samples returns a
// copy, so no caller can mutate another caller's audio. Transforms always
// produce a new Buffer.
package buffer
