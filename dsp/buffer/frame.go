package buffer

// Frame is a mutable scratch block used inside block-processing loops.
// Unlike Buffer it is reused in place; obtain one from a Pool.
type Frame struct {
	samples []float64
}

// Samples returns the underlying slice.
func (f *Frame) Samples() []float64 {
	return f.samples
}

// Len returns the current number of samples.
func (f *Frame) Len() int {
	return len(f.samples)
}

// Cap returns the current capacity of the backing slice.
func (f *Frame) Cap() int {
	return cap(f.samples)
}

// Resize sets the length to n, reusing existing capacity when possible.
// New elements beyond the previous length are zeroed.
func (f *Frame) Resize(n int) {
	if n < 0 {
		n = 0
	}
	oldLen := len(f.samples)
	if n <= cap(f.samples) {
		f.samples = f.samples[:n]
	} else {
		s := make([]float64, n)
		copy(s, f.samples)
		f.samples = s
	}
	if n > oldLen {
		clear(f.samples[oldLen:n])
	}
}

// Zero sets all samples to 0.
func (f *Frame) Zero() {
	clear(f.samples)
}

// Load copies src[start:start+Len()] into the frame. Positions before the
// start or past the end of src read as zero.
func (f *Frame) Load(src []float64, start int) {
	f.Zero()
	if start >= len(src) || start+len(f.samples) <= 0 {
		return
	}
	dst := f.samples
	if start < 0 {
		dst = dst[-start:]
		start = 0
	}
	copy(dst, src[start:])
}
