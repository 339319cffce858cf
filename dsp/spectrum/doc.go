// Package spectrum provides the short-time Fourier transform front-end
// shared by the chroma and tuning analysers, plus magnitude and power
// helpers over complex FFT bins.
//
// FFTs are computed with algo-fft plans; magnitude and power use the
// SIMD kernels from algo-vecmath.
package spectrum
